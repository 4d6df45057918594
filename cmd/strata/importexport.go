package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export NAME...",
	Short: "Export one or more relations to JSON on stdout",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asObjects, _ := cmd.Flags().GetBool("objects")

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		data, err := db.Export(context.Background(), args, asObjects)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a {relation_or_-prefixed_name: payload} JSON mapping from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading import file %q: %w", args[0], err)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("parsing import file %q: %w", args[0], err)
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.Import(context.Background(), payload)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup DESTPATH",
	Short: "Copy the full keyspace into a fresh companion store file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.Backup(context.Background(), args[0])
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore SRCPATH",
	Short: "Restore a backup file's full keyspace (refuses a non-empty database)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.Restore(context.Background(), args[0])
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var importFromBackupCmd = &cobra.Command{
	Use:   "import-from-backup SRCPATH NAME...",
	Short: "Re-home named relations out of a backup file into this database",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.ImportFromBackup(context.Background(), args[0], args[1:])
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func init() {
	exportCmd.Flags().Bool("objects", false, "emit rows as {col: value} objects instead of a {headers, rows} table")
}
