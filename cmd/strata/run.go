package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cuemby/strata/pkg/types"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Run a JSON-encoded query program against the database",
	Long: `Run parses FILE as a JSON-encoded program (the wire shape this
module's CLI speaks in place of script text, since the text parser is an
external collaborator this module does not implement) and executes it in
one RunScript transaction, printing the {ok, took, headers, rows} result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := loadProgramFile(args[0])
		if err != nil {
			return err
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.RunScript(context.Background(), []types.InputProgram{program})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain FILE",
	Short: "Show the compiled plan for a JSON-encoded query program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		program, err := loadProgramFile(args[0])
		if err != nil {
			return err
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.Explain(context.Background(), program)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(explainCmd)
}
