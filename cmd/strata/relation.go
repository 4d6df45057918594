package main

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/types"
	"github.com/spf13/cobra"
)

var relationCmd = &cobra.Command{
	Use:   "relation",
	Short: "Manage relations in the catalog",
}

var relationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every relation in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.ListRelations(context.Background())
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var relationShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a relation's column schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.ListRelation(context.Background(), args[0])
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var relationRemoveCmd = &cobra.Command{
	Use:   "remove NAME...",
	Short: "Destroy one or more relations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.RemoveRelation(context.Background(), args)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var relationRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a relation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.RenameRelation(context.Background(), [][2]string{{args[0], args[1]}})
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var relationSetAccessCmd = &cobra.Command{
	Use:   "set-access LEVEL NAME...",
	Short: "Set the access level (normal, protected, read_only, hidden) of one or more relations",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := types.ParseAccessLevel(args[0])
		if err != nil {
			return fmt.Errorf("invalid access level %q: %w", args[0], err)
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.SetAccessLevel(context.Background(), args[1:], level)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var relationTriggerShowCmd = &cobra.Command{
	Use:   "trigger-show NAME",
	Short: "List a relation's registered trigger scripts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.ShowTrigger(context.Background(), args[0])
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var relationTriggerSetCmd = &cobra.Command{
	Use:   "trigger-set NAME",
	Short: "Replace a relation's put/rm/replace trigger script lists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		puts, _ := cmd.Flags().GetStringSlice("put")
		rms, _ := cmd.Flags().GetStringSlice("rm")
		replaces, _ := cmd.Flags().GetStringSlice("replace")

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.SetTriggers(context.Background(), args[0], toTriggers(puts), toTriggers(rms), toTriggers(replaces))
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func toTriggers(scripts []string) []types.Trigger {
	triggers := make([]types.Trigger, len(scripts))
	for i, s := range scripts {
		triggers[i] = types.Trigger(s)
	}
	return triggers
}

func init() {
	relationCmd.AddCommand(relationListCmd)
	relationCmd.AddCommand(relationShowCmd)
	relationCmd.AddCommand(relationRemoveCmd)
	relationCmd.AddCommand(relationRenameCmd)
	relationCmd.AddCommand(relationSetAccessCmd)
	relationCmd.AddCommand(relationTriggerShowCmd)
	relationCmd.AddCommand(relationTriggerSetCmd)

	relationTriggerSetCmd.Flags().StringSlice("put", nil, "trigger scripts to run on put")
	relationTriggerSetCmd.Flags().StringSlice("rm", nil, "trigger scripts to run on rm")
	relationTriggerSetCmd.Flags().StringSlice("replace", nil, "trigger scripts to run on replace")
}
