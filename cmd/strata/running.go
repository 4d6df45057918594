package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var runningCmd = &cobra.Command{
	Use:   "running",
	Short: "Inspect and control in-flight queries",
}

var runningListCmd = &cobra.Command{
	Use:   "list",
	Short: "List currently running queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		printResult(db.ListRunning())
		return nil
	},
}

var runningKillCmd = &cobra.Command{
	Use:   "kill ID",
	Short: "Poison a running query by its registry id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid query id %q: %w", args[0], err)
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		printResult(db.KillRunning(id))
		return nil
	},
}

func init() {
	runningCmd.AddCommand(runningListCmd)
	runningCmd.AddCommand(runningKillCmd)
}
