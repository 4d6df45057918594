package main

import (
	"context"

	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Reclaim space left by deleted/replaced relations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := db.Compact(context.Background())
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}
