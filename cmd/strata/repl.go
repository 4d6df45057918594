package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/strata/pkg/dberr"
	"github.com/cuemby/strata/pkg/types"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read JSON-encoded programs from stdin, one per line, and run each against the database",
	Long: `Repl decodes a stream of wireProgram JSON values from stdin (the
same shape "strata run" reads from a file) and executes each in its own
RunScript transaction against one open database, printing each result as
it completes — the same "hold the store open across calls" session the
teacher's embedded containerd client keeps for the duration of a CLI
process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		dec := json.NewDecoder(os.Stdin)
		enc := json.NewEncoder(os.Stdout)
		for {
			var wp wireProgram
			if err := dec.Decode(&wp); err != nil {
				if err == io.EOF {
					return nil
				}
				return fmt.Errorf("decoding program: %w", err)
			}
			program, err := wp.toInputProgram()
			if err != nil {
				printReplError(enc, err)
				continue
			}
			res, err := db.RunScript(context.Background(), []types.InputProgram{program})
			if err != nil {
				printReplError(enc, err)
				continue
			}
			_ = enc.Encode(res)
		}
	},
}

func printReplError(enc *json.Encoder, err error) {
	if de, ok := err.(*dberr.Error); ok {
		_ = enc.Encode(de)
		return
	}
	_ = enc.Encode(map[string]interface{}{"ok": false, "message": err.Error()})
}

func init() {
	rootCmd.AddCommand(replCmd)
}
