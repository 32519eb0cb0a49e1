package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/types"
)

var restoreInput string

// restoreCmd is the inverse of backupCmd: it replays a JSONL backup file,
// one conversation per line, directly onto the store.
var restoreCmd = &cobra.Command{
	Use:     "restore",
	GroupID: "maint",
	Short:   "Restore conversations from a JSONL backup produced by 'forky backup'",
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if restoreInput != "" {
			f, err := os.Open(restoreInput)
			if err != nil {
				return fmt.Errorf("restore: opening input: %w", err)
			}
			defer f.Close()
			r = f
		}

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		count := 0
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var conv types.Conversation
			if err := json.Unmarshal(line, &conv); err != nil {
				return fmt.Errorf("restore: parsing line %d: %w", count+1, err)
			}
			if err := store.SaveConversation(rootCtx, &conv); err != nil {
				return fmt.Errorf("restore: saving %s: %w", conv.ID, err)
			}
			count++
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("restore: reading input: %w", err)
		}

		if !jsonOutput {
			fmt.Printf("Restored %d conversation(s)\n", count)
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreInput, "input", "i", "", "input file path (default: stdin)")
	rootCmd.AddCommand(restoreCmd)
}
