package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var backupOutput string

// backupCmd exports every conversation as one JSON object per line
// (JSONL), mirroring the teacher's `bd export`/`bd backup` JSONL round-trip
// format (cmd/bd/export.go, cmd/bd/backup.go) but over conversations
// instead of issues.
var backupCmd = &cobra.Command{
	Use:     "backup",
	GroupID: "maint",
	Short:   "Export every conversation to JSONL for off-machine recovery",
	Long: `Writes one JSON object per line, one per conversation, including every
node and its parent edges. Restore with 'forky restore'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := svc.ListConversations(rootCtx)
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if backupOutput != "" {
			f, err := os.Create(backupOutput)
			if err != nil {
				return fmt.Errorf("backup: creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		enc := json.NewEncoder(w)
		count := 0
		for _, s := range summaries {
			conv, err := svc.LoadConversation(rootCtx, s.ID)
			if err != nil {
				return fmt.Errorf("backup: loading %s: %w", s.ID, err)
			}
			if err := enc.Encode(conv); err != nil {
				return fmt.Errorf("backup: encoding %s: %w", s.ID, err)
			}
			count++
		}

		if !jsonOutput {
			fmt.Fprintf(os.Stderr, "Backed up %d conversation(s)\n", count)
		}
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "output file path (default: stdout)")
	rootCmd.AddCommand(backupCmd)
}
