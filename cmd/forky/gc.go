package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
)

var (
	gcOlderThan string
	gcDryRun    bool
)

// gcCmd prunes inactive conversations older than a natural-language cutoff,
// the same dry-run shape as the teacher's cmd/bd/gc.go decay phase (no
// confirmation prompt), generalized from a fixed day count to a parsed phrase via
// olebedev/when.
var gcCmd = &cobra.Command{
	Use:     "gc",
	GroupID: "maint",
	Short:   "Delete inactive conversations older than a cutoff",
	Long: `Deletes every inactive conversation created before the cutoff.

Examples:
  forky gc                         # prune anything inactive and older than 30 days
  forky gc --older-than "90 days ago"
  forky gc --dry-run               # preview without deleting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := when.New(nil)
		w.Add(common.All...)
		w.Add(en.All...)

		result, err := w.Parse(gcOlderThan, time.Now())
		if err != nil {
			return fmt.Errorf("gc: parsing --older-than %q: %w", gcOlderThan, err)
		}
		if result == nil {
			return fmt.Errorf("gc: could not understand --older-than %q", gcOlderThan)
		}
		cutoff := result.Time

		summaries, err := svc.ListConversations(rootCtx)
		if err != nil {
			return err
		}

		var deleted int
		for _, s := range summaries {
			if s.IsActive || !s.CreatedAt.Before(cutoff) {
				continue
			}
			if gcDryRun {
				fmt.Printf("would delete %s (%s, created %s)\n", s.ID, s.Name, s.CreatedAt.Format("2006-01-02"))
				continue
			}
			if err := svc.DeleteConversation(rootCtx, s.ID); err != nil {
				return fmt.Errorf("gc: deleting %s: %w", s.ID, err)
			}
			deleted++
		}

		if !gcDryRun {
			fmt.Printf("Deleted %d conversation(s) created before %s\n", deleted, cutoff.Format("2006-01-02"))
		}
		return nil
	},
}

func init() {
	gcCmd.Flags().StringVar(&gcOlderThan, "older-than", "30 days ago", "natural-language cutoff; inactive conversations created before this are deleted")
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "preview without deleting")
	rootCmd.AddCommand(gcCmd)
}
