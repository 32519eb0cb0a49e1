package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/graph"
	"github.com/forkyai/forky/internal/storage/forkydb"
)

// doctorCmd validates every conversation's persisted graph against the
// invariants internal/graph.Validate enforces, and reports the schema
// migrations forkydb has applied — the same "check everything, report
// what's wrong" shape as the teacher's doctor subcommand family
// (cmd/bd/doctor_*.go), generalized from issue-table repair to graph
// invariant checking.
var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: "maint",
	Short:   "Validate every conversation's graph invariants",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Migrations applied:")
		for _, name := range forkydb.ListMigrations() {
			fmt.Printf("  - %s\n", name)
		}

		summaries, err := svc.ListConversations(rootCtx)
		if err != nil {
			return err
		}

		var broken int
		for _, s := range summaries {
			conv, err := svc.LoadConversation(rootCtx, s.ID)
			if err != nil {
				fmt.Printf("FAIL  %s (%s): %v\n", s.ID, s.Name, err)
				broken++
				continue
			}
			g := graph.FromNodes(s.ID, conv.CurrentNodeID, conv.Nodes)
			if err := g.Validate(); err != nil {
				fmt.Printf("FAIL  %s (%s): %v\n", s.ID, s.Name, err)
				broken++
				continue
			}
			fmt.Printf("OK    %s (%s)\n", s.ID, s.Name)
		}

		if broken > 0 {
			return fmt.Errorf("doctor: %d conversation(s) failed validation", broken)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
