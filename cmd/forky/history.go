package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/types"
)

var historyCmd = &cobra.Command{
	Use:     "history <conversation-id>",
	GroupID: "conversation",
	Short:   "Print the linearized history leading to current (spec get_history)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := svc.GetHistory(rootCtx, types.ConversationID(args[0]))
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(nodes)
		}
		for _, n := range nodes {
			if n.IsForkMarker() {
				fmt.Printf("--- fork: %s ---\n", n.BranchName)
				continue
			}
			fmt.Printf("[%s] %s\n%s\n\n", n.Role, n.CreatedAt.Format("2006-01-02 15:04"), renderMarkdown(n.Content))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
