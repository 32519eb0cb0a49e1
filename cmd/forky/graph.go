package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/types"
)

var graphCmd = &cobra.Command{
	Use:     "graph <conversation-id>",
	GroupID: "conversation",
	Short:   "Print every node and parent edge in a conversation (spec get_graph)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := svc.GetGraph(rootCtx, types.ConversationID(args[0]))
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(view)
		}
		for _, n := range view.Nodes {
			marker := " "
			if n.IsCurrent {
				marker = "*"
			}
			branch := ""
			if n.BranchName != "" {
				branch = " (" + n.BranchName + ")"
			}
			fmt.Printf("%s %s [%s]%s  parents=%v\n", marker, n.ID, n.Role, branch, n.ParentIDs)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
