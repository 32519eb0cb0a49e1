package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/types"
)

var deleteNodeCmd = &cobra.Command{
	Use:     "delete-node <conversation-id> <node-id>",
	GroupID: "conversation",
	Short:   "Delete a node and rewire its children onto its parent (spec delete_node)",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		convID := types.ConversationID(args[0])
		nodeID := types.NodeID(args[1])
		ok, err := confirmDestructive(fmt.Sprintf("Delete node %s? Children are rewired onto its parent.", nodeID))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
		return svc.DeleteNode(rootCtx, convID, nodeID)
	},
}

func init() {
	rootCmd.AddCommand(deleteNodeCmd)
}
