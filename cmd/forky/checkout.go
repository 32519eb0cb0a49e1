package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/types"
)

var checkoutCmd = &cobra.Command{
	Use:     "checkout <conversation-id> <node-id-or-branch>",
	GroupID: "conversation",
	Short:   "Move the current pointer to a node id or branch name (spec checkout)",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := svc.Checkout(rootCtx, types.ConversationID(args[0]), args[1])
		if err != nil {
			return err
		}
		fmt.Println(target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}
