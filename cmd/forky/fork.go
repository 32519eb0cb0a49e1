package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/types"
)

var forkCmd = &cobra.Command{
	Use:     "fork <conversation-id> <branch-name>",
	GroupID: "conversation",
	Short:   "Branch off the current node with a <FORK> marker (spec fork)",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		markerID, err := svc.Fork(rootCtx, types.ConversationID(args[0]), args[1])
		if err != nil {
			return err
		}
		fmt.Println(markerID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forkCmd)
}
