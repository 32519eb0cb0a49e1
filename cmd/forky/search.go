package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	GroupID: "conversation",
	Short:   "Search node content across every conversation (spec search)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := svc.Search(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
		}
		for _, r := range results {
			fmt.Printf("%s (%s) [%s]: %s\n", r.ConversationName, r.ConversationID, r.Role, r.Snippet)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
