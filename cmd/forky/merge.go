package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/types"
)

var mergePrompt string

var mergeCmd = &cobra.Command{
	Use:     "merge <conversation-id> <target-node-id>",
	GroupID: "conversation",
	Short:   "Three-way semantic merge of the target branch into current (spec merge_branches)",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := svc.MergeBranches(rootCtx, types.ConversationID(args[0]), types.NodeID(args[1]), mergePrompt)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
		}
		fmt.Println(result.NewNodeID)
		if result.HasConflicts {
			fmt.Printf("%d conflict(s) detected:\n", len(result.Conflicts))
			for _, c := range result.Conflicts {
				fmt.Printf("  [%s/%s] %q vs %q\n", c.Category, c.Kind, c.LeftItem, c.RightItem)
			}
		}
		return nil
	},
}

var mergeCheckCmd = &cobra.Command{
	Use:   "check <conversation-id> <node-a> <node-b>",
	Short: "Check whether two nodes are eligible to merge (spec check_merge_eligibility)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		elig, err := svc.CheckMergeEligibility(rootCtx, types.ConversationID(args[0]), types.NodeID(args[1]), types.NodeID(args[2]))
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(elig)
		}
		if elig.Eligible {
			fmt.Printf("eligible, lca=%s\n", elig.LCAID)
		} else {
			fmt.Printf("not eligible: %s\n", elig.RejectionReason)
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergePrompt, "prompt", "", "extra guidance for the model synthesizing the merge")
	mergeCmd.AddCommand(mergeCheckCmd)
	rootCmd.AddCommand(mergeCmd)
}
