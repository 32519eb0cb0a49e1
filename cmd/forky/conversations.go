package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/types"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv", "ls"},
	GroupID: "conversation",
	Short:   "List, create, rename, and delete conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every conversation (spec list_conversations)",
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := svc.ListConversations(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(summaries)
		}
		for _, s := range summaries {
			active := " "
			if s.IsActive {
				active = "*"
			}
			fmt.Printf("%s %s  %-30s  %d nodes  created %s\n",
				active, s.ID, s.Name, s.NodeCount, s.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var conversationsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new conversation (spec create_conversation)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := svc.CreateConversation(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]types.ConversationID{"id": id})
		}
		fmt.Println(id)
		return nil
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a conversation (spec delete_conversation)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := types.ConversationID(args[0])
		ok, err := confirmDestructive(fmt.Sprintf("Delete conversation %s? This cannot be undone.", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
		return svc.DeleteConversation(rootCtx, id)
	},
}

var conversationsRenameCmd = &cobra.Command{
	Use:   "rename <conversation-id> <new-name>",
	Short: "Rename a conversation (spec rename_conversation)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return svc.RenameConversation(rootCtx, types.ConversationID(args[0]), args[1])
	},
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd, conversationsCreateCmd, conversationsDeleteCmd, conversationsRenameCmd)
	rootCmd.AddCommand(conversationsCmd)
}
