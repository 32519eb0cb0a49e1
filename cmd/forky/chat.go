package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forkyai/forky/internal/attach"
	"github.com/forkyai/forky/internal/types"
)

var (
	chatModel    string
	chatHTMLFile string
)

var chatCmd = &cobra.Command{
	Use:     "chat <conversation-id> <message>",
	GroupID: "conversation",
	Short:   "Send a message and stream the assistant's reply (spec chat)",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := types.ConversationID(args[0])
		message := args[1]

		var attachments []types.Attachment
		if chatHTMLFile != "" {
			raw, err := os.ReadFile(chatHTMLFile)
			if err != nil {
				return fmt.Errorf("reading --html file: %w", err)
			}
			markdown, err := attach.Ingest(string(raw))
			if err != nil {
				return err
			}
			message += "\n\n" + markdown
			attachments = append(attachments, attach.New("file", chatHTMLFile, chatHTMLFile))
		}

		chunks, err := svc.Chat(rootCtx, id, message, chatModel, attachments)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for chunk := range chunks {
				if err := enc.Encode(chunk); err != nil {
					return err
				}
				if chunk.Err != nil {
					return chunk.Err
				}
			}
			return nil
		}

		for chunk := range chunks {
			if chunk.Err != nil {
				return chunk.Err
			}
			fmt.Print(chunk.Text)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", "", "override the default model for this message")
	chatCmd.Flags().StringVar(&chatHTMLFile, "html", "", "path to an HTML file to sanitize, convert to markdown, and append to the message")
	rootCmd.AddCommand(chatCmd)
}
