package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/forkyai/forky/internal/types"
)

var exportFormat string

// exportCmd renders a conversation's linearized history as YAML (for
// tooling) or HTML (for reading), the two output shapes the teacher's
// go.mod-declared yaml.v3/goldmark pair are suited to, applied here to a
// conversation instead of an issue list.
var exportCmd = &cobra.Command{
	Use:     "export <conversation-id>",
	GroupID: "conversation",
	Short:   "Export a conversation's history as YAML or HTML",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := types.ConversationID(args[0])
		nodes, err := svc.GetHistory(rootCtx, id)
		if err != nil {
			return err
		}

		switch exportFormat {
		case "yaml":
			data, err := yaml.Marshal(nodes)
			if err != nil {
				return fmt.Errorf("export: marshaling yaml: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		case "html":
			var markdown strings.Builder
			for _, n := range nodes {
				if n.IsForkMarker() {
					fmt.Fprintf(&markdown, "\n---\n\n## Fork: %s\n\n", n.BranchName)
					continue
				}
				fmt.Fprintf(&markdown, "### %s\n\n%s\n\n", n.Role, n.Content)
			}
			var html bytes.Buffer
			if err := goldmark.Convert([]byte(markdown.String()), &html); err != nil {
				return fmt.Errorf("export: rendering html: %w", err)
			}
			_, err := os.Stdout.Write(html.Bytes())
			return err
		default:
			return fmt.Errorf("export: unknown --format %q (want yaml or html)", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "output format: yaml or html")
	rootCmd.AddCommand(exportCmd)
}
