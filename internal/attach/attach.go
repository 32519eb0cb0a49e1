// Package attach builds and normalizes the Attachment references a chat
// node carries (spec §1, §4.4): Forky's core never fetches or interprets
// attachment bytes, but pasted HTML content is sanitized and converted to
// markdown before it is stored as a node's text, the way the teacher's
// go.mod-declared html-to-markdown/bluemonday pair are built to be used
// together (sanitize untrusted HTML, then convert).
package attach

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/forkyai/forky/internal/types"
)

// sanitizePolicy strips anything beyond the tags a user-generated chat
// message plausibly needs (links, formatting, images) before conversion.
var sanitizePolicy = bluemonday.UGCPolicy()

// Ingest sanitizes rawHTML and converts the result to markdown.
func Ingest(rawHTML string) (string, error) {
	clean := sanitizePolicy.Sanitize(rawHTML)
	markdown, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("attach: converting html to markdown: %w", err)
	}
	return markdown, nil
}

// New builds an Attachment reference. kind names the resource type (e.g.
// "file", "url", "image"); uri is the opaque location an outer layer
// resolves.
func New(kind, uri, title string) types.Attachment {
	return types.Attachment{
		ID:    uuid.NewString(),
		Kind:  kind,
		URI:   uri,
		Title: title,
	}
}
