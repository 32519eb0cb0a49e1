// Package modelclient defines the ModelClient capability (spec §6.2) that
// the core requires but never implements the wire format for, plus an
// anthropic-sdk-go-backed implementation.
package modelclient

import (
	"context"

	"github.com/forkyai/forky/internal/types"
)

// Message is a role-tagged text message sent to a model. Attachments are
// resolved to model-native representations by the adapter implementing
// ModelClient, not by the core (spec §6.2).
type Message struct {
	Role        types.Role
	Content     string
	Attachments []types.Attachment
}

// ModelInfo names one model a ModelClient can target.
type ModelInfo struct {
	ID   string
	Name string
}

// ModelClient is the capability the conversation DAG engine requires from
// an LLM provider. Implementations live outside the core (spec §1); the
// core only ever talks to this interface.
type ModelClient interface {
	// Complete returns the full completion text for a non-streaming call.
	Complete(ctx context.Context, messages []Message, model string) (string, error)

	// Stream returns a channel of text chunks for a streaming call. The
	// channel is closed after the final chunk (Done=true) or after an
	// error chunk; callers must drain it to avoid leaking the producer
	// goroutine.
	Stream(ctx context.Context, messages []Message, model string) (<-chan types.ChatChunk, error)

	AvailableModels(ctx context.Context) ([]ModelInfo, error)
}

// FromNodes converts a linearized node history (internal/graph.History's
// output) into the Message slice a ModelClient expects.
func FromNodes(nodes []*types.Node) []Message {
	out := make([]Message, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Message{Role: n.Role, Content: n.Content, Attachments: n.Attachments})
	}
	return out
}
