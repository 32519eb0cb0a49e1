// Package storage defines the persistence contract for Forky conversations
// (spec §4.1, §6.3): a small interface plus the sentinel errors every
// backend wraps its own failures into.
package storage

import (
	"context"
	"errors"

	"github.com/forkyai/forky/internal/types"
)

// Sentinel errors every Store implementation wraps backend-specific
// failures into, mirroring the teacher's dolt-layer wrapDBError idiom
// (internal/storage/dolt/errors.go) but named for Forky's domain.
var (
	ErrNotFound      = errors.New("conversation not found")
	ErrAlreadyExists = errors.New("conversation already exists")
	ErrTransaction   = errors.New("transaction error")
	ErrQuery         = errors.New("query error")
	ErrScan          = errors.New("scan error")
)

// Store persists conversations (§4.1). Every write is atomic per
// conversation: SaveConversation either commits the full node set and
// current pointer, or leaves the prior persisted state untouched.
type Store interface {
	ListConversations(ctx context.Context) ([]types.ConversationSummary, error)
	CreateConversation(ctx context.Context, name string) (*types.Conversation, error)
	LoadConversation(ctx context.Context, id types.ConversationID) (*types.Conversation, error)
	SaveConversation(ctx context.Context, conv *types.Conversation) error
	DeleteConversation(ctx context.Context, id types.ConversationID) error
	RenameConversation(ctx context.Context, id types.ConversationID, name string) error
	SetActive(ctx context.Context, id types.ConversationID, active bool) error
	Search(ctx context.Context, query string) ([]types.SearchResult, error)

	Close() error
}
