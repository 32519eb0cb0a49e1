package service

import (
	"context"
	"sync"
	"time"

	"github.com/forkyai/forky/internal/graph"
	"github.com/forkyai/forky/internal/storage"
	"github.com/forkyai/forky/internal/types"
)

// memStore is an in-memory storage.Store for tests — a map guarded by a
// mutex, copying the Conversation and its node slice on every read/write.
// The *types.Node values themselves are shared, not copied.
type memStore struct {
	mu    sync.Mutex
	convs map[types.ConversationID]*types.Conversation
}

func newMemStore() *memStore {
	return &memStore{convs: map[types.ConversationID]*types.Conversation{}}
}

func cloneConv(c *types.Conversation) *types.Conversation {
	cp := *c
	cp.Nodes = append([]*types.Node(nil), c.Nodes...)
	return &cp
}

func (m *memStore) ListConversations(_ context.Context) ([]types.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ConversationSummary
	for _, c := range m.convs {
		out = append(out, types.ConversationSummary{
			ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, IsActive: c.IsActive, NodeCount: len(c.Nodes),
		})
	}
	return out, nil
}

func (m *memStore) CreateConversation(_ context.Context, name string) (*types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := types.NewConversationID()
	g := graph.New(id)
	root := g.InitRoot(time.Now())
	conv := &types.Conversation{ID: id, Name: name, CreatedAt: time.Now(), CurrentNodeID: root.ID, Nodes: g.Nodes()}
	m.convs[id] = cloneConv(conv)
	return cloneConv(conv), nil
}

func (m *memStore) LoadConversation(_ context.Context, id types.ConversationID) (*types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneConv(c), nil
}

func (m *memStore) SaveConversation(_ context.Context, conv *types.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[conv.ID] = cloneConv(conv)
	return nil
}

func (m *memStore) DeleteConversation(_ context.Context, id types.ConversationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.convs, id)
	return nil
}

func (m *memStore) RenameConversation(_ context.Context, id types.ConversationID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.Name = name
	return nil
}

func (m *memStore) SetActive(_ context.Context, id types.ConversationID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (m *memStore) Search(_ context.Context, query string) ([]types.SearchResult, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

var _ storage.Store = (*memStore)(nil)
