// Package service implements ConversationService, the façade every
// external surface (cmd/forky, and any future HTTP layer) drives (spec
// §6.1). It owns the per-conversation mutex registry and wires
// storage.Store, internal/graph, internal/summarizer, internal/merge and
// internal/modelclient together behind one call surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/forkyai/forky/internal/forkyerr"
	"github.com/forkyai/forky/internal/graph"
	"github.com/forkyai/forky/internal/merge"
	"github.com/forkyai/forky/internal/modelclient"
	"github.com/forkyai/forky/internal/storage"
	"github.com/forkyai/forky/internal/summarizer"
	"github.com/forkyai/forky/internal/types"
)

var tracer = otel.Tracer("github.com/forkyai/forky/internal/service")
var meter = otel.Meter("github.com/forkyai/forky/internal/service")

// chatCounter, mergeCounter, and busyCounter count operations for
// dashboards; each is created at package init from the global meter,
// before internal/telemetry.Setup may replace the global MeterProvider.
func mustInt64Counter(name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		// A counter name collision or invalid description is a
		// programming error, not a runtime condition to recover from.
		panic(err)
	}
	return c
}

var (
	chatCounter  = mustInt64Counter("forky.chats", "number of chat messages sent")
	mergeCounter = mustInt64Counter("forky.merges", "number of branch merges committed")
	busyCounter  = mustInt64Counter("forky.lock_busy", "number of operations that timed out waiting for a conversation lock")
)

// defaultBusyDeadline bounds how long an operation waits for a
// conversation's lock before surfacing Busy (spec §5, §7).
const defaultBusyDeadline = 5 * time.Second

// ConversationService implements every operation of spec §6.1.
type ConversationService struct {
	store      storage.Store
	client     modelclient.ModelClient
	merge      *merge.Executor
	summarizer *summarizer.Summarizer
	model      string

	busyDeadline time.Duration

	mu    sync.Mutex
	locks map[types.ConversationID]chan struct{}
}

// Option configures a ConversationService.
type Option func(*ConversationService)

// WithBusyDeadline overrides how long a lock acquisition waits before
// returning forkyerr.KindBusy.
func WithBusyDeadline(d time.Duration) Option {
	return func(s *ConversationService) { s.busyDeadline = d }
}

// New builds a ConversationService over the given Store and ModelClient,
// targeting the given model for both chat completions and summarization.
func New(store storage.Store, client modelclient.ModelClient, model string, opts ...Option) *ConversationService {
	s := &ConversationService{
		store:        store,
		client:       client,
		summarizer:   summarizer.New(model),
		model:        model,
		busyDeadline: defaultBusyDeadline,
		locks:        map[types.ConversationID]chan struct{}{},
	}
	s.merge = merge.New(s.summarizer)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockFor returns (creating if needed) the binary semaphore guarding id.
func (s *ConversationService) lockFor(id types.ConversationID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		l <- struct{}{}
		s.locks[id] = l
	}
	return l
}

// acquire takes the per-conversation lock, failing with KindBusy if it is
// still held after busyDeadline (spec §5/§7).
func (s *ConversationService) acquire(ctx context.Context, id types.ConversationID) (func(), error) {
	l := s.lockFor(id)
	timer := time.NewTimer(s.busyDeadline)
	defer timer.Stop()
	select {
	case <-l:
		return func() { l <- struct{}{} }, nil
	case <-timer.C:
		busyCounter.Add(ctx, 1)
		return nil, forkyerr.New(forkyerr.KindBusy, "lock", nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ListConversations implements spec §6.1.
func (s *ConversationService) ListConversations(ctx context.Context) ([]types.ConversationSummary, error) {
	ctx, span := tracer.Start(ctx, "service.list_conversations")
	defer span.End()
	return s.store.ListConversations(ctx)
}

// CreateConversation implements spec §6.1.
func (s *ConversationService) CreateConversation(ctx context.Context, name string) (types.ConversationID, error) {
	ctx, span := tracer.Start(ctx, "service.create_conversation")
	defer span.End()
	conv, err := s.store.CreateConversation(ctx, name)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

// DeleteConversation implements spec §6.1.
func (s *ConversationService) DeleteConversation(ctx context.Context, id types.ConversationID) error {
	ctx, span := tracer.Start(ctx, "service.delete_conversation", trace.WithAttributes(attribute.String("conversation_id", string(id))))
	defer span.End()
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	return translateStoreErr("delete_conversation", s.store.DeleteConversation(ctx, id))
}

// RenameConversation implements spec §6.1.
func (s *ConversationService) RenameConversation(ctx context.Context, id types.ConversationID, name string) error {
	ctx, span := tracer.Start(ctx, "service.rename_conversation")
	defer span.End()
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	return translateStoreErr("rename_conversation", s.store.RenameConversation(ctx, id, name))
}

// LoadConversation implements spec §6.1, marking the conversation active.
func (s *ConversationService) LoadConversation(ctx context.Context, id types.ConversationID) (*types.Conversation, error) {
	ctx, span := tracer.Start(ctx, "service.load_conversation")
	defer span.End()
	conv, err := s.store.LoadConversation(ctx, id)
	if err != nil {
		return nil, translateStoreErr("load_conversation", err)
	}
	if err := s.store.SetActive(ctx, id, true); err != nil {
		return nil, translateStoreErr("set_active", err)
	}
	conv.IsActive = true
	return conv, nil
}

// translateStoreErr bridges the storage package's sentinel errors onto the
// stable forkyerr.Kind taxonomy (§7) so callers branching on forkyerr.KindOf
// see UnknownConversation rather than having to know about storage.ErrNotFound.
func translateStoreErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return forkyerr.New(forkyerr.KindUnknownConversation, op, err)
	}
	return err
}

// loadGraph loads a conversation and reconstructs its validated graph.
func (s *ConversationService) loadGraph(ctx context.Context, id types.ConversationID) (*types.Conversation, *graph.Graph, error) {
	conv, err := s.store.LoadConversation(ctx, id)
	if err != nil {
		return nil, nil, translateStoreErr("load_conversation", err)
	}
	g := graph.FromNodes(id, conv.CurrentNodeID, conv.Nodes)
	if err := g.Validate(); err != nil {
		return nil, nil, fmt.Errorf("service: %w", err)
	}
	return conv, g, nil
}

// GetGraph implements spec §6.1.
func (s *ConversationService) GetGraph(ctx context.Context, id types.ConversationID) (*types.GraphView, error) {
	ctx, span := tracer.Start(ctx, "service.get_graph")
	defer span.End()
	_, g, err := s.loadGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &types.GraphView{CurrentNodeID: g.CurrentNodeID}
	for _, n := range g.Nodes() {
		view.Nodes = append(view.Nodes, types.NodeView{
			ID:         n.ID,
			Role:       n.Role,
			Content:    n.Content,
			ParentIDs:  n.ParentIDs,
			BranchName: n.BranchName,
			IsCurrent:  n.ID == g.CurrentNodeID,
		})
	}
	return view, nil
}

// GetHistory implements spec §6.1.
func (s *ConversationService) GetHistory(ctx context.Context, id types.ConversationID) ([]*types.Node, error) {
	ctx, span := tracer.Start(ctx, "service.get_history")
	defer span.End()
	_, g, err := s.loadGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.History(g.CurrentNodeID)
}

// Checkout implements spec §6.1.
func (s *ConversationService) Checkout(ctx context.Context, id types.ConversationID, identifier string) (types.NodeID, error) {
	ctx, span := tracer.Start(ctx, "service.checkout")
	defer span.End()
	release, err := s.acquire(ctx, id)
	if err != nil {
		return "", err
	}
	defer release()

	conv, g, err := s.loadGraph(ctx, id)
	if err != nil {
		return "", err
	}
	target, err := g.Checkout(identifier)
	if err != nil {
		return "", err
	}
	conv.CurrentNodeID = target
	if err := s.store.SaveConversation(ctx, conv); err != nil {
		return "", err
	}
	return target, nil
}

// Fork implements spec §6.1.
func (s *ConversationService) Fork(ctx context.Context, id types.ConversationID, branchName string) (types.NodeID, error) {
	ctx, span := tracer.Start(ctx, "service.fork")
	defer span.End()
	release, err := s.acquire(ctx, id)
	if err != nil {
		return "", err
	}
	defer release()

	conv, g, err := s.loadGraph(ctx, id)
	if err != nil {
		return "", err
	}
	marker, err := g.Fork(g.CurrentNodeID, branchName, time.Now())
	if err != nil {
		return "", err
	}
	conv.Nodes = g.Nodes()
	conv.CurrentNodeID = g.CurrentNodeID
	if err := s.store.SaveConversation(ctx, conv); err != nil {
		return "", err
	}
	return marker.ID, nil
}

// CheckMergeEligibility implements spec §6.1.
func (s *ConversationService) CheckMergeEligibility(ctx context.Context, id types.ConversationID, a, b types.NodeID) (merge.Eligibility, error) {
	ctx, span := tracer.Start(ctx, "service.check_merge_eligibility")
	defer span.End()
	_, g, err := s.loadGraph(ctx, id)
	if err != nil {
		return merge.Eligibility{}, err
	}
	return merge.CheckEligibility(g, a, b), nil
}

// MergeBranches implements spec §6.1: merges targetID into the
// conversation's current node.
func (s *ConversationService) MergeBranches(ctx context.Context, id types.ConversationID, targetID types.NodeID, mergePrompt string) (*merge.Result, error) {
	ctx, span := tracer.Start(ctx, "service.merge_branches")
	defer span.End()
	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	conv, g, err := s.loadGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.merge.Merge(ctx, g, g.CurrentNodeID, targetID, mergePrompt, s.client, s.model)
	if err != nil {
		return nil, err
	}
	mergeCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("has_conflicts", result.HasConflicts)))
	conv.Nodes = g.Nodes()
	conv.CurrentNodeID = g.CurrentNodeID
	if err := s.store.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteNode implements spec §6.1.
func (s *ConversationService) DeleteNode(ctx context.Context, id types.ConversationID, nodeID types.NodeID) error {
	ctx, span := tracer.Start(ctx, "service.delete_node")
	defer span.End()
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	conv, g, err := s.loadGraph(ctx, id)
	if err != nil {
		return err
	}
	if err := g.DeleteNode(nodeID); err != nil {
		return err
	}
	conv.Nodes = g.Nodes()
	conv.CurrentNodeID = g.CurrentNodeID
	return s.store.SaveConversation(ctx, conv)
}

// Search implements spec §6.1.
func (s *ConversationService) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "service.search")
	defer span.End()
	return s.store.Search(ctx, query)
}

// Chat implements spec §6.1: appends a user node, streams the assistant's
// reply, and appends the accumulated reply as a new node. If ctx is
// canceled mid-stream, whatever text has been accumulated so far is still
// committed as the assistant node — partial content survives cancellation,
// it is never discarded.
func (s *ConversationService) Chat(ctx context.Context, id types.ConversationID, message string, model string, attachments []types.Attachment) (<-chan types.ChatChunk, error) {
	spanCtx, span := tracer.Start(ctx, "service.chat")

	release, err := s.acquire(spanCtx, id)
	if err != nil {
		span.End()
		return nil, err
	}

	conv, g, err := s.loadGraph(spanCtx, id)
	if err != nil {
		release()
		span.End()
		return nil, err
	}

	userNode, err := g.Append(g.CurrentNodeID, types.RoleUser, message, time.Now())
	if err != nil {
		release()
		span.End()
		return nil, err
	}
	userNode.Attachments = attachments
	chatCounter.Add(spanCtx, 1)

	history, err := g.History(userNode.ID)
	if err != nil {
		release()
		span.End()
		return nil, err
	}

	if model == "" {
		model = s.model
	}
	upstream, err := s.client.Stream(spanCtx, modelclient.FromNodes(history), model)
	if err != nil {
		release()
		span.End()
		return nil, err
	}

	out := make(chan types.ChatChunk)
	go func() {
		defer close(out)
		defer span.End()
		defer release()

		var content string
		for chunk := range upstream {
			if chunk.Text != "" {
				content += chunk.Text
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
			}
			if chunk.Done {
				break
			}
		}

		assistant, err := g.Append(userNode.ID, types.RoleAssistant, content, time.Now())
		if err != nil {
			return
		}
		conv.Nodes = g.Nodes()
		conv.CurrentNodeID = assistant.ID
		// Use context.Background for the final save: a canceled caller
		// context must not prevent the accumulated reply from landing.
		if saveErr := s.store.SaveConversation(context.Background(), conv); saveErr != nil {
			select {
			case out <- types.ChatChunk{Err: saveErr, Done: true}:
			default:
			}
		}
	}()

	return out, nil
}
