package forkydb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/forkyai/forky/internal/graph"
	"github.com/forkyai/forky/internal/storage"
	"github.com/forkyai/forky/internal/types"
)

// SQLStore implements storage.Store over database/sql against either an
// embedded dolt database or a standalone dolt sql-server (see open.go).
type SQLStore struct {
	db *sql.DB
}

var _ storage.Store = (*SQLStore)(nil)

func (s *SQLStore) Close() error { return s.db.Close() }

// ListConversations implements storage.Store.
func (s *SQLStore) ListConversations(ctx context.Context) ([]types.ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.created_at, c.is_active, COUNT(n.id)
		FROM conversations c
		LEFT JOIN nodes n ON n.conversation_id = c.id
		GROUP BY c.id, c.name, c.created_at, c.is_active
		ORDER BY c.created_at ASC`)
	if err != nil {
		return nil, wrapQueryError("list_conversations", err)
	}
	defer rows.Close()

	var out []types.ConversationSummary
	for rows.Next() {
		var cs types.ConversationSummary
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.CreatedAt, &cs.IsActive, &cs.NodeCount); err != nil {
			return nil, wrapScanError("list_conversations", err)
		}
		out = append(out, cs)
	}
	return out, wrapQueryError("list_conversations", rows.Err())
}

// CreateConversation implements storage.Store: builds a fresh graph with
// just a root node and persists it.
func (s *SQLStore) CreateConversation(ctx context.Context, name string) (*types.Conversation, error) {
	g := graph.New(types.NewConversationID())
	g.InitRoot(nowFunc())

	conv := &types.Conversation{
		ID:            g.ConversationID,
		Name:          name,
		CreatedAt:     nowFunc(),
		IsActive:      false,
		CurrentNodeID: g.CurrentNodeID,
		Nodes:         g.Nodes(),
	}
	if err := s.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// LoadConversation implements storage.Store, validating the reconstructed
// graph before returning it so a corrupt row set surfaces as CorruptStore
// rather than a panic deep in a query.
func (s *SQLStore) LoadConversation(ctx context.Context, id types.ConversationID) (*types.Conversation, error) {
	var conv types.Conversation
	conv.ID = id
	row := s.db.QueryRowContext(ctx, `
		SELECT name, created_at, is_active, current_node_id FROM conversations WHERE id = ?`, id)
	if err := row.Scan(&conv.Name, &conv.CreatedAt, &conv.IsActive, &conv.CurrentNodeID); err != nil {
		return nil, wrapDBError("load_conversation", err)
	}

	nodes, err := s.loadNodes(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Nodes = nodes

	g := graph.FromNodes(id, conv.CurrentNodeID, nodes)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("load_conversation: %w", err)
	}

	return &conv, nil
}

func (s *SQLStore) loadNodes(ctx context.Context, id types.ConversationID) ([]*types.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at, branch_name, merge_metadata_json, attachments_json
		FROM nodes WHERE conversation_id = ?`, id)
	if err != nil {
		return nil, wrapQueryError("load_conversation.nodes", err)
	}
	defer rows.Close()

	byID := map[types.NodeID]*types.Node{}
	var order []types.NodeID
	for rows.Next() {
		var n types.Node
		var mergeJSON, attachJSON sql.NullString
		if err := rows.Scan(&n.ID, &n.Role, &n.Content, &n.CreatedAt, &n.BranchName, &mergeJSON, &attachJSON); err != nil {
			return nil, wrapScanError("load_conversation.nodes", err)
		}
		if mergeJSON.Valid && mergeJSON.String != "" {
			var meta types.MergeMetadata
			if err := json.Unmarshal([]byte(mergeJSON.String), &meta); err != nil {
				return nil, fmt.Errorf("load_conversation.nodes: decoding merge metadata for %s: %w", n.ID, err)
			}
			n.MergeMetadata = &meta
		}
		if attachJSON.Valid && attachJSON.String != "" {
			if err := json.Unmarshal([]byte(attachJSON.String), &n.Attachments); err != nil {
				return nil, fmt.Errorf("load_conversation.nodes: decoding attachments for %s: %w", n.ID, err)
			}
		}
		byID[n.ID] = &n
		order = append(order, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError("load_conversation.nodes", err)
	}

	if err := s.attachParents(ctx, order, byID); err != nil {
		return nil, err
	}

	out := make([]*types.Node, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

func (s *SQLStore) attachParents(ctx context.Context, ids []types.NodeID, byID map[types.NodeID]*types.Node) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT node_id, parent_id, ordinal FROM node_parents WHERE node_id IN (%s) ORDER BY node_id, ordinal`,
		strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return wrapQueryError("load_conversation.node_parents", err)
	}
	defer rows.Close()

	type parentRow struct {
		nodeID   types.NodeID
		parentID types.NodeID
		ordinal  int
	}
	var parents []parentRow
	for rows.Next() {
		var p parentRow
		if err := rows.Scan(&p.nodeID, &p.parentID, &p.ordinal); err != nil {
			return wrapScanError("load_conversation.node_parents", err)
		}
		parents = append(parents, p)
	}
	if err := rows.Err(); err != nil {
		return wrapQueryError("load_conversation.node_parents", err)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i].ordinal < parents[j].ordinal })
	for _, p := range parents {
		n := byID[p.nodeID]
		n.ParentIDs = append(n.ParentIDs, p.parentID)
	}
	return nil
}

// SaveConversation implements storage.Store: replaces the conversation's
// full row set atomically in one transaction (Forky never persists partial
// node sets — a save either fully lands or leaves the prior state intact).
func (s *SQLStore) SaveConversation(ctx context.Context, conv *types.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapTransactionError("save_conversation.begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM node_parents WHERE node_id IN (SELECT id FROM nodes WHERE conversation_id = ?)`, conv.ID); err != nil {
		return wrapExecError("save_conversation.clear_parents", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE conversation_id = ?`, conv.ID); err != nil {
		return wrapExecError("save_conversation.clear_nodes", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, name, created_at, is_active, current_node_id)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), is_active = VALUES(is_active), current_node_id = VALUES(current_node_id)`,
		conv.ID, conv.Name, conv.CreatedAt, conv.IsActive, conv.CurrentNodeID)
	if err != nil {
		return wrapExecError("save_conversation.upsert", err)
	}

	for _, n := range conv.Nodes {
		var mergeJSON, attachJSON []byte
		if n.MergeMetadata != nil {
			mergeJSON, err = json.Marshal(n.MergeMetadata)
			if err != nil {
				return fmt.Errorf("save_conversation: encoding merge metadata for %s: %w", n.ID, err)
			}
		}
		if len(n.Attachments) > 0 {
			attachJSON, err = json.Marshal(n.Attachments)
			if err != nil {
				return fmt.Errorf("save_conversation: encoding attachments for %s: %w", n.ID, err)
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO nodes (id, conversation_id, role, content, created_at, branch_name, merge_metadata_json, attachments_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, conv.ID, n.Role, n.Content, n.CreatedAt, n.BranchName, nullableString(mergeJSON), nullableString(attachJSON))
		if err != nil {
			return wrapExecError("save_conversation.insert_node", err)
		}
		for ordinal, parentID := range n.ParentIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO node_parents (node_id, parent_id, ordinal) VALUES (?, ?, ?)`,
				n.ID, parentID, ordinal); err != nil {
				return wrapExecError("save_conversation.insert_parent", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapTransactionError("save_conversation.commit", err)
	}
	return nil
}

// DeleteConversation implements storage.Store.
func (s *SQLStore) DeleteConversation(ctx context.Context, id types.ConversationID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapTransactionError("delete_conversation.begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM node_parents WHERE node_id IN (SELECT id FROM nodes WHERE conversation_id = ?)`, id); err != nil {
		return wrapExecError("delete_conversation.parents", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE conversation_id = ?`, id); err != nil {
		return wrapExecError("delete_conversation.nodes", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return wrapExecError("delete_conversation.conversation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete_conversation: %w", storage.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return wrapTransactionError("delete_conversation.commit", err)
	}
	return nil
}

// RenameConversation implements storage.Store.
func (s *SQLStore) RenameConversation(ctx context.Context, id types.ConversationID, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE conversations SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return wrapExecError("rename_conversation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rename_conversation: %w", storage.ErrNotFound)
	}
	return nil
}

// SetActive implements storage.Store, used by load_conversation to mark a
// conversation active for CLI use (spec §6.1).
func (s *SQLStore) SetActive(ctx context.Context, id types.ConversationID, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE conversations SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return wrapExecError("set_active", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set_active: %w", storage.ErrNotFound)
	}
	return nil
}

// Search implements storage.Store with a substring match over node content,
// joined back to its owning conversation.
func (s *SQLStore) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, n.id, n.role, n.content
		FROM nodes n
		JOIN conversations c ON c.id = n.conversation_id
		WHERE LOWER(n.content) LIKE ?
		ORDER BY n.created_at DESC`,
		"%"+strings.ToLower(query)+"%")
	if err != nil {
		return nil, wrapQueryError("search", err)
	}
	defer rows.Close()

	var out []types.SearchResult
	for rows.Next() {
		var r types.SearchResult
		var content string
		if err := rows.Scan(&r.ConversationID, &r.ConversationName, &r.NodeID, &r.Role, &content); err != nil {
			return nil, wrapScanError("search", err)
		}
		r.Snippet = snippet(content, query)
		out = append(out, r)
	}
	return out, wrapQueryError("search", rows.Err())
}

func snippet(content, query string) string {
	const radius = 60
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(content) > 2*radius {
			return content[:2*radius] + "…"
		}
		return content
	}
	start := idx - radius
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + radius
	if end > len(content) {
		end = len(content)
	}
	out := content[start:end]
	if start > 0 {
		out = "…" + out
	}
	if end < len(content) {
		out = out + "…"
	}
	return out
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// nowFunc is overridden in tests that need deterministic timestamps.
var nowFunc = time.Now
