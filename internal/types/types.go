// Package types defines the data model shared by every Forky component:
// conversations, nodes, state records produced by summarization, and the
// diff/conflict shapes the merge pipeline classifies.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Role tags a node's payload the way a chat message is tagged.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Well-known system payloads.
const (
	RootContent = "Root"
	ForkContent = "<FORK>"
)

// NodeID and ConversationID are opaque, globally unique identifiers.
type NodeID string
type ConversationID string

// NewNodeID and NewConversationID mint fresh opaque identifiers.
func NewNodeID() NodeID                 { return NodeID(uuid.NewString()) }
func NewConversationID() ConversationID { return ConversationID(uuid.NewString()) }

// Attachment is an opaque external reference carried by a node. Forky's core
// never fetches or stores attachment bytes — it only round-trips this
// reference so an outer layer (file-attachment storage, per §1) can resolve it.
type Attachment struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// MergeMetadata is present only on merge nodes (nodes with two parents).
type MergeMetadata struct {
	LCAID         NodeID          `json:"lca_id"`
	LeftParentID  NodeID          `json:"left_parent_id"`
	RightParentID NodeID          `json:"right_parent_id"`
	Conflicts     []ConflictRecord `json:"conflicts"`
}

// Node is an immutable-after-commit record. The only permitted mutation
// after creation is deletion (internal/graph.Graph.DeleteNode), which does
// not alter any field on a surviving node other than its ParentIDs and, on
// a merge child, its MergeMetadata.LeftParentID/RightParentID.
type Node struct {
	ID            NodeID         `json:"id"`
	Role          Role           `json:"role"`
	Content       string         `json:"content"`
	ParentIDs     []NodeID       `json:"parent_ids"`
	CreatedAt     time.Time      `json:"created_at"`
	BranchName    string         `json:"branch_name,omitempty"`
	MergeMetadata *MergeMetadata `json:"merge_metadata,omitempty"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
}

// IsRoot reports whether n is a conversation's root (no parents).
func (n *Node) IsRoot() bool { return len(n.ParentIDs) == 0 }

// IsForkMarker reports whether n is a <FORK> system marker.
func (n *Node) IsForkMarker() bool {
	return n.Role == RoleSystem && n.Content == ForkContent
}

// IsMerge reports whether n carries MergeMetadata (a committed merge node);
// it does not inspect ParentIDs.
func (n *Node) IsMerge() bool { return n.MergeMetadata != nil }

// LeftParentID returns the node's primary-history parent: for a merge node
// this is MergeMetadata.LeftParentID, otherwise the sole parent (or "" for
// the root).
func (n *Node) LeftParentID() NodeID {
	if n.MergeMetadata != nil {
		return n.MergeMetadata.LeftParentID
	}
	if len(n.ParentIDs) == 0 {
		return ""
	}
	return n.ParentIDs[0]
}

// Conversation owns a graph of nodes and a checkout pointer.
type Conversation struct {
	ID              ConversationID `json:"id"`
	Name            string         `json:"name"`
	CreatedAt       time.Time      `json:"created_at"`
	IsActive        bool           `json:"is_active"`
	CurrentNodeID   NodeID         `json:"current_node_id"`
	Nodes           []*Node        `json:"nodes"`
}

// ConversationSummary is the lightweight shape returned by list_conversations.
type ConversationSummary struct {
	ID        ConversationID `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	IsActive  bool           `json:"is_active"`
	NodeCount int            `json:"node_count"`
}

// NodeView is the externally-facing rendering of a node for get_graph.
type NodeView struct {
	ID         NodeID   `json:"id"`
	Role       Role     `json:"role"`
	Content    string   `json:"content"`
	ParentIDs  []NodeID `json:"parent_ids"`
	BranchName string   `json:"branch_name,omitempty"`
	IsCurrent  bool     `json:"is_current"`
}

// GraphView is the return shape of get_graph.
type GraphView struct {
	Nodes         []NodeView `json:"nodes"`
	CurrentNodeID NodeID     `json:"current_node_id"`
}

// StateCategory names one of the four bucketed summary categories.
type StateCategory string

const (
	CategoryFacts          StateCategory = "facts"
	CategoryDecisions      StateCategory = "decisions"
	CategoryOpenQuestions  StateCategory = "open_questions"
	CategoryAssumptions    StateCategory = "assumptions"
)

var AllCategories = []StateCategory{
	CategoryFacts, CategoryDecisions, CategoryOpenQuestions, CategoryAssumptions,
}

// StateRecord is the structured summary of a linearized conversation branch
// produced by StateSummarizer.
type StateRecord struct {
	Facts          []string `json:"facts"`
	Decisions      []string `json:"decisions"`
	OpenQuestions  []string `json:"open_questions"`
	Assumptions    []string `json:"assumptions"`
	Topic          string   `json:"topic"`

	// SummarizationFailed is set when the summarizer exhausted its retry
	// budget on unparseable model output (§4.3). The record's lists are
	// empty and Topic is "unknown" in that case.
	SummarizationFailed bool `json:"summarization_failed,omitempty"`
}

// Category returns the record's items for the named category.
func (s *StateRecord) Category(c StateCategory) []string {
	switch c {
	case CategoryFacts:
		return s.Facts
	case CategoryDecisions:
		return s.Decisions
	case CategoryOpenQuestions:
		return s.OpenQuestions
	case CategoryAssumptions:
		return s.Assumptions
	default:
		return nil
	}
}

// ChangedItem is a before/after pair within a StateDiff category.
type ChangedItem struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// StateDiff holds added/removed/changed items per category between two
// StateRecords.
type StateDiff struct {
	Added   map[StateCategory][]string      `json:"added"`
	Removed map[StateCategory][]string      `json:"removed"`
	Changed map[StateCategory][]ChangedItem `json:"changed"`
}

// NewStateDiff returns an empty, fully-initialized StateDiff.
func NewStateDiff() StateDiff {
	return StateDiff{
		Added:   map[StateCategory][]string{},
		Removed: map[StateCategory][]string{},
		Changed: map[StateCategory][]ChangedItem{},
	}
}

// IsEmpty reports whether the diff contains no changes in any category.
func (d *StateDiff) IsEmpty() bool {
	for _, c := range AllCategories {
		if len(d.Added[c]) > 0 || len(d.Removed[c]) > 0 || len(d.Changed[c]) > 0 {
			return false
		}
	}
	return true
}

// ConflictKind classifies how two branches' diffs overlap.
type ConflictKind string

const (
	ConflictContradicts  ConflictKind = "contradicts"
	ConflictDiverges     ConflictKind = "diverges"
	ConflictBothModified ConflictKind = "both_modified"
)

// ConflictRecord is one detected overlap between two branches' diffs
// against their lowest common ancestor.
type ConflictRecord struct {
	Category  StateCategory `json:"category"`
	LeftItem  string        `json:"left_item"`
	RightItem string        `json:"right_item"`
	Kind      ConflictKind  `json:"kind"`
}

// ChatChunk is one piece of a streamed chat completion.
type ChatChunk struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
	Err  error  `json:"-"`
}

// SearchResult is one hit returned by ConversationService.Search.
type SearchResult struct {
	ConversationID   ConversationID `json:"conversation_id"`
	ConversationName string         `json:"conversation_name"`
	NodeID           NodeID         `json:"node_id"`
	Role             Role           `json:"role"`
	Snippet          string         `json:"snippet"`
}
