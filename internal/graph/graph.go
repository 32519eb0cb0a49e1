// Package graph implements the in-memory conversation DAG: insertion,
// deletion-with-inheritance, ancestor/descendant queries, lowest common
// ancestor, history linearization, and the checkout pointer (spec §4.2).
//
// The shape is an adjacency map, the same idiom the pack uses for git-like
// commit graphs (see stefanom-schmux's internal/workspace/git_graph.go):
// each node knows its parents (Node.ParentIDs); Graph additionally
// maintains the reverse edge (children) for descendant queries.
package graph

import (
	"sort"
	"time"

	"github.com/forkyai/forky/internal/forkyerr"
	"github.com/forkyai/forky/internal/types"
)

// Graph is the in-memory DAG for a single conversation.
type Graph struct {
	ConversationID types.ConversationID
	RootID         types.NodeID
	CurrentNodeID  types.NodeID

	nodes    map[types.NodeID]*types.Node
	children map[types.NodeID][]types.NodeID
}

// New builds an empty graph for a fresh conversation.
func New(convID types.ConversationID) *Graph {
	return &Graph{
		ConversationID: convID,
		nodes:          map[types.NodeID]*types.Node{},
		children:       map[types.NodeID][]types.NodeID{},
	}
}

// FromNodes rebuilds a Graph from a flat node list, as loaded from storage.
// It does not itself validate invariants; callers (internal/storage) run
// Validate after reconstruction so a corrupt load surfaces as CorruptStore
// rather than a panic deep in a query.
func FromNodes(convID types.ConversationID, current types.NodeID, nodes []*types.Node) *Graph {
	g := New(convID)
	g.CurrentNodeID = current
	for _, n := range nodes {
		g.nodes[n.ID] = n
		if n.IsRoot() {
			g.RootID = n.ID
		}
	}
	for _, n := range nodes {
		for _, p := range n.ParentIDs {
			g.children[p] = append(g.children[p], n.ID)
		}
	}
	return g
}

// Nodes returns every node in the graph in no particular order.
func (g *Graph) Nodes() []*types.Node {
	out := make([]*types.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Get returns the node with the given id, or (nil, false).
func (g *Graph) Get(id types.NodeID) (*types.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Exists reports whether id names a node in this graph.
func (g *Graph) Exists(id types.NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Children returns the direct children of id.
func (g *Graph) Children(id types.NodeID) []types.NodeID {
	return append([]types.NodeID(nil), g.children[id]...)
}

func (g *Graph) insert(n *types.Node) {
	g.nodes[n.ID] = n
	for _, p := range n.ParentIDs {
		g.children[p] = append(g.children[p], n.ID)
	}
	if n.IsRoot() {
		g.RootID = n.ID
	}
}

// InitRoot creates and inserts the conversation's root system node, and
// points current at it. Only valid on an empty graph.
func (g *Graph) InitRoot(now time.Time) *types.Node {
	root := &types.Node{
		ID:        types.NewNodeID(),
		Role:      types.RoleSystem,
		Content:   types.RootContent,
		ParentIDs: nil,
		CreatedAt: now,
	}
	g.insert(root)
	g.CurrentNodeID = root.ID
	return root
}

// Append creates a new node with a single parent and moves current to it.
// Fails with InvalidParent if parentID does not exist.
func (g *Graph) Append(parentID types.NodeID, role types.Role, content string, now time.Time) (*types.Node, error) {
	if !g.Exists(parentID) {
		return nil, forkyerr.New(forkyerr.KindInvalidParent, "append", nil)
	}
	n := &types.Node{
		ID:        types.NewNodeID(),
		Role:      role,
		Content:   content,
		ParentIDs: []types.NodeID{parentID},
		CreatedAt: now,
	}
	g.insert(n)
	g.CurrentNodeID = n.ID
	return n, nil
}

// Fork inserts a <FORK> system marker as a child of fromID, named
// branchName, and moves current to it.
func (g *Graph) Fork(fromID types.NodeID, branchName string, now time.Time) (*types.Node, error) {
	if !g.Exists(fromID) {
		return nil, forkyerr.New(forkyerr.KindInvalidParent, "fork", nil)
	}
	n := &types.Node{
		ID:         types.NewNodeID(),
		Role:       types.RoleSystem,
		Content:    types.ForkContent,
		ParentIDs:  []types.NodeID{fromID},
		CreatedAt:  now,
		BranchName: branchName,
	}
	g.insert(n)
	g.CurrentNodeID = n.ID
	return n, nil
}

// CommitMerge inserts a two-parent merge node with the given content and
// metadata, and moves current to it. Callers (internal/merge) are
// responsible for having already validated eligibility; CommitMerge enforces
// invariant 5 defensively (two distinct existing parents).
func (g *Graph) CommitMerge(leftID, rightID types.NodeID, content string, meta types.MergeMetadata, now time.Time) (*types.Node, error) {
	if leftID == rightID {
		return nil, forkyerr.Newf(forkyerr.KindInvalidParent, "commit_merge", "merge parents must be distinct")
	}
	if !g.Exists(leftID) || !g.Exists(rightID) {
		return nil, forkyerr.New(forkyerr.KindInvalidParent, "commit_merge", nil)
	}
	meta.LeftParentID = leftID
	meta.RightParentID = rightID
	n := &types.Node{
		ID:            types.NewNodeID(),
		Role:          types.RoleAssistant,
		Content:       content,
		ParentIDs:     []types.NodeID{leftID, rightID},
		CreatedAt:     now,
		MergeMetadata: &meta,
	}
	g.insert(n)
	g.CurrentNodeID = n.ID
	return n, nil
}

// Ancestors returns A(n): the set of ancestors of n including n itself.
func (g *Graph) Ancestors(id types.NodeID) map[types.NodeID]struct{} {
	visited := map[types.NodeID]struct{}{}
	queue := []types.NodeID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		if n, ok := g.nodes[cur]; ok {
			queue = append(queue, n.ParentIDs...)
		}
	}
	return visited
}

// Descendants returns D(n): the set of descendants of n including n itself.
func (g *Graph) Descendants(id types.NodeID) map[types.NodeID]struct{} {
	visited := map[types.NodeID]struct{}{}
	queue := []types.NodeID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		queue = append(queue, g.children[cur]...)
	}
	return visited
}

// IsAncestor reports whether a is an ancestor of b (a ∈ A(b)).
func (g *Graph) IsAncestor(a, b types.NodeID) bool {
	_, ok := g.Ancestors(b)[a]
	return ok
}

// LCA computes the lowest common ancestor of a and b. Among nodes in
// A(a) ∩ A(b), it returns the one with no descendant also in that
// intersection, tie-broken by highest CreatedAt then lexicographic id.
// Returns ("", false) only if a and b share no ancestor.
func (g *Graph) LCA(a, b types.NodeID) (types.NodeID, bool) {
	aAnc := g.Ancestors(a)
	bAnc := g.Ancestors(b)

	var candidates []types.NodeID
	for id := range aAnc {
		if _, ok := bAnc[id]; ok {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	intersection := make(map[types.NodeID]struct{}, len(candidates))
	for _, id := range candidates {
		intersection[id] = struct{}{}
	}

	var deepest []types.NodeID
	for _, id := range candidates {
		hasDescendantInIntersection := false
		for other := range intersection {
			if other == id {
				continue
			}
			if _, ok := g.Descendants(id)[other]; ok {
				hasDescendantInIntersection = true
				break
			}
		}
		if !hasDescendantInIntersection {
			deepest = append(deepest, id)
		}
	}

	sort.Slice(deepest, func(i, j int) bool {
		ni, nj := g.nodes[deepest[i]], g.nodes[deepest[j]]
		if !ni.CreatedAt.Equal(nj.CreatedAt) {
			return ni.CreatedAt.After(nj.CreatedAt)
		}
		return deepest[i] < deepest[j]
	})
	return deepest[0], true
}

// History linearizes from the root to nodeID: walking parents backward,
// always following the left/primary parent at a merge node, then reversing
// to root-first order. <FORK> markers are filtered from the result.
func (g *Graph) History(nodeID types.NodeID) ([]*types.Node, error) {
	if !g.Exists(nodeID) {
		return nil, forkyerr.New(forkyerr.KindUnknownNode, "history", nil)
	}
	var chain []*types.Node
	cur := nodeID
	for {
		n, ok := g.nodes[cur]
		if !ok {
			return nil, forkyerr.New(forkyerr.KindCorruptStore, "history", nil)
		}
		chain = append(chain, n)
		if n.IsRoot() {
			break
		}
		cur = n.LeftParentID()
		if cur == "" {
			return nil, forkyerr.New(forkyerr.KindCorruptStore, "history", nil)
		}
	}
	// reverse to root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	out := chain[:0:0]
	for _, n := range chain {
		if !n.IsForkMarker() {
			out = append(out, n)
		}
	}
	return out, nil
}

// forkMarkersNamed returns every <FORK> marker with the given branch name.
func (g *Graph) forkMarkersNamed(name string) []*types.Node {
	var out []*types.Node
	for _, n := range g.nodes {
		if n.IsForkMarker() && n.BranchName == name {
			out = append(out, n)
		}
	}
	return out
}

// latestChild returns id's most-recently-created direct child, tie-broken
// by lexicographically-greatest id, or ("", false) if id has no children.
func (g *Graph) latestChild(id types.NodeID) (types.NodeID, bool) {
	kids := g.children[id]
	if len(kids) == 0 {
		return "", false
	}
	best := kids[0]
	for _, k := range kids[1:] {
		bn, kn := g.nodes[best], g.nodes[k]
		if kn.CreatedAt.After(bn.CreatedAt) || (kn.CreatedAt.Equal(bn.CreatedAt) && k > best) {
			best = k
		}
	}
	return best, true
}

// deepestAlongLatest walks from id always taking the latest-created child,
// stopping at a leaf.
func (g *Graph) deepestAlongLatest(id types.NodeID) types.NodeID {
	cur := id
	for {
		next, ok := g.latestChild(cur)
		if !ok {
			return cur
		}
		cur = next
	}
}

// Checkout resolves identifier (a node id or a branch name) and moves
// current to it, returning the resolved node id.
func (g *Graph) Checkout(identifier string) (types.NodeID, error) {
	if g.Exists(types.NodeID(identifier)) {
		g.CurrentNodeID = types.NodeID(identifier)
		return g.CurrentNodeID, nil
	}

	markers := g.forkMarkersNamed(identifier)
	if len(markers) == 0 {
		return "", forkyerr.New(forkyerr.KindUnknownIdentifier, "checkout", nil)
	}
	sort.Slice(markers, func(i, j int) bool {
		if !markers[i].CreatedAt.Equal(markers[j].CreatedAt) {
			return markers[i].CreatedAt.After(markers[j].CreatedAt)
		}
		return markers[i].ID > markers[j].ID
	})
	marker := markers[0]
	target := g.deepestAlongLatest(marker.ID)
	g.CurrentNodeID = target
	return target, nil
}

// DeleteNode removes id, rewiring its children onto its own parent set
// (spec §4.2/§4.3). Fails with CannotDeleteRoot for the root. If the
// current pointer is a descendant of id, current is repositioned to id's
// first surviving (ordinal-0) parent before the node is removed. If id is
// the recorded LeftParentID or RightParentID of a merge child, that
// reference is rewired too (to id's sole surviving parent); deleting a
// merge node that is itself some other merge node's recorded parent is
// rejected with InvalidParent since the replacement would be ambiguous.
func (g *Graph) DeleteNode(id types.NodeID) error {
	n, ok := g.nodes[id]
	if !ok {
		return forkyerr.New(forkyerr.KindUnknownNode, "delete_node", nil)
	}
	if n.IsRoot() {
		return forkyerr.New(forkyerr.KindCannotDeleteRoot, "delete_node", nil)
	}

	kids := append([]types.NodeID(nil), g.children[id]...)
	if len(n.ParentIDs) != 1 {
		for _, childID := range kids {
			child := g.nodes[childID]
			if child.IsMerge() && (child.MergeMetadata.LeftParentID == id || child.MergeMetadata.RightParentID == id) {
				return forkyerr.Newf(forkyerr.KindInvalidParent, "delete_node", "deleting %s would leave merge node %s with an ambiguous parent reference", id, childID)
			}
		}
	}

	if _, isDescendant := g.Descendants(id)[g.CurrentNodeID]; isDescendant {
		g.CurrentNodeID = n.ParentIDs[0]
	}

	for _, childID := range kids {
		child := g.nodes[childID]
		if child.IsMerge() && (child.MergeMetadata.LeftParentID == id || child.MergeMetadata.RightParentID == id) {
			replacement := n.ParentIDs[0]
			if child.MergeMetadata.LeftParentID == id {
				child.MergeMetadata.LeftParentID = replacement
			}
			if child.MergeMetadata.RightParentID == id {
				child.MergeMetadata.RightParentID = replacement
			}
		}
		child.ParentIDs = replaceParent(child.ParentIDs, id, n.ParentIDs)
		if len(child.ParentIDs) == 0 {
			return forkyerr.Newf(forkyerr.KindCannotDeleteRoot, "delete_node", "deleting %s would orphan %s", id, childID)
		}
	}

	// Rebuild the children index for id's old parents and the deleted node.
	for _, p := range n.ParentIDs {
		g.children[p] = dedupeIDs(append(removeID(g.children[p], id), kids...))
	}
	delete(g.children, id)
	delete(g.nodes, id)
	return nil
}

func replaceParent(parents []types.NodeID, old types.NodeID, with []types.NodeID) []types.NodeID {
	out := make([]types.NodeID, 0, len(parents)+len(with))
	for _, p := range parents {
		if p == old {
			out = append(out, with...)
			continue
		}
		out = append(out, p)
	}
	return dedupeIDs(out)
}

func removeID(ids []types.NodeID, target types.NodeID) []types.NodeID {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func dedupeIDs(ids []types.NodeID) []types.NodeID {
	seen := map[types.NodeID]struct{}{}
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// TopoOrder returns every node in a topological order (parents before
// children), ties broken by CreatedAt then id for determinism.
func (g *Graph) TopoOrder() []*types.Node {
	indegree := map[types.NodeID]int{}
	for id, n := range g.nodes {
		indegree[id] = len(n.ParentIDs)
	}
	var ready []types.NodeID
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sortIDs := func(ids []types.NodeID) {
		sort.Slice(ids, func(i, j int) bool {
			ni, nj := g.nodes[ids[i]], g.nodes[ids[j]]
			if !ni.CreatedAt.Equal(nj.CreatedAt) {
				return ni.CreatedAt.Before(nj.CreatedAt)
			}
			return ids[i] < ids[j]
		})
	}
	sortIDs(ready)

	var out []*types.Node
	for len(ready) > 0 {
		sortIDs(ready)
		cur := ready[0]
		ready = ready[1:]
		out = append(out, g.nodes[cur])
		for _, child := range g.children[cur] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	return out
}

// Validate checks invariants 1–6 of spec §3 and returns a CorruptStore
// error naming the first violation found, or nil if the graph is sound.
func (g *Graph) Validate() error {
	var roots []types.NodeID
	for id, n := range g.nodes {
		if n.IsRoot() {
			roots = append(roots, id)
		}
		for _, p := range n.ParentIDs {
			if !g.Exists(p) {
				return forkyerr.Newf(forkyerr.KindCorruptStore, "validate", "node %s references missing parent %s", id, p)
			}
		}
		if n.IsMerge() {
			if len(n.ParentIDs) != 2 || n.ParentIDs[0] == n.ParentIDs[1] {
				return forkyerr.Newf(forkyerr.KindCorruptStore, "validate", "merge node %s must have two distinct parents", id)
			}
			if !g.IsAncestor(n.MergeMetadata.LCAID, n.MergeMetadata.LeftParentID) ||
				!g.IsAncestor(n.MergeMetadata.LCAID, n.MergeMetadata.RightParentID) {
				return forkyerr.Newf(forkyerr.KindCorruptStore, "validate", "merge node %s lca is not an ancestor of both parents", id)
			}
		}
		if n.IsForkMarker() && (len(n.ParentIDs) != 1 || n.IsMerge()) {
			return forkyerr.Newf(forkyerr.KindCorruptStore, "validate", "fork marker %s must have exactly one parent and no merge metadata", id)
		}
	}
	if len(roots) != 1 {
		return forkyerr.Newf(forkyerr.KindCorruptStore, "validate", "expected exactly one root, found %d", len(roots))
	}
	if len(g.nodes) > 0 {
		if g.CurrentNodeID == "" || !g.Exists(g.CurrentNodeID) {
			return forkyerr.Newf(forkyerr.KindCorruptStore, "validate", "current_node_id %q does not exist", g.CurrentNodeID)
		}
	}
	for id := range g.nodes {
		for anc := range g.Ancestors(id) {
			if anc == id {
				continue
			}
			if _, cyc := g.Ancestors(anc)[id]; cyc {
				return forkyerr.Newf(forkyerr.KindCorruptStore, "validate", "cycle detected involving %s and %s", id, anc)
			}
		}
	}
	return nil
}
