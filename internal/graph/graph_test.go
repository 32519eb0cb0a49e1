package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkyai/forky/internal/forkyerr"
	"github.com/forkyai/forky/internal/types"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	g := New(types.NewConversationID())
	g.InitRoot(time.Now())
	return g
}

// TestLinearAppend implements scenario S1 of spec §8.
func TestLinearAppend(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID

	hi, err := g.Append(root, types.RoleUser, "hi", time.Now().Add(time.Millisecond))
	require.NoError(t, err)

	hello, err := g.Append(hi.ID, types.RoleAssistant, "hello", time.Now().Add(2*time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, hello.ID, g.CurrentNodeID)

	hist, err := g.History(g.CurrentNodeID)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, types.RoleSystem, hist[0].Role)
	assert.Equal(t, "hi", hist[1].Content)
	assert.Equal(t, "hello", hist[2].Content)
}

// TestForkAndCheckout implements scenario S2 of spec §8.
func TestForkAndCheckout(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()

	hi, err := g.Append(root, types.RoleUser, "hi", now.Add(time.Millisecond))
	require.NoError(t, err)
	hello, err := g.Append(hi.ID, types.RoleAssistant, "hello", now.Add(2*time.Millisecond))
	require.NoError(t, err)

	_, err = g.Fork(root, "alt", now.Add(3*time.Millisecond))
	require.NoError(t, err)

	other, err := g.Append(g.CurrentNodeID, types.RoleUser, "other", now.Add(4*time.Millisecond))
	require.NoError(t, err)
	reply, err := g.Append(other.ID, types.RoleAssistant, "reply", now.Add(5*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, reply.ID, g.CurrentNodeID)

	altHist, err := g.History(g.CurrentNodeID)
	require.NoError(t, err)
	for _, n := range altHist {
		assert.False(t, n.IsForkMarker(), "fork markers must be filtered from history")
	}

	resolved, err := g.Checkout(string(hello.ID))
	require.NoError(t, err)
	assert.Equal(t, hello.ID, resolved)
	assert.Equal(t, hello.ID, g.CurrentNodeID)

	hist, err := g.History(g.CurrentNodeID)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "hello", hist[2].Content)
}

func TestCheckoutByBranchName(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()

	_, err := g.Fork(root, "alt", now.Add(time.Millisecond))
	require.NoError(t, err)
	tip, err := g.Append(g.CurrentNodeID, types.RoleUser, "on alt", now.Add(2*time.Millisecond))
	require.NoError(t, err)

	_, err = g.Checkout(string(g.RootID))
	require.NoError(t, err)

	resolved, err := g.Checkout("alt")
	require.NoError(t, err)
	assert.Equal(t, tip.ID, resolved)
}

func TestCheckoutUnknownIdentifier(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Checkout("does-not-exist")
	require.Error(t, err)
	kind, ok := forkyerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, forkyerr.KindUnknownIdentifier, kind)
}

func TestAppendInvalidParent(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Append("missing", types.RoleUser, "x", time.Now())
	require.Error(t, err)
	kind, _ := forkyerr.KindOf(err)
	assert.Equal(t, forkyerr.KindInvalidParent, kind)
}

// TestDeleteWithInheritance implements scenario S6 of spec §8.
func TestDeleteWithInheritance(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()

	a, err := g.Append(root, types.RoleUser, "A", now.Add(time.Millisecond))
	require.NoError(t, err)
	b, err := g.Append(a.ID, types.RoleAssistant, "B", now.Add(2*time.Millisecond))
	require.NoError(t, err)
	c, err := g.Append(b.ID, types.RoleUser, "C", now.Add(3*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, c.ID, g.CurrentNodeID)

	require.NoError(t, g.DeleteNode(b.ID))

	assert.False(t, g.Exists(b.ID))
	cNode, ok := g.Get(c.ID)
	require.True(t, ok)
	assert.Equal(t, []types.NodeID{a.ID}, cNode.ParentIDs)
	assert.Equal(t, a.ID, g.CurrentNodeID, "current should reposition to surviving parent of a deleted ancestor")
	require.NoError(t, g.Validate())
}

// TestDeleteNodeRewiresMergeMetadata guards against a merge child left
// pointing at a deleted LeftParentID/RightParentID: both must follow the
// same rewiring as ParentIDs, or History/Validate break permanently.
func TestDeleteNodeRewiresMergeMetadata(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()

	left, err := g.Append(root, types.RoleUser, "left", now.Add(time.Millisecond))
	require.NoError(t, err)
	leftChild, err := g.Append(left.ID, types.RoleAssistant, "left-child", now.Add(2*time.Millisecond))
	require.NoError(t, err)

	g.CurrentNodeID = root
	right, err := g.Append(root, types.RoleUser, "right", now.Add(3*time.Millisecond))
	require.NoError(t, err)

	merged, err := g.CommitMerge(leftChild.ID, right.ID, "merged", types.MergeMetadata{LCAID: root}, now.Add(4*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, g.DeleteNode(leftChild.ID))

	assert.False(t, g.Exists(leftChild.ID))
	mergedNode, ok := g.Get(merged.ID)
	require.True(t, ok)
	assert.Equal(t, left.ID, mergedNode.MergeMetadata.LeftParentID)
	assert.Equal(t, right.ID, mergedNode.MergeMetadata.RightParentID)
	assert.ElementsMatch(t, []types.NodeID{left.ID, right.ID}, mergedNode.ParentIDs)
	require.NoError(t, g.Validate())

	hist, err := g.History(merged.ID)
	require.NoError(t, err)
	assert.Equal(t, "merged", hist[len(hist)-1].Content)
}

// TestDeleteNodeRejectsAmbiguousMergeParent covers the case the rewrite
// above cannot handle: the deleted node is itself a merge node (two
// parents), so there is no single replacement for the merge child's
// LeftParentID/RightParentID.
func TestDeleteNodeRejectsAmbiguousMergeParent(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()

	left, err := g.Append(root, types.RoleUser, "left", now.Add(time.Millisecond))
	require.NoError(t, err)
	g.CurrentNodeID = root
	right, err := g.Append(root, types.RoleUser, "right", now.Add(2*time.Millisecond))
	require.NoError(t, err)

	innerMerge, err := g.CommitMerge(left.ID, right.ID, "inner", types.MergeMetadata{LCAID: root}, now.Add(3*time.Millisecond))
	require.NoError(t, err)

	g.CurrentNodeID = root
	other, err := g.Append(root, types.RoleUser, "other", now.Add(4*time.Millisecond))
	require.NoError(t, err)

	_, err = g.CommitMerge(innerMerge.ID, other.ID, "outer", types.MergeMetadata{LCAID: root}, now.Add(5*time.Millisecond))
	require.NoError(t, err)

	err = g.DeleteNode(innerMerge.ID)
	require.Error(t, err)
	kind, _ := forkyerr.KindOf(err)
	assert.Equal(t, forkyerr.KindInvalidParent, kind)
	assert.True(t, g.Exists(innerMerge.ID), "rejected delete must leave the graph unchanged")
}

func TestDeleteRootForbidden(t *testing.T) {
	g := newTestGraph(t)
	err := g.DeleteNode(g.RootID)
	require.Error(t, err)
	kind, _ := forkyerr.KindOf(err)
	assert.Equal(t, forkyerr.KindCannotDeleteRoot, kind)
}

func TestDeleteUnknownNode(t *testing.T) {
	g := newTestGraph(t)
	err := g.DeleteNode("missing")
	require.Error(t, err)
	kind, _ := forkyerr.KindOf(err)
	assert.Equal(t, forkyerr.KindUnknownNode, kind)
}

// TestLCA covers property 3 of spec §8: LCA is in the intersection of
// ancestor sets and has no closer common ancestor.
func TestLCA(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()

	l, err := g.Append(root, types.RoleUser, "base", now.Add(time.Millisecond))
	require.NoError(t, err)

	leftTip := l
	for i := 0; i < 2; i++ {
		leftTip, err = g.Append(leftTip.ID, types.RoleAssistant, "left", now.Add(time.Duration(2+i)*time.Millisecond))
		require.NoError(t, err)
	}

	_, err = g.Checkout(string(l.ID))
	require.NoError(t, err)
	rightTip := l
	for i := 0; i < 2; i++ {
		rightTip, err = g.Append(rightTip.ID, types.RoleAssistant, "right", now.Add(time.Duration(10+i)*time.Millisecond))
		require.NoError(t, err)
	}

	lca, ok := g.LCA(leftTip.ID, rightTip.ID)
	require.True(t, ok)
	assert.Equal(t, l.ID, lca)
}

func TestLCASymmetric(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()
	a, err := g.Append(root, types.RoleUser, "a", now.Add(time.Millisecond))
	require.NoError(t, err)
	b, err := g.Append(root, types.RoleUser, "b", now.Add(2*time.Millisecond))
	require.NoError(t, err)

	l1, ok1 := g.LCA(a.ID, b.ID)
	l2, ok2 := g.LCA(b.ID, a.ID)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, l1, l2)
}

// TestIsAncestorAcyclic covers property 2 of spec §8.
func TestIsAncestorAcyclic(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()
	a, err := g.Append(root, types.RoleUser, "a", now.Add(time.Millisecond))
	require.NoError(t, err)
	b, err := g.Append(a.ID, types.RoleUser, "b", now.Add(2*time.Millisecond))
	require.NoError(t, err)

	assert.True(t, g.IsAncestor(a.ID, b.ID))
	assert.False(t, g.IsAncestor(b.ID, a.ID), "acyclicity: b cannot be an ancestor of its own ancestor")
}

// TestHistoryFollowsLeftParentThroughMerge covers property 5 of spec §8.
func TestHistoryFollowsLeftParentThroughMerge(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()

	base, err := g.Append(root, types.RoleUser, "base", now.Add(time.Millisecond))
	require.NoError(t, err)
	left, err := g.Append(base.ID, types.RoleAssistant, "left", now.Add(2*time.Millisecond))
	require.NoError(t, err)

	_, err = g.Checkout(string(base.ID))
	require.NoError(t, err)
	right, err := g.Append(base.ID, types.RoleAssistant, "right", now.Add(3*time.Millisecond))
	require.NoError(t, err)

	merged, err := g.CommitMerge(left.ID, right.ID, "merged", types.MergeMetadata{LCAID: base.ID}, now.Add(4*time.Millisecond))
	require.NoError(t, err)

	leftHist, err := g.History(left.ID)
	require.NoError(t, err)
	mergeHist, err := g.History(merged.ID)
	require.NoError(t, err)

	require.Len(t, mergeHist, len(leftHist)+1)
	for i := range leftHist {
		assert.Equal(t, leftHist[i].ID, mergeHist[i].ID)
	}
	assert.Equal(t, merged.ID, mergeHist[len(mergeHist)-1].ID)
}

func TestValidateDetectsMissingRoot(t *testing.T) {
	g := New(types.NewConversationID())
	require.Error(t, g.Validate())
}

func TestTopoOrderRespectsParentage(t *testing.T) {
	g := newTestGraph(t)
	root := g.CurrentNodeID
	now := time.Now()
	a, err := g.Append(root, types.RoleUser, "a", now.Add(time.Millisecond))
	require.NoError(t, err)
	_, err = g.Append(a.ID, types.RoleUser, "b", now.Add(2*time.Millisecond))
	require.NoError(t, err)

	order := g.TopoOrder()
	pos := map[types.NodeID]int{}
	for i, n := range order {
		pos[n.ID] = i
	}
	for _, n := range order {
		for _, p := range n.ParentIDs {
			assert.Less(t, pos[p], pos[n.ID])
		}
	}
}
