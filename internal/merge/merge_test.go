package merge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkyai/forky/internal/forkyerr"
	"github.com/forkyai/forky/internal/graph"
	"github.com/forkyai/forky/internal/modelclient"
	"github.com/forkyai/forky/internal/summarizer"
	"github.com/forkyai/forky/internal/types"
)

// markerFake answers Complete by matching the last message's content against
// a set of markers, rather than FIFO order, since MergeExecutor summarizes
// the lca/left/right histories concurrently via errgroup.
type markerFake struct {
	mu     sync.Mutex
	byLast map[string]string
	deflt  string
}

func (f *markerFake) Complete(_ context.Context, messages []modelclient.Message, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	last := messages[len(messages)-1].Content
	for marker, resp := range f.byLast {
		if strings.Contains(last, marker) {
			return resp, nil
		}
	}
	return f.deflt, nil
}

func (f *markerFake) Stream(_ context.Context, _ []modelclient.Message, _ string) (<-chan types.ChatChunk, error) {
	return nil, fmt.Errorf("not used")
}

func (f *markerFake) AvailableModels(_ context.Context) ([]modelclient.ModelInfo, error) {
	return nil, nil
}

var _ modelclient.ModelClient = (*markerFake)(nil)

func TestCheckEligibilityRejectsAncestorDescendant(t *testing.T) {
	g := graph.New(types.NewConversationID())
	now := time.Now()
	root := g.InitRoot(now)
	hello, err := g.Append(root.ID, types.RoleUser, "hello", now.Add(time.Second))
	require.NoError(t, err)

	elig := CheckEligibility(g, root.ID, hello.ID)
	assert.False(t, elig.Eligible)
	assert.Equal(t, forkyerr.ReasonAncestorMerge, elig.RejectionReason)
}

func TestCheckEligibilityRejectsSelfMerge(t *testing.T) {
	g := graph.New(types.NewConversationID())
	root := g.InitRoot(time.Now())
	elig := CheckEligibility(g, root.ID, root.ID)
	assert.False(t, elig.Eligible)
	assert.Equal(t, forkyerr.ReasonSelfMerge, elig.RejectionReason)
}

// buildDivergentGraph creates root -> common -> {left, right}, returning the
// graph and those three nodes.
func buildDivergentGraph(t *testing.T) (g *graph.Graph, common, left, right *types.Node) {
	t.Helper()
	g = graph.New(types.NewConversationID())
	now := time.Now()
	root := g.InitRoot(now)
	var err error
	common, err = g.Append(root.ID, types.RoleAssistant, "shared context", now.Add(time.Second))
	require.NoError(t, err)
	left, err = g.Append(common.ID, types.RoleUser, "left change", now.Add(2*time.Second))
	require.NoError(t, err)
	right, err = g.Append(common.ID, types.RoleUser, "right change", now.Add(3*time.Second))
	require.NoError(t, err)
	return g, common, left, right
}

func TestMergeDisjointAdditionsProduceNoConflicts(t *testing.T) {
	g, common, left, right := buildDivergentGraph(t)

	client := &markerFake{
		byLast: map[string]string{
			common.Content: `{"facts":["x=1"],"decisions":[],"open_questions":[],"assumptions":[],"topic":"base"}`,
			left.Content:   `{"facts":["x=1","y=2"],"decisions":[],"open_questions":[],"assumptions":[],"topic":"left"}`,
			right.Content:  `{"facts":["x=1","z=3"],"decisions":[],"open_questions":[],"assumptions":[],"topic":"right"}`,
		},
		deflt: "merged: combine y=2 and z=3",
	}

	exec := New(summarizer.New("fake-model"))
	result, err := exec.Merge(context.Background(), g, left.ID, right.ID, "combine both", client, "fake-model")
	require.NoError(t, err)
	assert.False(t, result.HasConflicts)
	assert.Empty(t, result.Conflicts)

	merged, ok := g.Get(result.NewNodeID)
	require.True(t, ok)
	assert.Equal(t, "merged: combine y=2 and z=3", merged.Content)
	assert.Equal(t, common.ID, merged.MergeMetadata.LCAID)
	assert.Equal(t, left.ID, merged.MergeMetadata.LeftParentID)
	assert.Equal(t, right.ID, merged.MergeMetadata.RightParentID)
}

// unavailableFake always fails Complete with a ModelUnavailable transport
// error, simulating the circuit breaker tripping mid-summarization.
type unavailableFake struct{}

func (unavailableFake) Complete(context.Context, []modelclient.Message, string) (string, error) {
	return "", forkyerr.New(forkyerr.KindModelUnavailable, "modelclient.complete", nil)
}

func (unavailableFake) Stream(context.Context, []modelclient.Message, string) (<-chan types.ChatChunk, error) {
	return nil, fmt.Errorf("not used")
}

func (unavailableFake) AvailableModels(context.Context) ([]modelclient.ModelInfo, error) {
	return nil, nil
}

var _ modelclient.ModelClient = unavailableFake{}

// TestMergeAbortsOnModelTransportFailure guards §5/§4.5 step-3: a
// ModelClient failure during the three-way summarization must abort the
// merge and surface the original Kind, not commit a node built on a
// SummarizationFailed fallback.
func TestMergeAbortsOnModelTransportFailure(t *testing.T) {
	g, _, left, right := buildDivergentGraph(t)
	before := len(g.Nodes())

	exec := New(summarizer.New("fake-model"))
	result, err := exec.Merge(context.Background(), g, left.ID, right.ID, "combine both", unavailableFake{}, "fake-model")
	require.Error(t, err)
	assert.Nil(t, result)
	kind, ok := forkyerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, forkyerr.KindModelUnavailable, kind)
	assert.Equal(t, before, len(g.Nodes()), "a failed merge must not commit a node")
}

func TestMergeSameDecisionChangedDifferentlyConflicts(t *testing.T) {
	g := graph.New(types.NewConversationID())
	now := time.Now()
	root := g.InitRoot(now)
	common, err := g.Append(root.ID, types.RoleAssistant, "planning storage", now.Add(time.Second))
	require.NoError(t, err)
	left, err := g.Append(common.ID, types.RoleUser, "left change", now.Add(2*time.Second))
	require.NoError(t, err)
	right, err := g.Append(common.ID, types.RoleUser, "right change", now.Add(3*time.Second))
	require.NoError(t, err)

	client := &markerFake{
		byLast: map[string]string{
			common.Content: `{"facts":[],"decisions":["use postgres for storage always"],"open_questions":[],"assumptions":[],"topic":"base"}`,
			left.Content:   `{"facts":[],"decisions":["use postgres for storage always with read replicas"],"open_questions":[],"assumptions":[],"topic":"left"}`,
			right.Content:  `{"facts":[],"decisions":["use postgres for storage always via sharding"],"open_questions":[],"assumptions":[],"topic":"right"}`,
		},
		deflt: "merged: reconcile storage decision",
	}

	exec := New(summarizer.New("fake-model"))
	result, err := exec.Merge(context.Background(), g, left.ID, right.ID, "reconcile", client, "fake-model")
	require.NoError(t, err)
	require.True(t, result.HasConflicts)
	require.Len(t, result.Conflicts, 1)
	c := result.Conflicts[0]
	assert.Equal(t, types.CategoryDecisions, c.Category)
	assert.Equal(t, types.ConflictBothModified, c.Kind)
}
