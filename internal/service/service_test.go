package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkyai/forky/internal/modelclient"
	"github.com/forkyai/forky/internal/types"
)

func newTestService(client modelclient.ModelClient) *ConversationService {
	return New(newMemStore(), client, "fake-model")
}

func TestCreateLoadConversation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&modelclient.Fake{})

	id, err := svc.CreateConversation(ctx, "trip planning")
	require.NoError(t, err)

	conv, err := svc.LoadConversation(ctx, id)
	require.NoError(t, err)
	assert.True(t, conv.IsActive)
	assert.Len(t, conv.Nodes, 1)
	assert.True(t, conv.Nodes[0].IsRoot())
}

func TestChatAppendsUserAndAssistantNodes(t *testing.T) {
	ctx := context.Background()
	fake := &modelclient.Fake{StreamChunks: [][]string{{"Paris ", "is lovely"}}}
	svc := newTestService(fake)

	id, err := svc.CreateConversation(ctx, "trip")
	require.NoError(t, err)

	out, err := svc.Chat(ctx, id, "where should I go", "", nil)
	require.NoError(t, err)

	var text string
	for chunk := range out {
		require.NoError(t, chunk.Err)
		text += chunk.Text
	}
	assert.Equal(t, "Paris is lovely", text)

	conv, err := svc.LoadConversation(ctx, id)
	require.NoError(t, err)
	require.Len(t, conv.Nodes, 3) // root, user, assistant

	history, err := svc.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, types.RoleUser, history[1].Role)
	assert.Equal(t, "where should I go", history[1].Content)
	assert.Equal(t, types.RoleAssistant, history[2].Role)
	assert.Equal(t, "Paris is lovely", history[2].Content)
}

func TestChatCancellationKeepsPartialContent(t *testing.T) {
	fake := &modelclient.Fake{StreamChunks: [][]string{{"partial reply"}}}
	svc := newTestService(fake)

	ctx := context.Background()
	id, err := svc.CreateConversation(ctx, "trip")
	require.NoError(t, err)

	chatCtx, cancel := context.WithCancel(ctx)
	out, err := svc.Chat(chatCtx, id, "hello", "", nil)
	require.NoError(t, err)
	cancel()
	for range out {
	}

	// Give the background goroutine a moment to persist via context.Background.
	time.Sleep(20 * time.Millisecond)

	history, err := svc.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "partial reply", history[2].Content)
}

func TestForkAndCheckout(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&modelclient.Fake{})

	id, err := svc.CreateConversation(ctx, "trip")
	require.NoError(t, err)

	markerID, err := svc.Fork(ctx, id, "alt-plan")
	require.NoError(t, err)

	back, err := svc.Checkout(ctx, id, "alt-plan")
	require.NoError(t, err)
	assert.Equal(t, markerID, back)
}

func TestDeleteNodeRejectsRoot(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&modelclient.Fake{})

	id, err := svc.CreateConversation(ctx, "trip")
	require.NoError(t, err)

	conv, err := svc.LoadConversation(ctx, id)
	require.NoError(t, err)
	rootID := conv.Nodes[0].ID

	err = svc.DeleteNode(ctx, id, rootID)
	require.Error(t, err)
}

func TestMergeBranchesCommitsMergeNode(t *testing.T) {
	ctx := context.Background()
	fake := &modelclient.Fake{Responses: []string{
		`{"facts":[],"decisions":[],"open_questions":[],"assumptions":[],"topic":"lca"}`,
		`{"facts":["x=1"],"decisions":[],"open_questions":[],"assumptions":[],"topic":"left"}`,
		`{"facts":["y=2"],"decisions":[],"open_questions":[],"assumptions":[],"topic":"right"}`,
		"merged reply",
	}}
	svc := newTestService(fake)

	id, err := svc.CreateConversation(ctx, "trip")
	require.NoError(t, err)
	conv, err := svc.LoadConversation(ctx, id)
	require.NoError(t, err)
	rootID := conv.Nodes[0].ID

	leftMarker, err := svc.Fork(ctx, id, "left-branch")
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, id, string(rootID))
	require.NoError(t, err)
	rightMarker, err := svc.Fork(ctx, id, "right-branch")
	require.NoError(t, err)

	elig, err := svc.CheckMergeEligibility(ctx, id, leftMarker, rightMarker)
	require.NoError(t, err)
	assert.True(t, elig.Eligible)

	_, err = svc.Checkout(ctx, id, string(leftMarker))
	require.NoError(t, err)

	result, err := svc.MergeBranches(ctx, id, rightMarker, "reconcile")
	require.NoError(t, err)
	assert.NotEmpty(t, result.NewNodeID)
}

func TestBusyDeadlineReturnsErrorWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&modelclient.Fake{})
	svc.busyDeadline = 30 * time.Millisecond

	id, err := svc.CreateConversation(ctx, "trip")
	require.NoError(t, err)

	release, err := svc.acquire(ctx, id)
	require.NoError(t, err)
	defer release()

	err = svc.RenameConversation(ctx, id, "renamed")
	require.Error(t, err)
}
