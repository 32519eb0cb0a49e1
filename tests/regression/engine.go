// Package regression drives the property scenarios of spec §8 end-to-end
// through internal/service, using rsc.io/script's txtar-based scripting
// engine (the teacher's go.mod declares it as a direct dependency; no
// source file in this pack's retrieval exercises it, so the command
// registration here follows rsc.io/script's published Engine/Cmd/State
// shape rather than a teacher call site — see DESIGN.md).
package regression

import (
	"fmt"
	"strings"

	"rsc.io/script"

	"github.com/forkyai/forky/internal/merge"
	"github.com/forkyai/forky/internal/modelclient"
	"github.com/forkyai/forky/internal/service"
	"github.com/forkyai/forky/internal/types"
)

// harness holds the ConversationService under test plus the id/node
// bindings a script accumulates as it runs (`create`, `fork`, etc. each
// bind a name to a result so later steps can reference it).
type harness struct {
	svc   *service.ConversationService
	model *modelclient.Fake

	convs map[string]types.ConversationID
	nodes map[string]types.NodeID
}

func newHarness(svc *service.ConversationService, model *modelclient.Fake) *harness {
	return &harness{svc: svc, model: model, convs: map[string]types.ConversationID{}, nodes: map[string]types.NodeID{}}
}

// buildEngine registers this harness's commands under an otherwise
// standard script.Engine, the same way a script-based test suite layers
// domain commands over the engine's builtins.
func (h *harness) buildEngine() *script.Engine {
	cmds := map[string]script.Cmd{
		"create": script.Command(
			script.CmdUsage{Summary: "create a conversation, binding its id to a name", Args: "name binding"},
			h.cmdCreate,
		),
		"fork": script.Command(
			script.CmdUsage{Summary: "fork a conversation at its current node", Args: "conv branch binding"},
			h.cmdFork,
		),
		"checkout": script.Command(
			script.CmdUsage{Summary: "checkout a node or branch in a conversation", Args: "conv identifier"},
			h.cmdCheckout,
		),
		"current": script.Command(
			script.CmdUsage{Summary: "bind conv's current node id to a name", Args: "conv binding"},
			h.cmdCurrent,
		),
		"chat": script.Command(
			script.CmdUsage{Summary: "send a message and drain the streamed reply", Args: "conv message"},
			h.cmdChat,
		),
		"merge": script.Command(
			script.CmdUsage{Summary: "merge target into conv's current node", Args: "conv target"},
			h.cmdMerge,
		),
		"expect-conflicts": script.Command(
			script.CmdUsage{Summary: "assert the last merge's conflict count", Args: "n"},
			h.cmdExpectConflicts,
		),
	}
	return &script.Engine{Cmds: cmds, Conds: script.DefaultConds()}
}

func (h *harness) cmdCreate(s *script.State, args ...string) (script.WaitFunc, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: create name binding")
	}
	id, err := h.svc.CreateConversation(s.Context(), args[0])
	if err != nil {
		return nil, err
	}
	h.convs[args[1]] = id
	return func(*script.State) (string, string) { return string(id), "" }, nil
}

func (h *harness) cmdFork(s *script.State, args ...string) (script.WaitFunc, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("usage: fork conv branch binding")
	}
	convID, ok := h.convs[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown conversation binding %q", args[0])
	}
	marker, err := h.svc.Fork(s.Context(), convID, args[1])
	if err != nil {
		return nil, err
	}
	h.nodes[args[2]] = marker
	return func(*script.State) (string, string) { return string(marker), "" }, nil
}

func (h *harness) cmdCheckout(s *script.State, args ...string) (script.WaitFunc, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: checkout conv identifier")
	}
	convID, ok := h.convs[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown conversation binding %q", args[0])
	}
	identifier := args[1]
	if nodeID, ok := h.nodes[identifier]; ok {
		identifier = string(nodeID)
	}
	target, err := h.svc.Checkout(s.Context(), convID, identifier)
	if err != nil {
		return nil, err
	}
	return func(*script.State) (string, string) { return string(target), "" }, nil
}

func (h *harness) cmdCurrent(s *script.State, args ...string) (script.WaitFunc, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: current conv binding")
	}
	convID, ok := h.convs[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown conversation binding %q", args[0])
	}
	view, err := h.svc.GetGraph(s.Context(), convID)
	if err != nil {
		return nil, err
	}
	current := view.CurrentNodeID
	h.nodes[args[1]] = current
	return func(*script.State) (string, string) { return string(current), "" }, nil
}

func (h *harness) cmdChat(s *script.State, args ...string) (script.WaitFunc, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: chat conv message")
	}
	convID, ok := h.convs[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown conversation binding %q", args[0])
	}
	chunks, err := h.svc.Chat(s.Context(), convID, args[1], "", nil)
	if err != nil {
		return nil, err
	}
	var reply strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		reply.WriteString(chunk.Text)
	}
	return func(*script.State) (string, string) { return reply.String(), "" }, nil
}

var lastMerge *merge.Result

func (h *harness) cmdMerge(s *script.State, args ...string) (script.WaitFunc, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("usage: merge conv target")
	}
	convID, ok := h.convs[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown conversation binding %q", args[0])
	}
	targetID, ok := h.nodes[args[1]]
	if !ok {
		targetID = types.NodeID(args[1])
	}
	result, err := h.svc.MergeBranches(s.Context(), convID, targetID, "")
	if err != nil {
		return nil, err
	}
	lastMerge = result
	return func(*script.State) (string, string) { return string(result.NewNodeID), "" }, nil
}

func (h *harness) cmdExpectConflicts(s *script.State, args ...string) (script.WaitFunc, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("usage: expect-conflicts n")
	}
	if lastMerge == nil {
		return nil, fmt.Errorf("expect-conflicts: no merge has run yet")
	}
	want := args[0]
	got := fmt.Sprintf("%d", len(lastMerge.Conflicts))
	if got != want {
		return nil, fmt.Errorf("expect-conflicts: got %s conflicts, want %s", got, want)
	}
	return nil, nil
}
