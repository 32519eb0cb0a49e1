package modelclient

import (
	"context"
	"sync"

	"github.com/forkyai/forky/internal/types"
)

// Fake is an in-memory ModelClient for tests (spec's property tests must
// mock ModelClient since summarization is inherently nondeterministic —
// see §9 Design Notes). Responses is consumed in FIFO order by Complete;
// StreamChunks is consumed in FIFO order by Stream. Safe for concurrent use
// since MergeExecutor summarizes all three branch histories concurrently.
type Fake struct {
	Responses    []string
	StreamChunks [][]string
	Err          error

	mu    sync.Mutex
	Calls []FakeCall
}

// FakeCall records one invocation for assertions in tests.
type FakeCall struct {
	Messages []Message
	Model    string
}

func (f *Fake) Complete(_ context.Context, messages []Message, model string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, FakeCall{Messages: messages, Model: model})
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", nil
	}
	resp := f.Responses[0]
	f.Responses = f.Responses[1:]
	return resp, nil
}

func (f *Fake) Stream(_ context.Context, messages []Message, model string) (<-chan types.ChatChunk, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, FakeCall{Messages: messages, Model: model})
	if f.Err != nil {
		f.mu.Unlock()
		return nil, f.Err
	}
	var chunks []string
	if len(f.StreamChunks) > 0 {
		chunks = f.StreamChunks[0]
		f.StreamChunks = f.StreamChunks[1:]
	}
	f.mu.Unlock()
	out := make(chan types.ChatChunk, len(chunks)+1)
	for _, c := range chunks {
		out <- types.ChatChunk{Text: c}
	}
	out <- types.ChatChunk{Done: true}
	close(out)
	return out, nil
}

func (f *Fake) AvailableModels(_ context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{ID: "fake-model", Name: "Fake Model"}}, nil
}

var _ ModelClient = (*Fake)(nil)
