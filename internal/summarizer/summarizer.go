// Package summarizer converts a linearized message history into a
// structured StateRecord by delegating to a ModelClient (spec §4.3).
package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/forkyai/forky/internal/forkyerr"
	"github.com/forkyai/forky/internal/modelclient"
	"github.com/forkyai/forky/internal/types"
)

const systemPrompt = `You are summarizing a conversation branch into a structured state record.
Respond with a single JSON object with exactly these keys: "facts", "decisions",
"open_questions", "assumptions" (each an array of short strings) and "topic"
(a short string). Do not include any other keys.`

const strictSystemPrompt = systemPrompt + `
Respond with ONLY the JSON object. No prose, no markdown code fences, no
explanation before or after it.`

// Summarizer turns a message history into a StateRecord via a ModelClient.
type Summarizer struct {
	Model string
}

// New builds a Summarizer targeting the given model id.
func New(model string) *Summarizer {
	return &Summarizer{Model: model}
}

// Summarize implements spec §4.3's robustness policy: one retry with a
// stricter prompt on unparseable output, then a structural-only fallback
// record with SummarizationFailed set (never an error) so MergeExecutor can
// downgrade conflict detection rather than abort the merge. A ModelClient
// transport failure (ModelTimeout/ModelUnavailable/ModelError) is a
// different kind of failure than unparseable output: it is returned
// immediately so the caller aborts the merge instead of committing a node
// built on a fallback record.
func (s *Summarizer) Summarize(ctx context.Context, messages []*types.Node, client modelclient.ModelClient) (types.StateRecord, error) {
	msgs := modelclient.FromNodes(messages)

	record, err := s.attempt(ctx, msgs, client, systemPrompt)
	if err == nil {
		return record, nil
	}
	if isTransportError(err) {
		return types.StateRecord{}, err
	}

	record, err = s.attempt(ctx, msgs, client, strictSystemPrompt)
	if err == nil {
		return record, nil
	}
	if isTransportError(err) {
		return types.StateRecord{}, err
	}

	return types.StateRecord{Topic: "unknown", SummarizationFailed: true}, nil
}

// isTransportError reports whether err came from the ModelClient itself
// (anthropic.go wraps those as *forkyerr.Error) rather than from parsing the
// model's output.
func isTransportError(err error) bool {
	var fe *forkyerr.Error
	return errors.As(err, &fe)
}

func (s *Summarizer) attempt(ctx context.Context, msgs []modelclient.Message, client modelclient.ModelClient, systemPrompt string) (types.StateRecord, error) {
	prompted := append([]modelclient.Message{{Role: types.RoleSystem, Content: systemPrompt}}, msgs...)

	var raw string
	op := func() error {
		out, err := client.Complete(ctx, prompted, s.Model)
		if err != nil {
			return backoff.Permanent(err)
		}
		raw = out
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return types.StateRecord{}, err
	}

	return parseStateRecord(raw)
}

// parseStateRecord extracts a JSON object from raw model output, tolerating
// a leading/trailing markdown code fence, and unmarshals it.
func parseStateRecord(raw string) (types.StateRecord, error) {
	body := extractJSONObject(raw)
	var rec types.StateRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return types.StateRecord{}, err
	}
	return rec, nil
}

func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
