// Package merge orchestrates the three-way semantic merge pipeline of spec
// §4.5: eligibility, LCA, three-state summarization, two diffs, conflict
// classification, prompt synthesis, and the final model call that produces
// a merge node's content.
package merge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forkyai/forky/internal/diff"
	"github.com/forkyai/forky/internal/forkyerr"
	"github.com/forkyai/forky/internal/graph"
	"github.com/forkyai/forky/internal/modelclient"
	"github.com/forkyai/forky/internal/summarizer"
	"github.com/forkyai/forky/internal/types"
)

// Eligibility is the return shape of CheckEligibility (spec §6.1).
type Eligibility struct {
	Eligible        bool         `json:"eligible"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	LCAID           types.NodeID `json:"lca_id,omitempty"`
}

// CheckEligibility implements spec §4.5 step 1. It is symmetric: swapping a
// and b never changes Eligible or RejectionReason (only LCAID, since the
// spec only guarantees symmetry "modulo lca_id", per §8 property 8).
func CheckEligibility(g *graph.Graph, a, b types.NodeID) Eligibility {
	if a == b {
		return Eligibility{Eligible: false, RejectionReason: forkyerr.ReasonSelfMerge}
	}
	if g.IsAncestor(a, b) || g.IsAncestor(b, a) {
		return Eligibility{Eligible: false, RejectionReason: forkyerr.ReasonAncestorMerge}
	}
	lca, ok := g.LCA(a, b)
	if !ok {
		return Eligibility{Eligible: false, RejectionReason: forkyerr.ReasonNoCommonAncestor}
	}
	return Eligibility{Eligible: true, LCAID: lca}
}

// Result is the outcome of a successful Merge.
type Result struct {
	NewNodeID    types.NodeID
	HasConflicts bool
	Conflicts    []types.ConflictRecord
}

// Executor drives the merge pipeline for one conversation's graph.
type Executor struct {
	Summarizer *summarizer.Summarizer
}

// New builds an Executor using the given summarizer.
func New(s *summarizer.Summarizer) *Executor {
	return &Executor{Summarizer: s}
}

// Merge runs spec §4.5 steps 1–8 against g, committing a new merge node on
// success. currentID is always the left/primary parent (§9 Open Question:
// this API never infers which side is "current" — callers decide).
func (e *Executor) Merge(ctx context.Context, g *graph.Graph, currentID, targetID types.NodeID, mergePrompt string, client modelclient.ModelClient, model string) (*Result, error) {
	elig := CheckEligibility(g, currentID, targetID)
	if !elig.Eligible {
		return nil, forkyerr.MergeIneligible("merge", elig.RejectionReason)
	}

	lcaHist, err := g.History(elig.LCAID)
	if err != nil {
		return nil, err
	}
	leftHist, err := g.History(currentID)
	if err != nil {
		return nil, err
	}
	rightHist, err := g.History(targetID)
	if err != nil {
		return nil, err
	}

	var sLCA, sLeft, sRight types.StateRecord
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() (err error) { sLCA, err = e.Summarizer.Summarize(gctx, lcaHist, client); return })
	grp.Go(func() (err error) { sLeft, err = e.Summarizer.Summarize(gctx, leftHist, client); return })
	grp.Go(func() (err error) { sRight, err = e.Summarizer.Summarize(gctx, rightHist, client); return })
	if err := grp.Wait(); err != nil {
		if _, ok := forkyerr.KindOf(err); ok {
			return nil, err
		}
		return nil, forkyerr.New(forkyerr.KindModelError, "merge.summarize", err)
	}

	structuralOnly := sLCA.SummarizationFailed || sLeft.SummarizationFailed || sRight.SummarizationFailed

	dLeft := diff.Diff(sLCA, sLeft)
	dRight := diff.Diff(sLCA, sRight)

	var conflicts []types.ConflictRecord
	if !structuralOnly {
		conflicts = classifyConflicts(dLeft, dRight)
	}

	prompt := synthesizePrompt(sLCA, dLeft, dRight, conflicts, mergePrompt, structuralOnly)
	content, err := client.Complete(ctx, []modelclient.Message{
		{Role: types.RoleUser, Content: prompt},
	}, model)
	if err != nil {
		if _, ok := forkyerr.KindOf(err); ok {
			return nil, err
		}
		return nil, forkyerr.New(forkyerr.KindModelError, "merge.complete", err)
	}

	node, err := g.CommitMerge(currentID, targetID, content, types.MergeMetadata{
		LCAID:     elig.LCAID,
		Conflicts: conflicts,
	}, time.Now())
	if err != nil {
		return nil, err
	}

	return &Result{NewNodeID: node.ID, HasConflicts: len(conflicts) > 0, Conflicts: conflicts}, nil
}

// classifyConflicts implements spec §4.5 step 5.
func classifyConflicts(left, right types.StateDiff) []types.ConflictRecord {
	var out []types.ConflictRecord

	for _, cat := range types.AllCategories {
		leftChanged := indexChanged(left.Changed[cat])
		rightChanged := indexChanged(right.Changed[cat])
		for h, lc := range leftChanged {
			if rc, ok := rightChanged[h]; ok && normalizeText(lc.After) != normalizeText(rc.After) {
				out = append(out, types.ConflictRecord{
					Category: cat, LeftItem: lc.After, RightItem: rc.After, Kind: types.ConflictBothModified,
				})
			}
		}

		leftAdded := indexItems(left.Added[cat])
		rightAdded := indexItems(right.Added[cat])
		leftRemoved := indexItems(left.Removed[cat])
		rightRemoved := indexItems(right.Removed[cat])

		for h, item := range leftAdded {
			if removed, ok := rightRemoved[h]; ok {
				out = append(out, types.ConflictRecord{Category: cat, LeftItem: item, RightItem: removed, Kind: types.ConflictContradicts})
			}
		}
		for h, item := range rightAdded {
			if removed, ok := leftRemoved[h]; ok {
				out = append(out, types.ConflictRecord{Category: cat, LeftItem: removed, RightItem: item, Kind: types.ConflictContradicts})
			}
		}

		for h, l := range leftAdded {
			if r, ok := rightAdded[h]; ok && normalizeText(l) != normalizeText(r) {
				out = append(out, types.ConflictRecord{Category: cat, LeftItem: l, RightItem: r, Kind: types.ConflictDiverges})
			}
		}
	}
	return out
}

func normalizeText(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func handleOf(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '.', ',', ';', ':', '!', '?', ' ', '\t', '\n':
			return true
		}
		return false
	})
	n := len(fields)
	if n > 5 {
		n = 5
	}
	return strings.ToLower(strings.Join(fields[:n], " "))
}

func indexItems(items []string) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[handleOf(it)] = it
	}
	return out
}

func indexChanged(items []types.ChangedItem) map[string]types.ChangedItem {
	out := make(map[string]types.ChangedItem, len(items))
	for _, it := range items {
		out[handleOf(it.After)] = it
	}
	return out
}

// synthesizePrompt implements spec §4.5 step 6.
func synthesizePrompt(base types.StateRecord, left, right types.StateDiff, conflicts []types.ConflictRecord, userPrompt string, structuralOnly bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are merging two divergent branches of a conversation.\n\n")
	fmt.Fprintf(&b, "Baseline (topic: %s):\n", base.Topic)
	writeCategories(&b, base)

	fmt.Fprintf(&b, "\nLeft branch changes relative to baseline:\n")
	writeDiff(&b, left)

	fmt.Fprintf(&b, "\nRight branch changes relative to baseline:\n")
	writeDiff(&b, right)

	if structuralOnly {
		fmt.Fprintf(&b, "\nNote: summarization failed for one or more branches; only structural information is available.\n")
	}

	if len(conflicts) > 0 {
		fmt.Fprintf(&b, "\nConflicts detected (do not auto-resolve; surface them to the user or ask clarifying questions):\n")
		for _, c := range conflicts {
			fmt.Fprintf(&b, "- [%s/%s] left=%q right=%q\n", c.Category, c.Kind, c.LeftItem, c.RightItem)
		}
	}

	fmt.Fprintf(&b, "\nUser's merge instructions:\n%s\n", userPrompt)
	return b.String()
}

func writeCategories(b *strings.Builder, s types.StateRecord) {
	for _, cat := range types.AllCategories {
		items := s.Category(cat)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(b, "  %s:\n", cat)
		for _, it := range items {
			fmt.Fprintf(b, "    - %s\n", it)
		}
	}
}

func writeDiff(b *strings.Builder, d types.StateDiff) {
	for _, cat := range types.AllCategories {
		for _, it := range d.Added[cat] {
			fmt.Fprintf(b, "  + [%s] %s\n", cat, it)
		}
		for _, it := range d.Removed[cat] {
			fmt.Fprintf(b, "  - [%s] %s\n", cat, it)
		}
		for _, it := range d.Changed[cat] {
			fmt.Fprintf(b, "  ~ [%s] %q -> %q\n", cat, it.Before, it.After)
		}
	}
}
