// Package diff computes the added/removed/changed items between two
// StateRecords (spec §4.4). It is pure — no I/O, fully deterministic —
// the same shape as the vendored neongreen 3-way JSONL merge the pack
// carries in untoldecay/BeadsLog's internal/merge package, applied here to
// structured state categories instead of JSONL issue rows.
package diff

import (
	"strings"

	"github.com/forkyai/forky/internal/types"
)

// normalize applies the added/removed equality rule: trim + case-fold.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// handle extracts the "first noun phrase" heuristic used to match changed
// items across base/side: the leading five whitespace/punctuation-separated
// tokens, lower-cased.
func handle(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '.', ',', ';', ':', '!', '?':
			return true
		}
		return r == ' ' || r == '\t' || r == '\n'
	})
	n := len(fields)
	if n > 5 {
		n = 5
	}
	return strings.ToLower(strings.Join(fields[:n], " "))
}

// Diff computes the StateDiff of side relative to base, per category.
func Diff(base, side types.StateRecord) types.StateDiff {
	d := types.NewStateDiff()
	for _, cat := range types.AllCategories {
		baseItems := base.Category(cat)
		sideItems := side.Category(cat)
		diffCategory(d, cat, baseItems, sideItems)
	}
	return d
}

func diffCategory(d types.StateDiff, cat types.StateCategory, base, side []string) {
	baseNorm := map[string]string{} // normalized -> original
	baseHandles := map[string]string{}
	for _, b := range base {
		baseNorm[normalize(b)] = b
		baseHandles[handle(b)] = b
	}
	sideNorm := map[string]struct{}{}
	sideHandles := map[string]string{}
	for _, s := range side {
		sideNorm[normalize(s)] = struct{}{}
		sideHandles[handle(s)] = s
	}

	matchedBase := map[string]struct{}{}

	for _, s := range side {
		sn := normalize(s)
		if _, inBase := baseNorm[sn]; inBase {
			matchedBase[sn] = struct{}{}
			continue
		}
		// Not an exact match: is it a "changed" item (matching handle, different text)?
		h := handle(s)
		if baseItem, ok := baseHandles[h]; ok && normalize(baseItem) != sn {
			d.Changed[cat] = append(d.Changed[cat], types.ChangedItem{Before: baseItem, After: s})
			matchedBase[normalize(baseItem)] = struct{}{}
			continue
		}
		d.Added[cat] = append(d.Added[cat], s)
	}

	for _, b := range base {
		bn := normalize(b)
		if _, matched := matchedBase[bn]; matched {
			continue
		}
		if _, stillPresent := sideNorm[bn]; stillPresent {
			continue
		}
		d.Removed[cat] = append(d.Removed[cat], b)
	}
}
