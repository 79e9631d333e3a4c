package rag

import (
	"sort"
	"strings"

	"nia/internal/chunk"
)

// assemble selects passages for the prompt. Passages are taken in descending
// score order (ties broken by chunk ID for determinism) while the running
// token count stays within budget; selection stops at the first passage that
// would exceed it. A passage whose span is fully contained in an already
// accepted passage from the same document is dropped as redundant.
//
// When the very first passage alone exceeds the budget it is truncated to fit
// rather than dropped, so a non-empty input always yields at least one
// passage. A non-positive budget admits nothing.
func assemble(passages []Passage, tokenBudget int) Context {
	if tokenBudget <= 0 {
		return Context{}
	}

	sorted := make([]Passage, len(passages))
	copy(sorted, passages)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Chunk.ID < sorted[j].Chunk.ID
	})

	var out Context
	for _, p := range sorted {
		if containedInAccepted(out.Passages, p) {
			continue
		}

		if out.TokenCount+p.Chunk.TokenCount > tokenBudget {
			if len(out.Passages) == 0 {
				truncated := truncatePassage(p, tokenBudget)
				out.Passages = append(out.Passages, truncated)
				out.TokenCount += truncated.Chunk.TokenCount
			}
			break
		}

		out.Passages = append(out.Passages, p)
		out.TokenCount += p.Chunk.TokenCount
	}
	return out
}

// containedInAccepted reports whether p's span lies entirely within an
// accepted passage from the same source document.
func containedInAccepted(accepted []Passage, p Passage) bool {
	for _, a := range accepted {
		if a.Chunk.SourceURL != p.Chunk.SourceURL {
			continue
		}
		if a.Chunk.StartOffset <= p.Chunk.StartOffset && p.Chunk.EndOffset <= a.Chunk.EndOffset {
			return true
		}
	}
	return false
}

// truncatePassage cuts a passage's text down to at most tokenBudget words.
func truncatePassage(p Passage, tokenBudget int) Passage {
	words := strings.Fields(p.Chunk.Text)
	if len(words) <= tokenBudget {
		return p
	}
	p.Chunk.Text = strings.Join(words[:tokenBudget], " ")
	p.Chunk.TokenCount = chunk.EstimateTokens(p.Chunk.Text)
	return p
}
