// Package llm holds the optional findings summarizer. The summary is
// operator-facing color only; it never feeds back into flag evaluation.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zelonewolf/wikidata-qa/internal/model"
)

// Provider is one LLM backend.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Summarize generates a prose summary of a state's findings.
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks the provider is configured and reachable.
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest is the summarizer input.
type SummarizeRequest struct {
	Findings *model.Findings

	// Prompt overrides the default prompt when non-empty.
	Prompt string

	// Model overrides the configured model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int
}

// SummarizeResponse is the summarizer output.
type SummarizeResponse struct {
	Summary    string
	Model      string
	TokensUsed int
}

// BuildPrompt renders the default prompt. The rules force descriptive
// output: the model reports what was flagged, it does not rule on which
// data source is right.
func BuildPrompt(f *model.Findings) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are summarizing the data-quality findings of a boundary reconciliation run for %s.

RULES:
1. Describe the findings; do not judge which data source is correct.
2. Do not propose specific edits to OpenStreetMap or Wikidata.
3. Use phrases like "N boundaries are missing a wikidata tag" or "the names of N boundaries disagree with Wikidata".
4. If a category of findings is absent, do not mention it.

Run summary:
- State: %s
- Boundaries processed: %d
- Boundaries flagged: %d
- Suggested P402 additions: %d
- Suggested P402 removals: %d

Most common flags:
`, f.State, f.State, len(f.Processed), len(f.Flagged), len(f.P402Adds), len(f.P402Removals))

	for _, tally := range topFlagKinds(f, 5) {
		fmt.Fprintf(&b, "- %s: %d\n", tally.kind, tally.count)
	}

	b.WriteString("\nProvide a 3-4 sentence summary of the run for a mapper deciding where to start.")
	return b.String()
}

type flagTally struct {
	kind  model.FlagKind
	count int
}

func topFlagKinds(f *model.Findings, limit int) []flagTally {
	counts := make(map[model.FlagKind]int)
	for _, rec := range f.Flagged {
		for _, flag := range rec.Flags {
			counts[flag.Kind]++
		}
	}

	tallies := make([]flagTally, 0, len(counts))
	for kind, count := range counts {
		tallies = append(tallies, flagTally{kind, count})
	}
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].count != tallies[j].count {
			return tallies[i].count > tallies[j].count
		}
		return tallies[i].kind < tallies[j].kind
	})
	if len(tallies) > limit {
		tallies = tallies[:limit]
	}
	return tallies
}
