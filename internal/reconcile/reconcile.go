// Package reconcile lets the user correct a wrong automatic match: it
// renders the candidate records a lookup returned and merges a chosen
// candidate's fields into the active result.
package reconcile

import (
	"strings"

	"github.com/readshelf/shelfscan/internal/covers"
	"github.com/readshelf/shelfscan/internal/lookup"
)

// CandidateView is the display model for one candidate row: title, joined
// authors, source label and a marker distinguishing the service's own top
// pick from alternatives.
type CandidateView struct {
	Index   int
	Title   string
	Authors string
	Source  string
	TopPick bool
}

// Views renders every candidate the lookup returned, including a singleton
// list, so the user always sees what was considered. A missing or failed
// result renders nothing.
func Views(result *lookup.Result) []CandidateView {
	if result == nil || !result.OK {
		return nil
	}
	views := make([]CandidateView, 0, len(result.Candidates))
	for i, c := range result.Candidates {
		source := c.Source
		if source == "" {
			source = "unknown source"
		}
		views = append(views, CandidateView{
			Index:   i,
			Title:   c.Title,
			Authors: strings.Join(c.Authors, ", "),
			Source:  source,
			TopPick: c.Match,
		})
	}
	return views
}

// Merge applies candidate index i to the result and returns the replacement
// result plus the rebuilt cover fallback chain. Field precedence is
// candidate-over-original for title, description and authors; the chain is
// the candidate's cover first, then the original's fallbacks, then the
// original's primary cover, de-duplicated in first-seen order. The original
// result is never mutated.
func Merge(result *lookup.Result, i int) (*lookup.Result, []string) {
	if result == nil || i < 0 || i >= len(result.Candidates) {
		return result, Chain(result)
	}
	cand := result.Candidates[i]

	merged := result.Clone()
	if cand.Title != "" {
		merged.Title = cand.Title
	}
	if cand.Description != "" {
		merged.Description = cand.Description
	}
	if len(cand.Authors) > 0 {
		merged.Authors = append([]string(nil), cand.Authors...)
	}
	if cand.CoverURL != "" {
		merged.CoverURL = cand.CoverURL
	}

	urls := make([]string, 0, len(result.CoverURLs)+2)
	urls = append(urls, cand.CoverURL)
	urls = append(urls, result.CoverURLs...)
	urls = append(urls, merged.CoverURL)
	return merged, covers.BuildChain(urls...)
}

// Chain builds the initial cover fallback chain for an unmerged result:
// server-provided fallbacks first, then the primary cover URL.
func Chain(result *lookup.Result) []string {
	if result == nil || !result.OK {
		return nil
	}
	urls := make([]string, 0, len(result.CoverURLs)+1)
	urls = append(urls, result.CoverURLs...)
	urls = append(urls, result.CoverURL)
	return covers.BuildChain(urls...)
}
