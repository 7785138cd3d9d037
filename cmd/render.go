package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/readshelf/shelfscan/internal/apply"
	"github.com/readshelf/shelfscan/internal/lookup"
	"github.com/readshelf/shelfscan/internal/scan"
)

var renderMu sync.Mutex
var lastStatus string

// printView renders a widget view to stdout. It is registered as the
// controller's notify callback.
func printView(v scan.View) {
	renderMu.Lock()
	defer renderMu.Unlock()

	if v.Status != "" && v.Status != lastStatus {
		fmt.Println(v.Status)
	}
	lastStatus = v.Status

	if !v.ShowPanel || v.Result == nil {
		return
	}

	fmt.Printf("\n%s\n", v.Result.Title)
	if len(v.Result.Authors) > 0 {
		fmt.Printf("  by %s\n", strings.Join(v.Result.Authors, ", "))
	}
	if v.Result.ISBN != "" {
		fmt.Printf("  ISBN: %s\n", v.Result.ISBN)
	}
	if v.Result.Description != "" {
		fmt.Printf("  %s\n", truncate(v.Result.Description, 200))
	}
	if v.Cover.Visible {
		fmt.Printf("  Cover: %s\n", v.Cover.URL)
	}

	if len(v.Candidates) > 0 {
		fmt.Println("\nOther matches:")
		for _, c := range v.Candidates {
			marker := " "
			if c.TopPick {
				marker = "*"
			}
			line := c.Title
			if c.Authors != "" {
				line += " — " + c.Authors
			}
			fmt.Printf("  %s [%d] %s (%s)\n", marker, c.Index, line, c.Source)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "…"
}

// record is the YAML shape written by --save. It doubles as the form the
// applier fills in.
type record struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Authors     string `yaml:"authors,omitempty"`
	ISBN        string `yaml:"isbn,omitempty"`
	CoverURL    string `yaml:"cover_url,omitempty"`
}

func (r *record) SetTitle(s string)       { r.Title = s }
func (r *record) SetDescription(s string) { r.Description = s }

// saveRecord applies the result to a fresh form and writes it as YAML.
func saveRecord(result *lookup.Result, coverURL, path string) error {
	rec := &record{
		Authors:  strings.Join(result.Authors, ", "),
		ISBN:     result.ISBN,
		CoverURL: coverURL,
	}
	apply.NewApplier(nil).Apply(result, rec)

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	fmt.Printf("Saved record to %s\n", path)
	return nil
}
