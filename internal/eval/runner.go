package eval

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/sync/errgroup"

	"github.com/readshelf/shelfscan/internal/barcode"
)

// nearMissDistance is the largest Levenshtein distance between decoded and
// expected code that still counts as a near miss rather than a plain miss.
const nearMissDistance = 2

// Decoder is the piece under evaluation; the decode selector satisfies it.
type Decoder interface {
	DecodeImage(ctx context.Context, img image.Image) (string, error)
}

// Outcome classifies a single record's result.
type Outcome string

const (
	OutcomeExact Outcome = "exact"
	OutcomeNear  Outcome = "near"
	OutcomeMiss  Outcome = "miss"
	OutcomeError Outcome = "error"
)

// Result is the evaluation of one dataset record.
type Result struct {
	ImagePath string
	Expected  barcode.Code
	Decoded   barcode.Code
	Outcome   Outcome
	Distance  int
	Error     string
}

// Summary aggregates results across a run.
type Summary struct {
	Total    int
	Exact    int
	Near     int
	Missed   int
	Errors   int
	Accuracy float64
}

// Runner decodes every dataset record and scores the output.
type Runner struct {
	decoder     Decoder
	concurrency int
}

// NewRunner creates a runner. Concurrency below 1 is clamped to 1.
func NewRunner(decoder Decoder, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{decoder: decoder, concurrency: concurrency}
}

// Run evaluates all records, preserving dataset order in the results.
func (r *Runner) Run(ctx context.Context, records []Record) ([]Result, Summary, error) {
	results := make([]Result, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var mu sync.Mutex
	done := 0
	for i, record := range records {
		g.Go(func() error {
			results[i] = r.evaluate(ctx, record)

			mu.Lock()
			done++
			if done%100 == 0 {
				slog.Debug("Evaluation progress", "done", done, "total", len(records))
			}
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, fmt.Errorf("evaluation run aborted: %w", err)
	}

	return results, Summarize(results), nil
}

func (r *Runner) evaluate(ctx context.Context, record Record) Result {
	result := Result{
		ImagePath: record.ImagePath,
		Expected:  barcode.Normalize(record.Expected),
	}

	img, err := loadImage(record.ImagePath)
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result
	}

	text, err := r.decoder.DecodeImage(ctx, img)
	if err != nil {
		result.Outcome = OutcomeMiss
		return result
	}
	result.Decoded = barcode.Normalize(text)

	result.Distance = fuzzy.LevenshteinDistance(string(result.Decoded), string(result.Expected))
	switch {
	case result.Distance == 0:
		result.Outcome = OutcomeExact
	case result.Distance <= nearMissDistance:
		result.Outcome = OutcomeNear
	default:
		result.Outcome = OutcomeMiss
	}
	return result
}

// Summarize computes run totals. Accuracy counts exact matches only.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeExact:
			s.Exact++
		case OutcomeNear:
			s.Near++
		case OutcomeMiss:
			s.Missed++
		case OutcomeError:
			s.Errors++
		}
	}
	if s.Total > 0 {
		s.Accuracy = float64(s.Exact) / float64(s.Total)
	}
	return s
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
