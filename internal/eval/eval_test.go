package eval

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

type mapDecoder struct {
	// keyed by image width so each test image can decode differently
	byWidth map[int]string
}

func (d *mapDecoder) DecodeImage(ctx context.Context, img image.Image) (string, error) {
	if text, ok := d.byWidth[img.Bounds().Dx()]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no barcode found")
}

func writeImage(t *testing.T, dir string, width int) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("img-%d.png", width))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, width, 8))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return path
}

func TestLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.jsonl")
	content := `{"image_path": "a.png", "expected": "9780134685991"}
{"image_path": "b.png", "expected": "9781491941959", "symbology": "ean13"}

{"image_path": "c.png", "expected": "036000291452"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}

	records, err := NewLoader(path).Load(0)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[1].Expected != "9781491941959" || records[1].Symbology != "ean13" {
		t.Errorf("unexpected record: %+v", records[1])
	}

	limited, err := NewLoader(path).Load(2)
	if err != nil {
		t.Fatalf("Load with limit returned error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d records with limit 2", len(limited))
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	if _, err := NewLoader("dataset.csv").Load(0); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestRunScoresOutcomes(t *testing.T) {
	dir := t.TempDir()
	records := []Record{
		{ImagePath: writeImage(t, dir, 10), Expected: "9780134685991"},
		{ImagePath: writeImage(t, dir, 20), Expected: "9780134685991"},
		{ImagePath: writeImage(t, dir, 30), Expected: "9780134685991"},
		{ImagePath: filepath.Join(dir, "missing.png"), Expected: "9780134685991"},
	}
	decoder := &mapDecoder{byWidth: map[int]string{
		10: "9780134685991", // exact
		20: "9780134685992", // off by one digit
		30: "1112223334",    // nowhere close
	}}

	results, summary, err := NewRunner(decoder, 2).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != len(records) {
		t.Fatalf("got %d results, want %d", len(results), len(records))
	}

	want := []Outcome{OutcomeExact, OutcomeNear, OutcomeMiss, OutcomeError}
	for i, outcome := range want {
		if results[i].Outcome != outcome {
			t.Errorf("result %d outcome = %q, want %q", i, results[i].Outcome, outcome)
		}
	}
	if summary.Exact != 1 || summary.Near != 1 || summary.Missed != 1 || summary.Errors != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Accuracy != 0.25 {
		t.Errorf("accuracy = %v, want 0.25", summary.Accuracy)
	}
}

func TestRunPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var records []Record
	for i := range 8 {
		records = append(records, Record{
			ImagePath: writeImage(t, dir, 100+i),
			Expected:  fmt.Sprintf("97801346859%d", i),
		})
	}
	decoder := &mapDecoder{byWidth: map[int]string{}}
	for i := range 8 {
		decoder.byWidth[100+i] = fmt.Sprintf("97801346859%d", i)
	}

	results, summary, err := NewRunner(decoder, 4).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Exact != 8 {
		t.Fatalf("summary = %+v, want all exact", summary)
	}
	for i, r := range results {
		if r.ImagePath != records[i].ImagePath {
			t.Errorf("result %d out of order: %s", i, r.ImagePath)
		}
	}
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	results := []Result{
		{ImagePath: "a.png", Expected: "9780134685991", Decoded: "9780134685991", Outcome: OutcomeExact},
		{ImagePath: "b.png", Expected: "9781491941959", Outcome: OutcomeMiss, Distance: 13},
	}
	path, err := SaveReport(dir, "dataset.jsonl", 4, results, Summarize(results))
	if err != nil {
		t.Fatalf("SaveReport returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		t.Fatalf("report is not valid YAML: %v", err)
	}
	if report.Config.DatasetPath != "dataset.jsonl" {
		t.Errorf("dataset path = %q", report.Config.DatasetPath)
	}
	if report.Summary.Total != 2 || report.Summary.Exact != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if len(report.Results) != 2 {
		t.Errorf("got %d result rows", len(report.Results))
	}
}
