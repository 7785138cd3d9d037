package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportConfig is the configuration section of the report YAML.
type ReportConfig struct {
	DatasetPath string `yaml:"datasetpath"`
	SampleSize  int    `yaml:"samplesize"`
	Concurrency int    `yaml:"concurrency"`
	Timestamp   string `yaml:"timestamp"`
}

// ReportResult is one record's row in the report.
type ReportResult struct {
	Image    string `yaml:"image"`
	Expected string `yaml:"expected"`
	Decoded  string `yaml:"decoded,omitempty"`
	Outcome  string `yaml:"outcome"`
	Distance int    `yaml:"distance"`
	Error    string `yaml:"error,omitempty"`
}

// ReportSummary is the aggregate section of the report.
type ReportSummary struct {
	Total    int     `yaml:"total"`
	Exact    int     `yaml:"exact"`
	Near     int     `yaml:"near"`
	Missed   int     `yaml:"missed"`
	Errors   int     `yaml:"errors"`
	Accuracy float64 `yaml:"accuracy"`
}

// Report is the complete evaluation report.
type Report struct {
	Config  ReportConfig   `yaml:"config"`
	Summary ReportSummary  `yaml:"summary"`
	Results []ReportResult `yaml:"results"`
}

// SaveReport writes an evaluation report into outDir as a timestamped YAML
// file and returns its path.
func SaveReport(outDir, datasetPath string, concurrency int, results []Result, summary Summary) (string, error) {
	if outDir == "" {
		outDir = "evals"
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	report := Report{
		Config: ReportConfig{
			DatasetPath: datasetPath,
			SampleSize:  len(results),
			Concurrency: concurrency,
			Timestamp:   timestamp,
		},
		Summary: ReportSummary{
			Total:    summary.Total,
			Exact:    summary.Exact,
			Near:     summary.Near,
			Missed:   summary.Missed,
			Errors:   summary.Errors,
			Accuracy: summary.Accuracy,
		},
		Results: make([]ReportResult, 0, len(results)),
	}

	for _, r := range results {
		report.Results = append(report.Results, ReportResult{
			Image:    r.ImagePath,
			Expected: string(r.Expected),
			Decoded:  string(r.Decoded),
			Outcome:  string(r.Outcome),
			Distance: r.Distance,
			Error:    r.Error,
		})
	}

	filename := filepath.Join(outDir, fmt.Sprintf("decode-%s.yaml", timestamp))
	data, err := yaml.Marshal(&report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return filename, nil
}
