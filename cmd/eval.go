package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readshelf/shelfscan/internal/config"
	"github.com/readshelf/shelfscan/internal/eval"
)

func newEvalCmd(configPath *string) *cobra.Command {
	var (
		datasetPath string
		sample      int
		concurrency int
		outDir      string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure decode accuracy against a labelled image dataset",
		Long: `Runs the configured decode stack over every image in a labelled dataset
(JSONL or Parquet), scores the decoded codes against the expected ones, and
writes a YAML report.`,
		Example: `  # Evaluate against a JSONL dataset
  shelfscan eval --dataset testdata/codes.jsonl

  # Sample 100 rows from a Parquet dataset with 8 workers
  shelfscan eval --dataset codes.parquet --sample 100 --concurrency 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			decoder, err := newDecoder(cfg)
			if err != nil {
				return err
			}

			records, err := eval.NewLoader(datasetPath).Load(sample)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("dataset %s has no records", datasetPath)
			}

			results, summary, err := eval.NewRunner(decoder, concurrency).Run(cmd.Context(), records)
			if err != nil {
				return err
			}

			path, err := eval.SaveReport(outDir, datasetPath, concurrency, results, summary)
			if err != nil {
				return err
			}

			fmt.Printf("Evaluated %d image(s): %d exact, %d near, %d missed, %d errored (%.1f%% accuracy)\n",
				summary.Total, summary.Exact, summary.Near, summary.Missed, summary.Errors, summary.Accuracy*100)
			fmt.Printf("Report saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to the labelled dataset (.jsonl or .parquet)")
	cmd.Flags().IntVar(&sample, "sample", 0, "Evaluate at most this many records (0 = all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Number of images decoded in parallel")
	cmd.Flags().StringVar(&outDir, "out", "evals", "Directory for YAML reports")
	if err := cmd.MarkFlagRequired("dataset"); err != nil {
		panic(err)
	}

	return cmd
}
