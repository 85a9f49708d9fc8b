package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zelonewolf/wikidata-qa/internal/census"
	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/pipeline"
	"github.com/zelonewolf/wikidata-qa/internal/worker"
)

var (
	batchAll    bool
	concurrency int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Run the reconciliation for multiple states",
	Long: `Batch runs the check for a list of states, sequentially by default so
concurrent runs cannot blow the shared Wikidata/Overpass rate budget.

The input file lists one state name per line; blank lines and lines
starting with # are skipped. With --all, every US state known to
Wikidata is processed instead.

Example:
  wikidata-qa batch states.txt
  wikidata-qa batch --all
  wikidata-qa batch states.txt --concurrency 2 --output-dir ./reports`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().BoolVar(&batchAll, "all", false, "process every US state")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of concurrent state runs")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "output", "output directory for artifacts")
	batchCmd.Flags().IntVar(&censusYear, "census-year", 2024, "gazetteer year")
	batchCmd.Flags().StringVar(&userAgent, "ua", "wikidata-qa/1.0 (https://github.com/ZeLonewolf/wikidata-qa)", "HTTP User-Agent")
	batchCmd.Flags().StringVar(&rulesFile, "rules", "", "YAML override of the boundary tag rule table")
}

// stateJob runs one state through its own pipeline; each job gets a
// fresh knowledge cache so runs stay independent.
type stateJob struct {
	cfg   *model.Config
	state string
}

// stateResult is the batch outcome for one state.
type stateResult struct {
	state    string
	findings *model.Findings
	err      error
}

func (r stateResult) GetError() error {
	return r.err
}

func (j stateJob) Execute(ctx context.Context) worker.Result {
	p, err := pipeline.New(j.cfg)
	if err != nil {
		return stateResult{state: j.state, err: err}
	}
	findings, err := p.Run(ctx, j.state, pipeline.RunOptions{})
	if err != nil {
		return stateResult{state: j.state, err: err}
	}
	if err := pipeline.NewRenderer(j.cfg.Output.Dir).Write(findings); err != nil {
		return stateResult{state: j.state, err: err}
	}
	return stateResult{state: j.state, findings: findings}
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	var states []string
	switch {
	case batchAll:
		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}
		all, err := p.States(ctx)
		if err != nil {
			return fmt.Errorf("list states: %w", err)
		}
		for _, st := range all {
			if census.StateAbbreviation(st.Name) != "" {
				states = append(states, st.Name)
			}
		}
	case len(args) == 1:
		states, err = readStateFile(args[0])
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("provide a state list file or --all")
	}
	if len(states) == 0 {
		return fmt.Errorf("no states to process")
	}

	fmt.Fprintf(os.Stderr, "Processing %d states with %d worker(s)\n", len(states), concurrency)

	jobs := make([]worker.Job, len(states))
	for i, state := range states {
		jobs[i] = stateJob{cfg: cfg, state: state}
	}

	pool := worker.NewPool(concurrency)
	pool.Start()
	results := pool.Run(jobs)

	var failures int
	for _, result := range results {
		r := result.(stateResult)
		if r.err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", r.state, r.err)
			continue
		}
		fmt.Fprintf(os.Stderr, "OK   %s: %d boundaries, %d flagged\n",
			r.state, len(r.findings.Processed), len(r.findings.Flagged))
	}
	fmt.Fprintf(os.Stderr, "Batch complete: %d succeeded, %d failed, artifacts in %s\n",
		len(results)-failures, failures, cfg.Output.Dir)

	if failures == len(results) {
		return fmt.Errorf("all %d states failed", failures)
	}
	return nil
}

func readStateFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var states []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		states = append(states, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read state list: %w", err)
	}
	return states, nil
}
