package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zelonewolf/wikidata-qa/internal/llm"
	"github.com/zelonewolf/wikidata-qa/internal/model"
	"github.com/zelonewolf/wikidata-qa/internal/pipeline"
)

var (
	outputDir   string
	inputPath   string
	censusYear  int
	httpTimeout time.Duration
	userAgent   string
	rulesFile   string
	httpProxy   string
	httpsProxy  string
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <state>",
	Short: "Reconcile one US state's boundaries against Wikidata and the Census Bureau",
	Long: `Check runs the full reconciliation for one state:
- Fetch the Overpass boundary extract (or read one from --input)
- Load the Census Bureau gazetteer place lists
- Load the Wikidata cities-and-towns list for the state
- Pre-warm the knowledge cache with batched Wikidata lookups
- Evaluate every boundary record against the flag taxonomy
- Write the output artifacts (CSVs, QuickStatements, filter suggestions)

Example:
  wikidata-qa check Massachusetts
  wikidata-qa check "Rhode Island" --output-dir ./reports
  wikidata-qa check Vermont --input vermont-extract.csv
  wikidata-qa check Maine --llm --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&outputDir, "output-dir", "output", "output directory for artifacts")
	checkCmd.Flags().StringVar(&inputPath, "input", "", "pre-downloaded Overpass extract CSV (skips the Overpass fetch)")
	checkCmd.Flags().IntVar(&censusYear, "census-year", 2024, "gazetteer year")
	checkCmd.Flags().DurationVar(&httpTimeout, "timeout", 60*time.Second, "HTTP request timeout")
	checkCmd.Flags().StringVar(&userAgent, "ua", "wikidata-qa/1.0 (https://github.com/ZeLonewolf/wikidata-qa)", "HTTP User-Agent")
	checkCmd.Flags().StringVar(&rulesFile, "rules", "", "YAML override of the boundary tag rule table")
	checkCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	checkCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	checkCmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate an LLM summary of the findings")
	checkCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	checkCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// buildConfig assembles the runtime config from defaults plus flags.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = httpTimeout
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Census.Year = censusYear
	cfg.Rules.File = rulesFile
	cfg.Output.Dir = outputDir
	cfg.Output.Verbose = verbose

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel
		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "ollama":
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}
	return cfg, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	state := args[0]
	ctx := context.Background()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	findings, err := p.Run(ctx, state, pipeline.RunOptions{InputPath: inputPath})
	if err != nil {
		return fmt.Errorf("check %s: %w", state, err)
	}

	if err := pipeline.NewRenderer(cfg.Output.Dir).Write(findings); err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s: %d boundaries, %d flagged; artifacts in %s\n",
		state, len(findings.Processed), len(findings.Flagged), cfg.Output.Dir)

	summarize(ctx, cfg, findings)
	return nil
}

// summarize prints the optional LLM findings summary. A summarizer
// failure never fails the run; the artifacts are already on disk.
func summarize(ctx context.Context, cfg *model.Config, findings *model.Findings) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: LLM summary unavailable: %v\n", err)
		return
	}
	if provider == nil {
		return
	}

	resp, err := provider.Summarize(ctx, llm.SummarizeRequest{Findings: findings})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: LLM summary failed: %v\n", err)
		return
	}
	fmt.Println(resp.Summary)
}
