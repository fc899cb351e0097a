package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kenko/internal/model"
	"github.com/ashita-ai/kenko/internal/rules"
	"github.com/ashita-ai/kenko/internal/service/analysis"
	"github.com/ashita-ai/kenko/internal/storage/sqlite"
)

type analyzeFlags struct {
	input     string
	asOf      string
	store     string
	rulesFile string
	pretty    bool
}

func newAnalyzeCmd(stdout, stderr io.Writer) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a records file offline and print the report",
		Long: `Run the full pipeline over a JSON file holding an analysis input
({"records": {...}, "as_of": ..., "baseline": ...}) or a bare records object
({"customers": [...], "sales": [...]}). The report is written to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, f, stdout, stderr)
		},
	}
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Path to the input JSON file (- for stdin)")
	cmd.Flags().StringVar(&f.asOf, "as-of", "", "Reference date, YYYY-MM-DD (default: input as_of, then today)")
	cmd.Flags().StringVar(&f.store, "store", "", "Also save the report to this SQLite database")
	cmd.Flags().StringVar(&f.rulesFile, "rules", os.Getenv("KENKO_RULES_FILE"), "YAML rule overrides")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "Indent the JSON output")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runAnalyze(cmd *cobra.Command, f analyzeFlags, stdout, stderr io.Writer) error {
	ctx := cmd.Context()
	logger := newLogger(stderr)

	in, err := readInput(f.input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if f.asOf != "" {
		d, err := model.ParseDate(f.asOf)
		if err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
		in.AsOf = &d
	}
	if err := model.ValidateAnalysisInput(in); err != nil {
		return fmt.Errorf("input: %w", err)
	}

	ruleSet, err := rules.Load(f.rulesFile)
	if err != nil {
		return err
	}

	var store analysis.ReportStore
	if f.store != "" {
		s, err := sqlite.Open(ctx, f.store, logger)
		if err != nil {
			return err
		}
		defer s.Close(ctx)
		store = s
	}

	svc := analysis.New(analysis.NewPipeline(ruleSet), store, nil, logger)
	report, err := svc.Analyze(ctx, in)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if f.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}

// readInput accepts either a full AnalysisInput or a bare Records object.
func readInput(path string, stdin io.Reader) (model.AnalysisInput, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // path is an operator-supplied CLI argument
	}
	if err != nil {
		return model.AnalysisInput{}, fmt.Errorf("read input: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return model.AnalysisInput{}, fmt.Errorf("parse input: %w", err)
	}

	var in model.AnalysisInput
	if _, ok := probe["records"]; ok {
		err = json.Unmarshal(data, &in)
	} else {
		err = json.Unmarshal(data, &in.Records)
	}
	if err != nil {
		return model.AnalysisInput{}, fmt.Errorf("parse input: %w", err)
	}
	return in, nil
}
