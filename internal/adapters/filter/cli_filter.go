package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/ports"
	"go.uber.org/zap"
)

// CliFilter implements a command-line interface for fraud detection
type CliFilter struct {
	service    ports.Analyzer
	logger     *zap.Logger
	out        io.Writer
	verbose    bool
	jsonOutput bool
}

// NewCliFilter creates a new CLI filter writing its report to out
func NewCliFilter(service ports.Analyzer, logger *zap.Logger, out io.Writer, verbose, jsonOutput bool) *CliFilter {
	return &CliFilter{
		service:    service,
		logger:     logger,
		out:        out,
		verbose:    verbose,
		jsonOutput: jsonOutput,
	}
}

// ProcessInput analyses one input and prints the verdict
func (f *CliFilter) ProcessInput(ctx context.Context, in core.AnalysisInput) (*core.FusedVerdict, error) {
	f.logger.Debug("Processing input",
		zap.String("source", string(in.Kind)),
		zap.String("filename", in.Filename))

	startTime := time.Now()
	verdict, err := f.service.Analyze(ctx, in)
	if err != nil {
		if core.IsInputError(err) {
			fmt.Fprintf(f.out, "Error: %s\n", core.UserMessage(err))
		} else {
			f.logger.Error("Failed to analyze input", zap.Error(err))
			fmt.Fprintf(f.out, "Error: %v\n", err)
		}
		return nil, err
	}

	if f.jsonOutput {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(verdict); err != nil {
			return nil, fmt.Errorf("failed to encode verdict: %w", err)
		}
		return verdict, nil
	}

	f.printReport(verdict, time.Since(startTime))
	return verdict, nil
}

func (f *CliFilter) printReport(v *core.FusedVerdict, duration time.Duration) {
	w := f.out

	fmt.Fprintf(w, "\n=== Results ===\n")
	fmt.Fprintf(w, "Source: %s\n", v.SourceType)
	fmt.Fprintf(w, "Label: %s\n", strings.ToUpper(string(v.Label)))
	fmt.Fprintf(w, "Risk: %.1f%%\n", v.RiskPct)
	fmt.Fprintf(w, "Confidence: %.1f%%\n", v.ConfidencePct)
	if v.Override != "" {
		fmt.Fprintf(w, "Override: %s\n", v.Override)
	}
	if v.Explanation != "" {
		fmt.Fprintf(w, "Explanation: %s\n", v.Explanation)
	}

	printList(w, "Red flags", v.RedFlags)
	printList(w, "Benign notes", v.BenignNotes)
	printList(w, "Recommended actions", v.Actions)

	if f.verbose {
		if v.Metadata != nil {
			if v.Metadata.From != "" {
				fmt.Fprintf(w, "\nFrom: %s\n", v.Metadata.From)
			}
			if u := v.Metadata.TargetURL(); u != "" {
				fmt.Fprintf(w, "URL: %s\n", u)
			}
		}
		if v.Snippet != "" {
			fmt.Fprintf(w, "\nContent preview:\n%s\n", v.Snippet)
		}
		fmt.Fprintf(w, "\nAnalysis ID: %s\n", v.AnalysisID)
		fmt.Fprintf(w, "Processing time: %v\n", duration.Round(time.Millisecond))
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
