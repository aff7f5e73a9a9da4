package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/mikey/llm-fraud-checker/internal/adapters/filter"
	"github.com/mikey/llm-fraud-checker/internal/adapters/tesseract"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	exitCode := 0
	err = container.Invoke(func(logger *zap.Logger, cli *filter.CliFilter, backend *tesseract.Backend) error {
		defer logger.Sync()
		defer backend.Close()

		in, err := readInput(flags)
		if err != nil {
			if core.IsInputError(err) {
				fmt.Printf("Error: %s\n", core.UserMessage(err))
				exitCode = 1
				return nil
			}
			return err
		}

		verdict, err := cli.ProcessInput(context.Background(), in)
		if err != nil {
			exitCode = 1
			return nil
		}
		if verdict.Label == core.LabelFraud {
			exitCode = 3
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// readInput builds the analysis input from the flags. Text wins over URL,
// URL over file; with none of them an email is read from stdin.
func readInput(flags *di.CLIFlags) (core.AnalysisInput, error) {
	switch {
	case flags.Text != "":
		return core.TextInput(flags.Text), nil
	case flags.URL != "":
		return core.URLInput(flags.URL), nil
	case flags.InputFile != "":
		data, err := os.ReadFile(flags.InputFile)
		if err != nil {
			return core.AnalysisInput{}, fmt.Errorf("failed to read input file: %w", err)
		}
		name := filepath.Base(flags.InputFile)
		return core.FileInput(data, name, mime.TypeByExtension(filepath.Ext(name)))
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return core.AnalysisInput{}, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return core.EmailInput(data, "stdin.eml"), nil
	}
}
