package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/heap"
	"github.com/joshuapare/memkit/pkg/config"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	configPath string

	// cfg holds tunables from --config. Zero fields leave heap files and
	// components at their own settings.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Inspect and exercise memkit heap files",
	Long: `memctl creates, inspects and checks file-backed memkit heaps, and
runs allocator stress tests in memory.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML tunables file")
}

func setup(cmd *cobra.Command, args []string) error {
	if noColor {
		color.NoColor = true
	}
	if verbose {
		logger.Init(logger.Options{Enabled: true, Writer: os.Stderr, Level: slog.LevelDebug})
	}
	cfg = config.Config{}
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// openHeap maps an existing heap file with the configured tunables.
func openHeap(path string) (*heap.Heap, error) {
	opts := append(cfg.HeapOptions(), heap.WithName(path))
	h, err := heap.OpenFile(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open heap: %w", err)
	}
	return h, nil
}

// Helper functions for output

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
	heading  = color.New(color.Bold).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, failMark("Error: ")+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatBytes renders n in B, KB or MB.
func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
