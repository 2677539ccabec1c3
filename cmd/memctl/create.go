package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/heap"
)

var (
	createSize  int
	createForce bool
)

func init() {
	cmd := newCreateCmd()
	cmd.Flags().IntVar(&createSize, "size", 0, "Initial chunk size in bytes (default: configured heap unit)")
	cmd.Flags().BoolVar(&createForce, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(cmd)
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Create an empty heap file",
		Long: `The create command writes a new heap file with one empty chunk.
The chunk size also becomes the heap's growth unit.

Example:
  memctl create data.heap
  memctl create data.heap --size 1048576`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}
	return cmd
}

func runCreate(args []string) error {
	path := args[0]

	if _, err := os.Stat(path); err == nil && !createForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if createSize < 0 {
		return fmt.Errorf("invalid --size %d", createSize)
	}

	opts := append(cfg.HeapOptions(), heap.WithName(path))
	if createSize > 0 {
		opts = append(opts, heap.WithUnit(createSize))
	}
	printVerbose("Creating heap: %s\n", path)
	h, err := heap.CreateFile(path, opts...)
	if err != nil {
		return fmt.Errorf("failed to create heap: %w", err)
	}
	unit := h.HeapUnit()
	if err := h.Close(); err != nil {
		return fmt.Errorf("failed to close heap: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]any{"file": path, "unit": unit})
	}
	printInfo("%s Created %s (unit %s)\n", okMark("✓"), path, formatBytes(int64(unit)))
	return nil
}
