package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run the heap consistency scan",
		Long: `The check command opens a heap file and runs the full consistency
scan: chunk tiling, block magic, free-list indexes and coalescing.

Example:
  memctl check data.heap`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args)
		},
	}
	return cmd
}

func runCheck(args []string) error {
	path := args[0]

	// Opening already runs the scan; a corrupt file fails here.
	h, openErr := openHeap(path)
	var err error
	if openErr == nil {
		err = h.Check()
		_ = h.Close()
	} else {
		err = openErr
	}

	if jsonOut {
		result := map[string]any{"file": path, "valid": err == nil}
		if err != nil {
			result["error"] = err.Error()
		}
		if perr := printJSON(result); perr != nil {
			return perr
		}
		return err
	}

	if err != nil {
		printInfo("%s %s: %v\n", failMark("✗"), path, err)
		return err
	}
	printInfo("%s %s: no corruption detected\n", okMark("✓"), path)
	return nil
}
