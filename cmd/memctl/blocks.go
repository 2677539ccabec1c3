package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/heap"
)

var blocksFree bool

func init() {
	cmd := newBlocksCmd()
	cmd.Flags().BoolVar(&blocksFree, "free", false, "Include free blocks")
	rootCmd.AddCommand(cmd)
}

func newBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks <file>",
		Short: "List the blocks of a heap file",
		Long: `The blocks command walks every chunk of a heap file and lists its
blocks in address order.

Example:
  memctl blocks data.heap
  memctl blocks data.heap --free --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlocks(args)
		},
	}
	return cmd
}

// BlockEntry is one row of the blocks command.
type BlockEntry struct {
	Ref    string `json:"ref,omitempty"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	Used   int    `json:"used"`
	Holds  uint32 `json:"holds"`
	Align  int    `json:"align"`
	Free   bool   `json:"free"`
	Chunk  int    `json:"chunk"`
}

func runBlocks(args []string) error {
	h, err := openHeap(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	var rows []BlockEntry
	err = h.Walk(func(b heap.BlockInfo) error {
		if b.Free && !blocksFree {
			return nil
		}
		e := BlockEntry{
			Offset: b.Offset,
			Size:   b.Size,
			Used:   b.Used,
			Holds:  b.Holds,
			Align:  b.Align,
			Free:   b.Free,
			Chunk:  b.Chunk,
		}
		if !b.Free {
			e.Ref = b.Ref.String()
		}
		rows = append(rows, e)
		return nil
	})
	if err != nil {
		return err
	}

	if jsonOut {
		if rows == nil {
			rows = []BlockEntry{}
		}
		return printJSON(rows)
	}

	printInfo("%s\n", heading("OFFSET      SIZE      USED  HOLDS  ALIGN  CHUNK  REF"))
	for _, r := range rows {
		ref := r.Ref
		if r.Free {
			ref = dim("free")
		}
		printInfo("0x%08x  %8d  %8d  %5d  %5d  %5d  %s\n",
			r.Offset, r.Size, r.Used, r.Holds, r.Align, r.Chunk, ref)
	}
	printInfo("%d block(s)\n", len(rows))
	return nil
}
