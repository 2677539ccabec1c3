package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/memkit/mem/heap"
)

var (
	stressWorkers    int
	stressIterations int
	stressMaxSize    int
	stressSeed       int64
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressWorkers, "workers", 4, "Concurrent workers")
	cmd.Flags().IntVar(&stressIterations, "iterations", 1000, "Operations per worker")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 512, "Largest payload allocated")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent allocator stress test in memory",
		Long: `The stress command runs workers against one in-memory heap. Every
worker allocates, reallocates, holds and releases its own blocks, and all
workers hold and release one shared block. The heap is checked at the end;
a shared hold count other than one, or a failed scan, is an error.

Example:
  memctl stress --workers 8 --iterations 10000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context())
		},
	}
	return cmd
}

// StressResult is the stress command's report.
type StressResult struct {
	Workers    int            `json:"workers"`
	Iterations int            `json:"iterations"`
	Elapsed    string         `json:"elapsed"`
	Stats      map[string]any `json:"stats"`
	Counters   heap.Counters  `json:"counters"`
}

func runStress(ctx context.Context) error {
	if stressWorkers < 1 || stressIterations < 0 || stressMaxSize < 1 {
		return errors.New("--workers and --max-size must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h := heap.New(append(cfg.HeapOptions(), heap.WithName("stress"))...)
	defer h.Close()

	shared, err := h.Allocate(64)
	if err != nil {
		return err
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := range stressWorkers {
		g.Go(func() error {
			return stressWorker(ctx, h, shared, rand.New(rand.NewSource(stressSeed+int64(w))))
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("stress: %w", err)
	}
	elapsed := time.Since(start)

	if n, err := h.Holds(shared); err != nil || n != 1 {
		return fmt.Errorf("stress: shared block holds = %d, err = %v", n, err)
	}
	if err := h.Check(); err != nil {
		return fmt.Errorf("stress: %w", err)
	}

	res := StressResult{
		Workers:    stressWorkers,
		Iterations: stressIterations,
		Elapsed:    elapsed.String(),
		Stats:      statsJSON(h.Stats()),
		Counters:   h.Counters(),
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("%s %d workers x %d ops in %s\n", okMark("✓"), res.Workers, res.Iterations, res.Elapsed)
	printInfo("  %s\n", h.Stats())
	printInfo("  allocs=%d frees=%d grows=%d moves=%d\n",
		res.Counters.AllocCalls, res.Counters.FreeCalls, res.Counters.GrowCalls, res.Counters.ReallocMoved)
	return nil
}

func stressWorker(ctx context.Context, h *heap.Heap, shared heap.Ref, rng *rand.Rand) error {
	var live []heap.Ref
	defer func() {
		for _, r := range live {
			_ = h.Release(r)
		}
	}()
	for i := range stressIterations {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := h.Hold(shared); err != nil {
			return err
		}
		switch op := rng.Intn(4); {
		case op < 2 || len(live) == 0:
			ref, err := h.Allocate(1 + rng.Intn(stressMaxSize))
			if err != nil {
				return err
			}
			live = append(live, ref)
		case op == 2:
			k := rng.Intn(len(live))
			ref, err := h.Reallocate(live[k], 1+rng.Intn(stressMaxSize))
			if err != nil {
				return err
			}
			live[k] = ref
		default:
			k := rng.Intn(len(live))
			if err := h.Release(live[k]); err != nil {
				return err
			}
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]
		}
		if err := h.Release(shared); err != nil {
			return err
		}
	}
	return nil
}
