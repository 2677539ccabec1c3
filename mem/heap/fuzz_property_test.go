package heap

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type liveBlock struct {
	ref  Ref
	want []byte
}

// Test_Fuzz_RandomOps_GuardInvariants runs random allocator operations and
// validates the consistency scan and every live block's contents after each step.
func Test_Fuzz_RandomOps_GuardInvariants(t *testing.T) {
	for _, cfg := range []SizeClassConfig{ConfigFine, ConfigCoarse} {
		t.Run(cfg.Name, func(t *testing.T) {
			h := newTestHeap(t, WithSizeClasses(cfg))
			rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
			var live []*liveBlock

			pick := func() *liveBlock { return live[rng.Intn(len(live))] }

			for step := range 2000 {
				op := rng.Intn(6)
				if len(live) == 0 {
					op = 0
				}

				switch op {
				case 0, 1: // Allocate
					size := 1 + rng.Intn(700)
					align := 1 << rng.Intn(6)
					ref, err := h.AllocateAligned(size, align)
					require.NoError(t, err, "step %d", step)
					buf, err := h.Bytes(ref)
					require.NoError(t, err)
					rng.Read(buf)
					live = append(live, &liveBlock{ref: ref, want: bytes.Clone(buf)})

				case 2: // Release
					i := rng.Intn(len(live))
					require.NoError(t, h.Release(live[i].ref), "step %d", step)
					live = append(live[:i], live[i+1:]...)

				case 3: // Reallocate
					lb := pick()
					n := 1 + rng.Intn(900)
					ref, err := h.Reallocate(lb.ref, n)
					require.NoError(t, err, "step %d", step)
					want := make([]byte, n)
					copy(want, lb.want)
					lb.ref, lb.want = ref, want

				case 4: // Preallocate
					lb := pick()
					n := 1 + rng.Intn(900)
					ref, err := h.Preallocate(lb.ref, n)
					require.NoError(t, err, "step %d", step)
					want := make([]byte, n)
					keep := min(n, len(lb.want))
					copy(want[n-keep:], lb.want[len(lb.want)-keep:])
					lb.ref, lb.want = ref, want

				case 5: // Defragment
					lb := pick()
					_, err := h.Defragment(&lb.ref)
					require.NoError(t, err, "step %d", step)
				}

				require.NoError(t, h.Check(), "step %d", step)
				for _, lb := range live {
					got, err := h.Bytes(lb.ref)
					require.NoError(t, err, "step %d", step)
					require.Equal(t, lb.want, got, "step %d ref %v", step, lb.ref)
				}
			}

			st := h.Stats()
			require.Equal(t, len(live), st.Blocks)
			for _, lb := range live {
				require.NoError(t, h.Release(lb.ref))
			}
			st = h.Stats()
			require.Zero(t, st.Blocks)
			require.Equal(t, st.Chunks, st.FreeBlocks, "each chunk collapses to one free block")
		})
	}
}
