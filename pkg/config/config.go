// Package config loads memkit tunables from a YAML file and applies them to
// heaps and containers.
//
// Example file:
//
//	heap:
//	  unit: 65536
//	  min_allocate: 16
//	  debug: false
//	  auto_check: false
//	set:
//	  slab_size: 256
//	queue:
//	  capacity: 16
//
// Zero values mean "use the package default". MEMKIT_HEAP_UNIT and
// MEMKIT_MIN_ALLOCATE override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/memkit/mem/heap"
	"github.com/joshuapare/memkit/mem/queue"
	"github.com/joshuapare/memkit/mem/set"
	"github.com/joshuapare/memkit/pkg/types"
)

// Environment overrides.
const (
	EnvHeapUnit    = "MEMKIT_HEAP_UNIT"
	EnvMinAllocate = "MEMKIT_MIN_ALLOCATE"
)

// maxUnit bounds the growth unit to what a 32-bit block size can describe.
const maxUnit = 1 << 30

// Config holds every tunable.
type Config struct {
	Heap  HeapConfig  `yaml:"heap"`
	Set   SetConfig   `yaml:"set"`
	Queue QueueConfig `yaml:"queue"`
}

// HeapConfig configures heaps.
type HeapConfig struct {
	Unit        int  `yaml:"unit"`
	MinAllocate int  `yaml:"min_allocate"`
	Debug       bool `yaml:"debug"`
	AutoCheck   bool `yaml:"auto_check"`
}

// SetConfig configures slab pools.
type SetConfig struct {
	SlabSize int `yaml:"slab_size"`
}

// QueueConfig configures queues and stacks.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// Default returns the configuration matching the package defaults.
func Default() Config {
	return Config{
		Heap:  HeapConfig{Unit: heap.DefaultUnit, MinAllocate: heap.DefaultMinAllocate},
		Set:   SetConfig{SlabSize: set.DefaultSlabSize},
		Queue: QueueConfig{Capacity: queue.DefaultCapacity},
	}
}

// Load reads path over Default, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default, applies environment overrides and
// validates the result. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: config: %w", types.ErrInvalid, err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, o := range []struct {
		env string
		dst *int
	}{
		{EnvHeapUnit, &c.Heap.Unit},
		{EnvMinAllocate, &c.Heap.MinAllocate},
	} {
		v, ok := lookup(o.env)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: config: %s=%q: %w", types.ErrInvalid, o.env, v, err)
		}
		*o.dst = n
	}
	return nil
}

// Validate rejects negative or out-of-range values.
func (c Config) Validate() error {
	check := func(name string, v, hi int) error {
		if v < 0 || v > hi {
			return fmt.Errorf("%w: config: %s=%d out of range [0, %d]", types.ErrInvalid, name, v, hi)
		}
		return nil
	}
	for _, f := range []struct {
		name string
		v    int
		hi   int
	}{
		{"heap.unit", c.Heap.Unit, maxUnit},
		{"heap.min_allocate", c.Heap.MinAllocate, maxUnit},
		{"set.slab_size", c.Set.SlabSize, 1 << 20},
		{"queue.capacity", c.Queue.Capacity, 1 << 24},
	} {
		if err := check(f.name, f.v, f.hi); err != nil {
			return err
		}
	}
	return nil
}

// HeapOptions returns heap options for the non-zero heap settings.
func (c Config) HeapOptions() []heap.Option {
	opts := []heap.Option{heap.WithDebug(c.Heap.Debug), heap.WithAutoCheck(c.Heap.AutoCheck)}
	if c.Heap.Unit > 0 {
		opts = append(opts, heap.WithUnit(c.Heap.Unit))
	}
	if c.Heap.MinAllocate > 0 {
		opts = append(opts, heap.WithMinAllocate(c.Heap.MinAllocate))
	}
	return opts
}

// ApplyHeap retunes an existing heap.
func (c Config) ApplyHeap(h *heap.Heap) {
	if c.Heap.Unit > 0 {
		h.SetHeapUnit(c.Heap.Unit)
	}
	if c.Heap.MinAllocate > 0 {
		h.SetMinAllocate(c.Heap.MinAllocate)
	}
	h.SetAllocateDebug(c.Heap.Debug)
	h.SetManualAllocateCheck(!c.Heap.AutoCheck)
}

// SetOptions returns slab pool options.
func (c Config) SetOptions() []set.Option {
	if c.Set.SlabSize <= 0 {
		return nil
	}
	return []set.Option{set.WithSlabSize(c.Set.SlabSize)}
}

// QueueOptions returns queue and stack options.
func (c Config) QueueOptions() []queue.Option {
	if c.Queue.Capacity <= 0 {
		return nil
	}
	return []queue.Option{queue.WithCapacity(c.Queue.Capacity)}
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
