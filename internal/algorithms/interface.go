// Gradient algorithm registry
package algorithms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"edge-gradient-stream/internal/core"
)

// Algorithm computes a gradient buffer from an intensity buffer using up to workers goroutines.
type Algorithm interface {
	Apply(ctx context.Context, input *core.IntensityBuffer, workers int) (*core.GradientBuffer, error)
	GetName() string
	GetDescription() string
}

var (
	registryMu sync.RWMutex
	algorithms = make(map[string]Algorithm)
)

func Register(name string, algorithm Algorithm) {
	registryMu.Lock()
	defer registryMu.Unlock()
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

// MustGet is Get for names validated at configuration time.
func MustGet(name string) Algorithm {
	algorithm, exists := Get(name)
	if !exists {
		panic(fmt.Sprintf("algorithm not found: %s", name))
	}
	return algorithm
}

func Apply(ctx context.Context, name string, input *core.IntensityBuffer, workers int) (*core.GradientBuffer, error) {
	algorithm, exists := Get(name)
	if !exists {
		return nil, fmt.Errorf("algorithm not found: %s", name)
	}
	return algorithm.Apply(ctx, input, workers)
}

func IsValidAlgorithm(name string) bool {
	_, exists := Get(name)
	return exists
}

// Names returns the registered algorithm names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(SobelName, NewSobelFilter())
}
