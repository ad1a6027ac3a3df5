package testutil

import "fmt"

// DefaultBatchPrefix is used by NewBatchIDGenerator when prefix is empty.
const DefaultBatchPrefix = "test-batch"

// BatchIDGenerator produces predictable import batch ids
// ("test-batch-0001", "test-batch-0002", ...) in place of UUIDv7.
//
// Plug Generate into store.Options.NewBatchID.
type BatchIDGenerator struct {
	prefix string
	clock  *DeterministicClock
}

// NewBatchIDGenerator creates a generator whose ids start with prefix.
func NewBatchIDGenerator(prefix string) *BatchIDGenerator {
	if prefix == "" {
		prefix = DefaultBatchPrefix
	}
	return &BatchIDGenerator{prefix: prefix, clock: NewDeterministicClock()}
}

// Generate returns the next id.
func (g *BatchIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.clock.Next())
}
