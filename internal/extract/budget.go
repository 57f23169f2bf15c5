package extract

import (
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/properties"
)

// Budget is the explicit concurrency configuration of one extraction run.
// TotalWorkers bounds the number of concurrent in-flight remote queries;
// FieldWorkers of those drive the outer field-level pool, and each field's
// date-chunk pool sizes itself on what remains.
type Budget struct {
	TotalWorkers int
	FieldWorkers int
}

// DefaultBudget reads the worker split from the environment.
func DefaultBudget() Budget {
	return Budget{
		TotalWorkers: properties.ExtractionWorkers(),
		FieldWorkers: properties.FieldWorkers(),
	}
}

// chunkWorkers is the inner-pool size once the outer pool's share is
// reserved. Never below 1, so a fully consumed budget still progresses.
func (b Budget) chunkWorkers() int {
	workers := b.TotalWorkers - b.FieldWorkers
	if workers < 1 {
		return 1
	}
	return workers
}

// outerWorkers bounds the field-level pool.
func (b Budget) outerWorkers() int {
	if b.FieldWorkers < 1 {
		return 1
	}
	return b.FieldWorkers
}
