// Package loader runs bulk loads of dimensions and facts as one atomic unit.
// The warehouse is never visible half-seeded: either every row of a load
// commits or none does.
package loader

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status of a load run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Step is one LoadDimension/LoadFact/LoadSales call of a run.
type Step struct {
	Table     string `json:"table"`
	Rows      int64  `json:"rows"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Run describes one bulk load.
type Run struct {
	ID         uuid.UUID        `json:"id"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Status     Status           `json:"status"`
	RowCounts  map[string]int64 `json:"rowCounts"`
	Steps      []Step           `json:"steps,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// TotalRows sums the row counts of every table.
func (r *Run) TotalRows() int64 {
	var total int64
	for _, n := range r.RowCounts {
		total += n
	}
	return total
}

func (r *Run) record(table string, rows int64, started time.Time) {
	r.RowCounts[table] += rows
	r.Steps = append(r.Steps, Step{
		Table:     table,
		Rows:      rows,
		ElapsedMs: time.Since(started).Milliseconds(),
	})
}

// RunLog persists load runs.
type RunLog interface {
	// Save writes run. Called inside the load transaction for completed runs
	// and outside it for failed ones.
	Save(ctx context.Context, run *Run) error
	// Last returns the most recent run.
	Last(ctx context.Context) (*Run, error)
}

// Invalidator drops cached query results after the warehouse changed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// IDSource hands out transaction ids.
type IDSource interface {
	Next(ctx context.Context) (string, error)
}
