package fact

import (
	"context"
)

// Repository defines fact data access. There is no update or delete.
type Repository interface {
	// Append writes rows of a single kind and returns the number written.
	Append(ctx context.Context, kind Kind, rows []Row) (int64, error)
}
