package service

import (
	"errors"
	"fmt"

	"readinglist/internal/domain"
)

// errUsage wraps a tag usage recompute failure that happened after the item
// write itself succeeded
var errUsage = errors.New("failed to update tag usage")

// IsUsageError reports an error raised after the item write itself was
// stored; the returned item is valid
func IsUsageError(err error) bool {
	return errors.Is(err, errUsage)
}

// persistErr marks a failed storage write. A missing record keeps its
// ErrNotFound identity instead.
func persistErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrNotPersisted, err)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}
