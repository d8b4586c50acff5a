package memory

import (
	"errors"
	"fmt"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

var (
	errNotInitialized = errors.New("store not initialised")
	errClosed         = errors.New("store closed")
)

func errStorage(cause error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, cause)
}
