package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreErrorUnwrapsAndRetries(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("collection: save: %w", &StoreError{Op: "put", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("store error should unwrap to its cause")
	}
	if !IsRetryable(err) {
		t.Error("store error should be retryable")
	}
	if IsRetryable(ErrNotFound) {
		t.Error("not found is not retryable")
	}
}
