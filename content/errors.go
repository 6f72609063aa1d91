package content

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound      = errors.New("content: record not found")
	ErrRecordIDRequired    = errors.New("content: record id required")
	ErrRecordKindRequired  = errors.New("content: record kind required")
	ErrBundleNotFound      = errors.New("content: bundle not registered")
	ErrTranslationNotFound = errors.New("content: translation not found")
)

// NotFoundError represents missing records from store lookups.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// Unwrap lets callers test against ErrRecordNotFound regardless of resource.
func (e *NotFoundError) Unwrap() error {
	return ErrRecordNotFound
}
