package domain

import internaldomain "github.com/goliatone/go-cms-replace/internal/domain"

// Status represents publication states reported for content records.
type Status = internaldomain.Status

const (
	// StatusDraft indicates content still under preparation.
	StatusDraft = internaldomain.StatusDraft
	// StatusPublished identifies content available to consumers.
	StatusPublished = internaldomain.StatusPublished
	// StatusArchived marks content that is retained for history but not publicly visible.
	StatusArchived = internaldomain.StatusArchived
)

// NormalizeStatus coerces free-form status strings, defaulting to draft.
func NormalizeStatus(input string) Status {
	return internaldomain.NormalizeStatus(input)
}
