package domain

import "strings"

// Status represents publication states for content records
type Status string

const (
	// StatusDraft indicates content still under preparation
	StatusDraft Status = "draft"
	// StatusPublished identifies content available to consumers
	StatusPublished Status = "published"
	// StatusArchived marks content that is retained for history but not publicly visible
	StatusArchived Status = "archived"
)

// NormalizeStatus coerces free-form status strings, defaulting to draft.
func NormalizeStatus(input string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(input))) {
	case StatusPublished:
		return StatusPublished
	case StatusArchived:
		return StatusArchived
	default:
		return StatusDraft
	}
}

// Label renders the status the way listings and exports display it.
func (s Status) Label() string {
	switch s {
	case StatusPublished:
		return "Published"
	case StatusArchived:
		return "Archived"
	default:
		return "Unpublished"
	}
}
