package commands

import (
	"context"
	"errors"

	"github.com/goliatone/go-cms-replace/internal/matcher"
	"github.com/goliatone/go-cms-replace/internal/replace"
	"github.com/goliatone/go-cms-replace/internal/reports"
	goerrors "github.com/goliatone/go-errors"
)

const (
	commandValidationCode   = "COMMAND_VALIDATION_FAILED"
	commandContextCanceled  = "COMMAND_CONTEXT_CANCELED"
	commandContextTimeout   = "COMMAND_CONTEXT_TIMEOUT"
	commandContextErrorCode = "COMMAND_CONTEXT_ERROR"
	commandExecuteFailed    = "COMMAND_EXECUTION_FAILED"
)

// Text codes attached to domain failures surfaced through handlers.
const (
	CodeInvalidPattern   = "REPLACE_INVALID_PATTERN"
	CodeDangerousPattern = "REPLACE_DANGEROUS_PATTERN"
	CodeNoSelection      = "REPLACE_NO_SELECTION"
	CodeAlreadyUndone    = "REPLACE_ALREADY_UNDONE"
	CodeIrreversible     = "REPLACE_UNDO_IRREVERSIBLE"
	CodeReportNotFound   = "REPLACE_REPORT_NOT_FOUND"
)

type domainFailure struct {
	target   error
	category goerrors.Category
	message  string
	code     string
}

// Order matters: the first sentinel matched by errors.Is wins.
var domainFailures = []domainFailure{
	{matcher.ErrDangerousPattern, goerrors.CategoryValidation, "pattern rejected", CodeDangerousPattern},
	{matcher.ErrInvalidPattern, goerrors.CategoryValidation, "pattern invalid", CodeInvalidPattern},
	{replace.ErrNoSelection, goerrors.CategoryValidation, "nothing selected", CodeNoSelection},
	{reports.ErrAlreadyUndone, goerrors.CategoryConflict, "report already undone", CodeAlreadyUndone},
	{reports.ErrUndoIrreversible, goerrors.CategoryConflict, "report cannot be undone", CodeIrreversible},
	{reports.ErrReportNotFound, goerrors.CategoryNotFound, "report not found", CodeReportNotFound},
}

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(commandValidationCode)
}

func wrapContextError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution cancelled").
			WithTextCode(commandContextCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution deadline exceeded").
			WithTextCode(commandContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command context error").
			WithTextCode(commandContextErrorCode)
	}
}

// wrapExecuteError tags domain sentinels with their text code and falls back
// to the generic execution failure.
func wrapExecuteError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	for _, failure := range domainFailures {
		if errors.Is(err, failure.target) {
			return goerrors.Wrap(err, failure.category, failure.message).WithTextCode(failure.code)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapContextError(err)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
		WithTextCode(commandExecuteFailed)
}

// TextCode returns the text code attached by a handler, or an empty string.
func TextCode(err error) string {
	var wrapped *goerrors.Error
	if errors.As(err, &wrapped) && wrapped != nil {
		return wrapped.TextCode
	}
	return ""
}
