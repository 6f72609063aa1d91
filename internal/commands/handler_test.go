package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-cms-replace/internal/matcher"
	"github.com/goliatone/go-cms-replace/internal/replace"
	"github.com/goliatone/go-cms-replace/internal/reports"
	goerrors "github.com/goliatone/go-errors"
)

type testMessage struct{}

func (testMessage) Type() string { return "replace.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "replace.test.invalid" }

func (invalidMessage) Validate() error {
	return validationError()
}

func validationError() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerTagsDomainFailures(t *testing.T) {
	cases := []struct {
		err      error
		category goerrors.Category
		code     string
	}{
		{&matcher.PatternError{Pattern: "(", Err: matcher.ErrInvalidPattern}, goerrors.CategoryValidation, CodeInvalidPattern},
		{&matcher.PatternError{Pattern: "(?R)", Err: matcher.ErrDangerousPattern}, goerrors.CategoryValidation, CodeDangerousPattern},
		{replace.ErrNoSelection, goerrors.CategoryValidation, CodeNoSelection},
		{fmt.Errorf("undo: %w", reports.ErrAlreadyUndone), goerrors.CategoryConflict, CodeAlreadyUndone},
		{reports.ErrUndoIrreversible, goerrors.CategoryConflict, CodeIrreversible},
		{reports.ErrReportNotFound, goerrors.CategoryNotFound, CodeReportNotFound},
		{errors.New("disk full"), goerrors.CategoryCommand, commandExecuteFailed},
	}
	for _, tc := range cases {
		h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
			return tc.err
		})
		err := h.Execute(context.Background(), testMessage{})
		if !goerrors.IsCategory(err, tc.category) {
			t.Fatalf("%v: expected category %s, got %v", tc.err, tc.category, err)
		}
		if got := TextCode(err); got != tc.code {
			t.Fatalf("%v: expected text code %s, got %q", tc.err, tc.code, got)
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("%v: expected wrapped error to unwrap to source", tc.err)
		}
	}
}

func TestHandlerReportsTelemetry(t *testing.T) {
	var infos []TelemetryInfo
	record := func(ctx context.Context, _ testMessage, info TelemetryInfo) {
		infos = append(infos, info)
	}
	fail := true
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		if fail {
			return reports.ErrAlreadyUndone
		}
		return nil
	},
		WithOperation[testMessage]("reports.undo"),
		WithMessageFields[testMessage](func(testMessage) map[string]any { return map[string]any{"report_id": "r1"} }),
		WithTelemetry[testMessage](record),
	)

	_ = h.Execute(context.Background(), testMessage{})
	fail = false
	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if len(infos) != 2 {
		t.Fatalf("expected 2 telemetry calls, got %d", len(infos))
	}
	if infos[0].Status != TelemetryStatusFailed || !errors.Is(infos[0].Error, reports.ErrAlreadyUndone) {
		t.Fatalf("unexpected failure telemetry %+v", infos[0])
	}
	if infos[0].TextCode != CodeAlreadyUndone {
		t.Fatalf("expected text code %s, got %q", CodeAlreadyUndone, infos[0].TextCode)
	}
	if infos[1].Status != TelemetryStatusSuccess || infos[1].Operation != "reports.undo" || infos[1].TextCode != "" {
		t.Fatalf("unexpected success telemetry %+v", infos[1])
	}
	if infos[1].Fields["report_id"] != "r1" || infos[1].Command != "replace.test.message" {
		t.Fatalf("expected message fields in telemetry, got %+v", infos[1].Fields)
	}
}
