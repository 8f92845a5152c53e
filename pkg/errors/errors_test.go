package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeInvalidTransition, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeTimeout, status: http.StatusGatewayTimeout, publicMsg: "operation timed out", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if got := Wrap(CodeNotFound, nil, "gone"); got.Unwrap() != nil {
		t.Fatalf("expected nil cause")
	}
}

func TestClassify(t *testing.T) {
	if Classify(CodeDependency, nil, "noop") != nil {
		t.Fatalf("nil error should stay nil")
	}

	deadline := fmt.Errorf("tx: %w", context.DeadlineExceeded)
	if got := CodeOf(Classify(CodeDependency, deadline, "advance")); got != CodeTimeout {
		t.Fatalf("expected timeout, got %s", got)
	}

	typed := New(CodeInvalidTransition, "terminal")
	if got := Classify(CodeDependency, fmt.Errorf("wrapped: %w", typed), "advance"); got != typed {
		t.Fatalf("typed errors should pass through, got %v", got)
	}

	if got := CodeOf(Classify(CodeDependency, stdErrors.New("conn reset"), "load")); got != CodeDependency {
		t.Fatalf("expected dependency, got %s", got)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	if !IsCode(err, CodeForbidden) {
		t.Fatalf("expected forbidden to be detected through wrapping")
	}
	if IsCode(stdErrors.New("plain"), CodeForbidden) {
		t.Fatalf("plain errors carry no code")
	}
	if CodeOf(nil) != CodeInternal {
		t.Fatalf("nil should map to internal")
	}
}

func TestDumpIncludesPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "license_notifications_entity_threshold_expiry_key", TableName: "license_notifications"}
	err := Wrap(CodeConflict, pgErr, "insert notification")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGTable != "license_notifications" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %d", len(d.Chain))
	}
	fields := d.Fields()
	if fields["pg_constraint"] != pgErr.ConstraintName {
		t.Fatalf("fields missing constraint: %+v", fields)
	}
}
