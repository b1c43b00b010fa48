package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict, detailsOK: true},
		{code: CodeGone, status: http.StatusGone},
		{code: CodeIdempotency, status: http.StatusConflict, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
			assert.NotEmpty(t, meta.PublicMessage)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestConstructors(t *testing.T) {
	base := New(CodeValidation, "title required")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "title required", base.Message())
	assert.Nil(t, base.Details())
	assert.Equal(t, "VALIDATION_ERROR: title required", base.Error())

	base.WithDetails(map[string]any{"field": "title"})
	assert.NotNil(t, base.Details())

	formatted := Newf(CodeNotFound, "recruitment %d not found", 9)
	assert.Equal(t, "recruitment 9 not found", formatted.Message())

	cause := stdErrors.New("connection reset")
	wrapped := Wrap(CodeDependency, cause, "lock party")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "DEPENDENCY_ERROR: lock party: connection reset", wrapped.Error())
}

func TestAsAndIs(t *testing.T) {
	err := fmt.Errorf("approve: %w", New(CodeGone, "party already deleted"))
	require.NotNil(t, As(err))
	assert.True(t, Is(err, CodeGone))
	assert.False(t, Is(err, CodeConflict))
	assert.False(t, Is(stdErrors.New("plain"), CodeInternal))
	assert.Nil(t, As(nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeForbidden, CodeOf(New(CodeForbidden, "editors cannot end a party")))
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("boom")))
}

func TestDiagnoseCapturesPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_party_users_one_master", TableName: "party_users"}
	err := Wrap(CodeConflict, fmt.Errorf("delegate: %w", pgErr), "master already assigned")

	d := Diagnose(err)
	assert.Equal(t, CodeConflict, d.Code)
	require.NotNil(t, d.Postgres)
	assert.Equal(t, "23505", d.Postgres.Code)
	assert.Len(t, d.Chain, 3)

	fields := d.Fields()
	assert.Equal(t, "ux_party_users_one_master", fields["pg_constraint"])
	assert.NotContains(t, fields, "pg_column")
}

func TestDiagnosePlainError(t *testing.T) {
	d := Diagnose(stdErrors.New("boom"))
	assert.Nil(t, d.Postgres)
	assert.Equal(t, CodeInternal, d.Code)
	assert.NotContains(t, d.Fields(), "pg_code")
	assert.Empty(t, Diagnose(nil).Chain)
}
