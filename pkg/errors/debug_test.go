package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpExtractsPgxDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "parkings_count_car_check", TableName: "parkings"}
	err := Wrap(CodeInternal, fmt.Errorf("update count: %w", pgErr), "increment failed")

	d := Dump(err)
	assert.Equal(t, CodeInternal, d.Code)
	require.NotNil(t, d.PG)
	assert.Equal(t, "23514", d.PG.Code)
	assert.Equal(t, "parkings_count_car_check", d.PG.Constraint)
	assert.GreaterOrEqual(t, len(d.Chain), 3)
	assert.Equal(t, "parkings", d.Fields()["pg_table"])
}

func TestDumpExtractsPqDiagnostics(t *testing.T) {
	d := Dump(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	require.NotNil(t, d.PG)
	assert.Equal(t, "23505", d.PG.Code)
	assert.Equal(t, "users_email_key", d.PG.Constraint)
}

func TestDumpWithoutPostgresError(t *testing.T) {
	d := Dump(New(CodeNotFound, "parking not found"))
	assert.Nil(t, d.PG)
	assert.NotContains(t, d.Fields(), "pg_code")
	assert.Equal(t, ErrorDump{}, Dump(nil))
}
