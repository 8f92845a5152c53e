package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if code, constraint, table, detail, ok := PGFields(err); ok {
		d.PGCode = code
		d.PGConstraint = constraint
		d.PGTable = table
		d.PGDetail = detail
	}
	return d
}

// PGFields extracts Postgres diagnostics from either pgx or lib/pq errors.
func PGFields(err error) (code, constraint, table, detail string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail, true
	}
	return "", "", "", "", false
}

// Fields returns the dump as logger fields, omitting empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error_message": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	if d.PGCode != "" {
		fields["pg_code"] = d.PGCode
		fields["pg_constraint"] = d.PGConstraint
		fields["pg_table"] = d.PGTable
	}
	return fields
}
