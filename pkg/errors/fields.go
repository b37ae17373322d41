package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the code and step of the
// outermost typed error, the unwrap chain, any constraint details, and the
// raw driver diagnostics when a Postgres error sits underneath.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}

	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
		if details, ok := typed.Details().(map[string]any); ok {
			for _, k := range []string{"constraint", "table", "field"} {
				if v, ok := details[k]; ok {
					fields[k] = v
				}
			}
		}
	}
	if step := Step(err); step != "" {
		fields["step"] = step
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		fields["pg_code"] = pgxErr.Code
		fields["pg_message"] = pgxErr.Message
		if pgxErr.Detail != "" {
			fields["pg_detail"] = pgxErr.Detail
		}
		if pgxErr.ConstraintName != "" {
			fields["constraint"] = pgxErr.ConstraintName
		}
	case errors.As(err, &pqErr):
		fields["pg_code"] = string(pqErr.Code)
		fields["pg_message"] = pqErr.Message
		if pqErr.Detail != "" {
			fields["pg_detail"] = pqErr.Detail
		}
		if pqErr.Constraint != "" {
			fields["constraint"] = pqErr.Constraint
		}
	}
	return fields
}
