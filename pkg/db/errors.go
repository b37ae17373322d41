package db

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgNumericOutOfRange   = "22003"
	pgInvalidTextRep      = "22P02"
)

// ConstraintDetails is attached to every constraint violation surfaced to callers.
type ConstraintDetails struct {
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Field      string `json:"field,omitempty"`
	Value      string `json:"value,omitempty"`
}

func (d ConstraintDetails) asMap() map[string]any {
	out := map[string]any{}
	if d.Constraint != "" {
		out["constraint"] = d.Constraint
	}
	if d.Table != "" {
		out["table"] = d.Table
	}
	if d.Field != "" {
		out["field"] = d.Field
	}
	if d.Value != "" {
		out["value"] = d.Value
	}
	return out
}

// IsUniqueViolation reports whether the provided error references a unique
// violation. When constraintName is provided, the constraint must match too.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
		if constraintName == "" {
			return true
		}
		if details, ok := typed.Details().(map[string]any); ok {
			return details["constraint"] == constraintName
		}
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed") || errors.Is(err, gorm.ErrDuplicatedKey)
}

// TranslateError maps driver errors onto the structured error taxonomy. Errors
// that are already typed, and nil, pass through unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "resource not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromSQLState(err, pgErr.Code, ConstraintDetails{
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Field:      pgErr.ColumnName,
			Value:      valueFromDetail(pgErr.Detail, pgErr.Message),
		})
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fromSQLState(err, string(pqErr.Code), ConstraintDetails{
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Field:      pqErr.Column,
			Value:      valueFromDetail(pqErr.Detail, pqErr.Message),
		})
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return constraintError(pkgerrors.CodeConflict, err, ConstraintDetails{})
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return constraintError(pkgerrors.CodeValidation, err, ConstraintDetails{})
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return constraintError(pkgerrors.CodeValidation, err, ConstraintDetails{})
	}

	if translated := fromSQLiteMessage(err); translated != nil {
		return translated
	}

	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database operation failed")
}

func fromSQLState(err error, code string, details ConstraintDetails) error {
	switch code {
	case pgUniqueViolation:
		return constraintError(pkgerrors.CodeConflict, err, details)
	case pgCheckViolation, pgForeignKeyViolation, pgNotNullViolation:
		return constraintError(pkgerrors.CodeValidation, err, details)
	case pgNumericOutOfRange, pgInvalidTextRep:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid value").WithDetails(details.asMap())
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database operation failed")
	}
}

func constraintError(code pkgerrors.Code, err error, details ConstraintDetails) error {
	msg := "constraint violation"
	if details.Constraint != "" {
		msg = "constraint violation: " + details.Constraint
	}
	return pkgerrors.Wrap(code, err, msg).WithDetails(details.asMap())
}

var (
	pgDetailValue  = regexp.MustCompile(`^Key \(([^)]*)\)=\(([^)]*)\)`)
	pgMessageValue = regexp.MustCompile(`^invalid input syntax for type \w+: "(.*)"$`)
)

// valueFromDetail extracts the offending value from a Postgres detail string
// such as `Key (user_id, product_id)=(a, b) already exists.`, falling back to
// the quoted input of an `invalid input syntax` message.
func valueFromDetail(detail, message string) string {
	if m := pgDetailValue.FindStringSubmatch(detail); len(m) == 3 {
		return m[2]
	}
	if m := pgMessageValue.FindStringSubmatch(message); len(m) == 2 {
		return m[1]
	}
	return ""
}

var (
	sqliteCheck   = regexp.MustCompile(`CHECK constraint failed: (\S+)`)
	sqliteUnique  = regexp.MustCompile(`UNIQUE constraint failed: ([\w.]+)`)
	sqliteNotNull = regexp.MustCompile(`NOT NULL constraint failed: (\w+)\.(\w+)`)
)

func fromSQLiteMessage(err error) error {
	msg := err.Error()
	if m := sqliteCheck.FindStringSubmatch(msg); m != nil {
		return constraintError(pkgerrors.CodeValidation, err, ConstraintDetails{Constraint: m[1]})
	}
	if m := sqliteUnique.FindStringSubmatch(msg); m != nil {
		table, column, _ := strings.Cut(m[1], ".")
		return constraintError(pkgerrors.CodeConflict, err, ConstraintDetails{Table: table, Field: column})
	}
	if m := sqliteNotNull.FindStringSubmatch(msg); m != nil {
		return constraintError(pkgerrors.CodeValidation, err, ConstraintDetails{Table: m[1], Field: m[2]})
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return constraintError(pkgerrors.CodeValidation, err, ConstraintDetails{})
	}
	return nil
}

// Violation reports a check constraint enforced before the write reaches the
// database, shaped like the translated driver error.
func Violation(details ConstraintDetails) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "constraint violation: "+details.Constraint).WithDetails(details.asMap())
}
