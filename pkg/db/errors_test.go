package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func TestTranslateErrorPostgres(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		code       pkgerrors.Code
		constraint string
		value      string
	}{
		{
			name:       "pgx unique",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "cart_items_user_id_product_id_key", TableName: "cart_items", Detail: "Key (user_id, product_id)=(a, b) already exists."},
			code:       pkgerrors.CodeConflict,
			constraint: "cart_items_user_id_product_id_key",
			value:      "a, b",
		},
		{
			name:       "pgx check",
			err:        &pgconn.PgError{Code: "23514", ConstraintName: "products_price_check", TableName: "products"},
			code:       pkgerrors.CodeValidation,
			constraint: "products_price_check",
		},
		{
			name:       "pq foreign key",
			err:        &pq.Error{Code: "23503", Constraint: "orders_product_id_fkey", Table: "orders"},
			code:       pkgerrors.CodeValidation,
			constraint: "orders_product_id_fkey",
		},
		{
			name: "other sqlstate",
			err:  &pgconn.PgError{Code: "40001"},
			code: pkgerrors.CodeDependency,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pkgerrors.As(TranslateError(fmt.Errorf("wrapped: %w", tc.err)))
			if got == nil || got.Code() != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, got)
			}
			if tc.constraint == "" {
				return
			}
			details, ok := got.Details().(map[string]any)
			if !ok {
				t.Fatalf("expected details map, got %#v", got.Details())
			}
			if details["constraint"] != tc.constraint {
				t.Fatalf("expected constraint %s, got %v", tc.constraint, details["constraint"])
			}
			if tc.value != "" && details["value"] != tc.value {
				t.Fatalf("expected value %q, got %v", tc.value, details["value"])
			}
		})
	}
}

func TestTranslateErrorBadValuesAreValidation(t *testing.T) {
	overflow := pkgerrors.As(TranslateError(&pgconn.PgError{
		Code:       "22003",
		Message:    "numeric field overflow",
		TableName:  "orders",
		ColumnName: "total_price",
	}))
	if overflow == nil || overflow.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", overflow)
	}
	if pkgerrors.MetadataFor(overflow.Code()).Retryable {
		t.Fatal("out of range values must not be retryable")
	}
	if details := overflow.Details().(map[string]any); details["field"] != "total_price" || details["table"] != "orders" {
		t.Fatalf("unexpected details %#v", details)
	}

	syntax := pkgerrors.As(TranslateError(&pq.Error{
		Code:    "22P02",
		Message: `invalid input syntax for type uuid: "not-a-uuid"`,
	}))
	if syntax == nil || syntax.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", syntax)
	}
	if details := syntax.Details().(map[string]any); details["value"] != "not-a-uuid" {
		t.Fatalf("unexpected details %#v", details)
	}
}

func TestTranslateErrorSQLiteMessages(t *testing.T) {
	check := pkgerrors.As(TranslateError(errors.New("CHECK constraint failed: products_stock_check")))
	if check == nil || check.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", check)
	}
	if details := check.Details().(map[string]any); details["constraint"] != "products_stock_check" {
		t.Fatalf("unexpected details %#v", details)
	}

	unique := pkgerrors.As(TranslateError(errors.New("UNIQUE constraint failed: wishlist.user_id, wishlist.product_id")))
	if unique == nil || unique.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", unique)
	}

	notNull := pkgerrors.As(TranslateError(errors.New("NOT NULL constraint failed: products.title")))
	if notNull == nil || notNull.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", notNull)
	}
	if details := notNull.Details().(map[string]any); details["field"] != "title" {
		t.Fatalf("unexpected details %#v", details)
	}
}

func TestTranslateErrorPassThrough(t *testing.T) {
	if TranslateError(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	typed := pkgerrors.New(pkgerrors.CodeForbidden, "nope")
	if TranslateError(typed) != typed {
		t.Fatal("typed errors must pass through")
	}
	if !pkgerrors.Is(TranslateError(gorm.ErrRecordNotFound), pkgerrors.CodeNotFound) {
		t.Fatal("record not found must map to not found")
	}
	if !pkgerrors.Is(TranslateError(errors.New("connection reset")), pkgerrors.CodeDependency) {
		t.Fatal("unknown errors must map to dependency")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := TranslateError(&pgconn.PgError{Code: "23505", ConstraintName: "sellers_profile_id_key"})
	if !IsUniqueViolation(err, "sellers_profile_id_key") {
		t.Fatal("expected unique violation match")
	}
	if IsUniqueViolation(err, "other_key") {
		t.Fatal("unexpected match on another constraint")
	}
	if !IsUniqueViolation(errors.New(`pq: duplicate key value violates unique constraint "x"`), "") {
		t.Fatal("expected raw duplicate key message to match")
	}
}

func TestViolationCarriesDetails(t *testing.T) {
	err := Violation(ConstraintDetails{Constraint: "products_price_check", Field: "price", Value: "0"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["constraint"] != "products_price_check" || details["field"] != "price" || details["value"] != "0" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}
