package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// optional parses query parameter key with parse. An absent or blank
// parameter yields nil.
func optional[T any](r *http.Request, key, want string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be "+want).
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	return &v, nil
}

func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	return optional(r, key, "a boolean", strconv.ParseBool)
}

func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	return optional(r, key, "a uuid", uuid.Parse)
}

// ParsePagination reads limit (1..MaxLimit, default DefaultLimit) and cursor.
// A cursor that does not decode is rejected here rather than by the listing.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := optional(r, "limit", "an integer", strconv.Atoi)
	if err != nil {
		return pagination.Params{}, err
	}
	params := pagination.Params{Limit: pagination.DefaultLimit}
	if limit != nil {
		if *limit < 1 || *limit > pagination.MaxLimit {
			return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit out of range").
				WithDetails(map[string]any{"field": "limit", "min": 1, "max": pagination.MaxLimit})
		}
		params.Limit = *limit
	}
	params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Params{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor is malformed").
			WithDetails(map[string]any{"field": "cursor"})
	}
	return params, nil
}

// URLParamUUID parses a chi path parameter. A malformed id is NOT_FOUND:
// no row can carry it.
func URLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found")
	}
	return id, nil
}
