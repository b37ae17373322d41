package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

func get(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestParsePagination(t *testing.T) {
	params, err := ParsePagination(get("/items"))
	require.NoError(t, err)
	require.Equal(t, pagination.Params{Limit: pagination.DefaultLimit}, params)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Now(), ID: uuid.New()})
	params, err = ParsePagination(get("/items?limit=7&cursor=" + cursor))
	require.NoError(t, err)
	require.Equal(t, 7, params.Limit)
	require.Equal(t, cursor, params.Cursor)

	for _, target := range []string{"/items?limit=0", "/items?limit=abc", "/items?limit=101", "/items?cursor=bm9wZQ"} {
		_, err := ParsePagination(get(target))
		require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), target)
	}
}

func TestOptionalQueryValues(t *testing.T) {
	flag, err := ParseQueryBool(get("/?active=true"), "active")
	require.NoError(t, err)
	require.True(t, *flag)

	flag, err = ParseQueryBool(get("/"), "active")
	require.NoError(t, err)
	require.Nil(t, flag)

	_, err = ParseQueryUUID(get("/?seller_id=nope"), "seller_id")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	require.Equal(t, "seller_id", pkgerrors.As(err).Details().(map[string]any)["field"])
}

func TestURLParamUUIDTreatsGarbageAsMissing(t *testing.T) {
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		return get("/").WithContext(context.WithValue(context.Background(), chi.RouteCtxKey, rctx))
	}
	id := uuid.New()
	got, err := URLParamUUID(withParam(id.String()), "id")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = URLParamUUID(withParam("12"), "id")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
