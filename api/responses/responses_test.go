package responses

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCreated(w, map[string]string{"hello": "world"})
	require.Equal(t, http.StatusCreated, w.Code)

	var body Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteErrorKeepsStepDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.AtStep(pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]any{"field": "quantity"}), "create_order")
	WriteError(t.Context(), nil, w, err)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
	require.Equal(t, "bad input", body.Error.Message)
	details, ok := body.Error.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "quantity", details["field"])
	require.Equal(t, "create_order", details["step"])
}

func TestWriteErrorHidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, errors.New("dial tcp 10.0.0.3:5432: refused"))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	require.NotContains(t, body.Error.Message, "10.0.0.3")
}

func TestWriteErrorExposesOnlyStepForNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.AtStep(pkgerrors.New(pkgerrors.CodeNotFound, "resource not found").
		WithDetails(map[string]any{"product_id": "secret"}), "load_product")
	WriteError(t.Context(), nil, w, err)
	require.Equal(t, http.StatusNotFound, w.Code)

	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, map[string]any{"step": "load_product"}, body.Error.Details)
}

func TestWriteErrorConflictKeepsConstraint(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeConflict, "already in wishlist").
		WithDetails(map[string]any{"constraint": "wishlist_user_id_product_id_key"})
	WriteError(t.Context(), nil, w, err)
	require.Equal(t, http.StatusConflict, w.Code)

	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "already in wishlist", body.Error.Message)
	require.Equal(t, "wishlist_user_id_product_id_key", body.Error.Details.(map[string]any)["constraint"])
}
