package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/creatorhub/internal/api/response"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestNewMeta_GeneratesUUID(t *testing.T) {
	meta := response.NewMeta("")

	_, err := uuid.Parse(meta.RequestID)
	assert.NoError(t, err)
	assert.NotEmpty(t, meta.Timestamp)
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	response.Success(w, http.StatusCreated, map[string]string{"id": "e1"}, "req-1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	env := decode(t, w)
	assert.Nil(t, env["error"])
	assert.Equal(t, "e1", env["data"].(map[string]any)["id"])
	assert.Equal(t, "req-1", env["meta"].(map[string]any)["requestId"])
}

func TestSuccessList_IncludesPagination(t *testing.T) {
	w := httptest.NewRecorder()

	response.SuccessList(w, http.StatusOK, []string{"a", "b"}, 42, 2, 20, "req-2")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	env := decode(t, w)
	meta := env["meta"].(map[string]any)
	assert.Equal(t, float64(42), meta["total"])
	assert.Equal(t, float64(2), meta["page"])
	assert.Equal(t, float64(20), meta["limit"])
	assert.Equal(t, "req-2", meta["requestId"])
	assert.Len(t, env["data"], 2)
}

func TestErr_OmitsDetails(t *testing.T) {
	w := httptest.NewRecorder()

	response.Err(w, http.StatusConflict, response.CodeLockedByAncestor, "locked", "req-3")

	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Nil(t, env["data"])

	apiErr := env["error"].(map[string]any)
	assert.Equal(t, "LOCKED_BY_ANCESTOR", apiErr["code"])
	assert.Equal(t, "locked", apiErr["message"])
	_, hasDetails := apiErr["details"]
	assert.False(t, hasDetails)
}

func TestValidation(t *testing.T) {
	w := httptest.NewRecorder()

	response.Validation(w, []map[string]string{{"field": "pattern", "message": "pattern is required"}}, "req-4")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decode(t, w)["error"].(map[string]any)
	assert.Equal(t, response.CodeValidation, apiErr["code"])
	assert.Equal(t, "Input validation failed", apiErr["message"])

	details := apiErr["details"].([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "pattern", details[0].(map[string]any)["field"])
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	response.NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}
