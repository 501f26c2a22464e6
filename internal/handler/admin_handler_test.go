package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paysettle/internal/repository"
	"paysettle/internal/testutil"
)

func TestAdminHandler_Settings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := repository.NewSettingRepository(testutil.NewDB(t))
	h := NewAdminHandler(repo, zap.NewNop())
	r := gin.New()
	r.GET("/admin/settings", h.GetSettings)
	r.PUT("/admin/settings", h.UpdateSettings)

	w := doJSON(r, http.MethodPut, "/admin/settings", `{"settings":{"app.debug":"1"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/admin/settings", `{"settings":{"monnify.mode":"staging"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/admin/settings", `{"settings":{"monnify.mode":" LIVE ","monnify.live.secret_key":"SK_PROD_123"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"key":"monnify.mode","secret":false`)
	assert.Contains(t, body, `"value":"live"`)
	assert.NotContains(t, body, "SK_PROD_123")
}
