package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wyfcoding/bloomlab/xerrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, fn func(c *gin.Context)) (int, Body) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestSuccess(t *testing.T) {
	status, body := do(t, func(c *gin.Context) { Success(c, gin.H{"size": 100}) })
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "success", body.Msg)
	assert.Equal(t, map[string]any{"size": float64(100)}, body.Data)
}

func TestError_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{xerrors.ErrFilterNotCreated, http.StatusBadRequest, 400201},
		{xerrors.ErrInvalidFilterConfig.Derive("size=0"), http.StatusBadRequest, 400101},
		{fmt.Errorf("wrapped: %w", xerrors.ErrTooManySessions), http.StatusTooManyRequests, 429201},
		{xerrors.ErrRenderFailed, http.StatusInternalServerError, 500301},
		{xerrors.ErrServiceUnavailable, http.StatusServiceUnavailable, 503001},
	}
	for _, tc := range cases {
		status, body := do(t, func(c *gin.Context) { Error(c, tc.err) })
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, body.Code)
		assert.NotEmpty(t, body.Msg)
	}
}

func TestError_HidesUnclassified(t *testing.T) {
	status, body := do(t, func(c *gin.Context) { Error(c, errors.New("db password leaked")) })
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Msg)
	assert.NotContains(t, body.Msg, "password")
}
