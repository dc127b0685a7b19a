package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daddada866/TrenchBot/internal/types"
)

func performHandle(t *testing.T, method string, data interface{}, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, "/", nil)

	Handle(c, data, err)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleSuccess(t *testing.T) {
	rec, body := performHandle(t, http.MethodGet, map[string]string{"pair": "TRCH/ETH"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)

	// POST creates resources
	rec, _ = performHandle(t, http.MethodPost, nil, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandleTaggedErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{types.ErrRateLimitExceeded, http.StatusTooManyRequests},
		{types.ErrInvalidPair, http.StatusBadRequest},
		{types.ErrMaxOrdersExceeded, http.StatusBadRequest},
		{types.ErrZeroAmount, http.StatusBadRequest},
		{types.ErrOrderNotFound, http.StatusNotFound},
		{types.ErrNotAuthorized, http.StatusForbidden},
		{types.ErrOrderAlreadyFilled, http.StatusConflict},
		{types.ErrOrderAlreadyCancelled, http.StatusConflict},
		{types.ErrInsufficientBalance, http.StatusBadRequest},
		{types.ErrSlippageExceeded, http.StatusConflict},
		{types.ErrUnknownCommand, http.StatusBadRequest},
		{types.ErrBadArgument, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(string(types.KindOf(tc.err)), func(t *testing.T) {
			rec, body := performHandle(t, http.MethodGet, nil, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, string(types.KindOf(tc.err)), body.Error.Code)
		})
	}
}

func TestHandleWrappedErrorKeepsKind(t *testing.T) {
	wrapped := fmt.Errorf("placing order: %w", types.ErrInsufficientBalance)
	rec, body := performHandle(t, http.MethodPost, nil, wrapped)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, string(types.KindInsufficientBalance), body.Error.Code)
}

func TestHandleUntaggedErrorIsSanitized(t *testing.T) {
	rec, body := performHandle(t, http.MethodGet, nil, fmt.Errorf("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrCodeInternalError, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "disk")
}
