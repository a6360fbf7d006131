package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestGetUserIDAcceptsClaimTypes(t *testing.T) {
	for _, v := range []interface{}{float64(42), uint64(42), int64(42), 42, "42"} {
		c := newTestContext("/v1/photos")
		c.Set("user_id", v)
		id, err := getUserID(c)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), id)
	}
}

func TestGetUserIDRejectsMissingOrGarbage(t *testing.T) {
	c := newTestContext("/v1/photos")
	_, err := getUserID(c)
	assert.Error(t, err)

	c.Set("user_id", "not-a-number")
	_, err = getUserID(c)
	assert.Error(t, err)
}

func TestPageParams(t *testing.T) {
	limit, offset := pageParams(newTestContext("/v1/photos"))
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pageParams(newTestContext("/v1/photos?limit=10&offset=30"))
	assert.Equal(t, 10, limit)
	assert.Equal(t, 30, offset)

	limit, _ = pageParams(newTestContext("/v1/photos?limit=9999"))
	assert.Equal(t, 200, limit)

	limit, offset = pageParams(newTestContext("/v1/photos?limit=-5&offset=-1"))
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)
}
