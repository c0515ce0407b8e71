package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func() error

func (f pingerFunc) Ping() error { return f() }

func TestHealthHandler_Live(t *testing.T) {
	h := NewHealthHandler("pdv-ledger", "1.0.0", nil, nil)
	c, w := newTestContext()

	h.Live(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "pdv-ledger", data["name"])
}

func TestHealthHandler_Ready(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		h := NewHealthHandler("pdv-ledger", "1.0.0", map[string]Pinger{
			"database": pingerFunc(func() error { return nil }),
		}, nil)
		c, w := newTestContext()

		h.Ready(c)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, map[string]any{"database": "ok"}, data["checks"])
	})

	t.Run("a failing check answers 503", func(t *testing.T) {
		h := NewHealthHandler("pdv-ledger", "1.0.0", map[string]Pinger{
			"database": pingerFunc(func() error { return nil }),
			"redis":    pingerFunc(func() error { return errors.New("connection refused") }),
		}, nil)
		c, w := newTestContext()

		h.Ready(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "degraded", data["status"])
		assert.Equal(t, "unavailable", data["checks"].(map[string]any)["redis"])
	})

	t.Run("a hanging check times out", func(t *testing.T) {
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		h := NewHealthHandler("pdv-ledger", "1.0.0", map[string]Pinger{
			"database": pingerFunc(func() error { <-release; return nil }),
		}, nil)
		c, w := newTestContext()

		start := time.Now()
		h.Ready(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}
