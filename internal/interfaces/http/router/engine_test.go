package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/restodash/backend/internal/application/cashregister"
	"github.com/restodash/backend/internal/infrastructure/persistence"
	"github.com/restodash/backend/internal/infrastructure/persistence/models"
	"github.com/restodash/backend/internal/interfaces/http/dto"
	"github.com/restodash/backend/internal/interfaces/http/handler"
	"github.com/restodash/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

func newTestEngine(t *testing.T) (*gin.Engine, uuid.UUID) {
	t.Helper()

	database, err := persistence.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate())

	restaurantID := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, database.DB.Create(&models.RestaurantModel{
		ID: restaurantID, Name: "Cantina", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	service := ledgerapp.NewLedgerService(
		persistence.NewGormLedgerStore(database.DB),
		persistence.NewGormRestaurantDirectory(database.DB),
	)

	engine, err := NewEngine(EngineConfig{
		Logger:      zap.NewNop(),
		CORS:        CORSFromOrigins([]string{"http://pdv.local"}),
		MaxBodySize: 1024,
		Health:      handler.NewHealthHandler("pdv-ledger", "test", map[string]handler.Pinger{"database": database}, nil),
		Registers:   handler.NewCashRegisterHandler(service, nil),
	})
	require.NoError(t, err)
	return engine, restaurantID
}

func TestNewEngine_Routes(t *testing.T) {
	engine, restaurantID := newTestEngine(t)

	paths := map[string]bool{}
	for _, route := range engine.Routes() {
		paths[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /health/ready",
		"GET /api/v1/cash-registers",
		"POST /api/v1/cash-registers",
		"GET /api/v1/cash-registers/:id",
		"POST /api/v1/cash-registers/:id/close",
		"GET /api/v1/cash-registers/:id/movements",
		"POST /api/v1/cash-registers/:id/movements",
		"GET /api/v1/cash-registers/:id/summary",
		"POST /api/v1/cash-registers/:id/reconcile",
	} {
		assert.True(t, paths[want], "missing route %s", want)
	}

	t.Run("health answers without scope", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("open then list through the full chain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cash-registers",
			strings.NewReader(`{"name":"Caixa 1","initial_amount":"75.10"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.RestaurantIDHeader, restaurantID.String())
		req.Header.Set("Origin", "http://pdv.local")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "http://pdv.local", w.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/api/v1/cash-registers", nil)
		req.Header.Set(middleware.RestaurantIDHeader, restaurantID.String())
		w = httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Len(t, data["registers"], 1)
	})

	t.Run("writes without scope are rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cash-registers/"+uuid.NewString()+"/close", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeMissingScope)
	})

	t.Run("oversized bodies are rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cash-registers",
			strings.NewReader(`{"name":"`+strings.Repeat("x", 2048)+`","initial_amount":"1"}`))
		req.Header.Set(middleware.RestaurantIDHeader, restaurantID.String())
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}
