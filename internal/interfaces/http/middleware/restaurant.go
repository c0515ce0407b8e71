package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/restodash/backend/internal/infrastructure/logger"
	"github.com/restodash/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Restaurant scope keys
const (
	RestaurantIDKey    = "restaurant_id"
	RestaurantIDHeader = logger.RestaurantIDHeader
)

// RestaurantScopeConfig holds configuration for the restaurant scope middleware
type RestaurantScopeConfig struct {
	// Required rejects requests without X-Restaurant-ID
	Required bool
	// SkipPaths are paths that never carry a scope (e.g., health check)
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultRestaurantScopeConfig returns a config where the scope is optional
func DefaultRestaurantScopeConfig() RestaurantScopeConfig {
	return RestaurantScopeConfig{
		SkipPaths: []string{"/health"},
	}
}

// RestaurantScope reads the X-Restaurant-ID header into the gin context.
// A malformed header is always rejected; a missing one only when Required.
func RestaurantScope(cfg RestaurantScopeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		raw := strings.TrimSpace(c.GetHeader(RestaurantIDHeader))
		if raw == "" {
			if cfg.Required {
				abortScope(c, "X-Restaurant-ID header is required")
				return
			}
			c.Next()
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			if cfg.Logger != nil {
				cfg.Logger.Debug("Rejected restaurant scope", zap.String("value", raw))
			}
			abortScope(c, "X-Restaurant-ID must be a valid UUID")
			return
		}

		c.Set(RestaurantIDKey, id)
		c.Next()
	}
}

// RequireRestaurant rejects requests that reached it without a scope.
// It runs after RestaurantScope on routes that write.
func RequireRestaurant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetRestaurantID(c); !ok {
			abortScope(c, "X-Restaurant-ID header is required")
			return
		}
		c.Next()
	}
}

func abortScope(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeMissingScope, message, c.GetString(RequestIDKey),
	))
}

// GetRestaurantID returns the restaurant scope of the request
func GetRestaurantID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(RestaurantIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
