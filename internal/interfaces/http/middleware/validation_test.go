package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/restodash/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type movementPayload struct {
	Description string `json:"description" binding:"required,max=10"`
	Amount      string `json:"amount" binding:"required,decimal_gt0"`
	Opening     string `json:"opening_amount" binding:"required,decimal_gte0"`
	Type        string `json:"type" binding:"required,oneof=INCOME EXPENSE"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req movementPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req))
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-v")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	type money struct {
		Amount string `json:"amount" validate:"decimal_gt0"`
	}
	assert.NoError(t, v.Struct(money{Amount: "10.50"}))
	assert.Error(t, v.Struct(money{Amount: "0"}))
	assert.Error(t, v.Struct(money{Amount: "ten"}))
	assert.Error(t, v.Struct(money{Amount: "0.00001"}))
	assert.Error(t, v.Struct(money{Amount: "1e2000000000"}))
	assert.NoError(t, v.Struct(money{Amount: "99999999999999.9999"}))
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	t.Run("accepts a valid payload", func(t *testing.T) {
		w := postJSON(router, `{"description":"Pedido","amount":"12.5","opening_amount":"0","type":"INCOME"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("reports every failing field by JSON name", func(t *testing.T) {
		w := postJSON(router, `{"description":"a very long text","amount":"-1","opening_amount":"-0.01","type":"REFUND"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-v", resp.Error.RequestID)

		messages := map[string]string{}
		for _, d := range resp.Error.Details {
			messages[d.Field] = d.Message
		}
		assert.Equal(t, "Must be at most 10 characters", messages["description"])
		assert.Equal(t, "Must be a decimal amount greater than zero with at most 4 decimal places and 14 integer digits", messages["amount"])
		assert.Equal(t, "Must be a decimal amount of zero or more with at most 4 decimal places and 14 integer digits", messages["opening_amount"])
		assert.Equal(t, "Must be one of: INCOME EXPENSE", messages["type"])
	})

	t.Run("rejects amounts the ledger cannot store", func(t *testing.T) {
		for _, amount := range []string{"0.00001", "1e2000000000", "100000000000000"} {
			w := postJSON(router, `{"description":"Pedido","amount":"`+amount+`","opening_amount":"0","type":"INCOME"}`)
			assert.Equal(t, http.StatusBadRequest, w.Code, amount)
			assert.Contains(t, w.Body.String(), `"field":"amount"`, amount)
		}
	})

	t.Run("missing fields are required", func(t *testing.T) {
		w := postJSON(router, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Error.Details, 4)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		w := postJSON(router, `{"amount": 12.5`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("number where a money string is expected", func(t *testing.T) {
		w := postJSON(router, `{"description":"x","amount":12.5,"opening_amount":"0","type":"INCOME"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
	})
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "req-1")
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}
