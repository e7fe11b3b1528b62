// internal/handlers/common_test.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/palettebid/backend/internal/services"
)

func TestRespondServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("%w: purchase abc", services.ErrNotFound), http.StatusNotFound},
		{"forbidden", fmt.Errorf("%w: not your purchase", services.ErrForbidden), http.StatusForbidden},
		{"state conflict", fmt.Errorf("%w: already paid", services.ErrStateConflict), http.StatusBadRequest},
		{"expired", fmt.Errorf("%w: window closed", services.ErrPurchaseExpired), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondServiceError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestParseIDParamRejectsGarbage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	_, ok := parseIDParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
