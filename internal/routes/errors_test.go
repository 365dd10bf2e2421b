package routes_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/routes"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/middlewares"
)

func TestErrors_Classify(t *testing.T) {
	t.Parallel()

	a := app.New(app.Settings{})

	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", app.ValidationErrors{{Field: "email", Rule: "email", Message: "must be a valid email"}}, http.StatusUnprocessableEntity, "validation failed"},
		{"http error", app.ErrForbidden("missing scope pins:write"), http.StatusForbidden, "missing scope pins:write"},
		{"timeout", &middlewares.TimeoutError{Duration: time.Second}, http.StatusGatewayTimeout, "Gateway Timeout"},
		{"not found", fmt.Errorf("pin p1: %w", store.ErrNotFound), http.StatusNotFound, "resource not found"},
		{"duplicate", store.ErrDuplicate, http.StatusConflict, "resource already exists"},
		{"unknown", errors.New("secret internals"), http.StatusInternalServerError, "Internal Server Error"},
		{"panic", &middlewares.PanicError{Value: "boom", Stack: []byte("goroutine 1")}, http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			c := app.NewContext(w, httptest.NewRequest(http.MethodGet, "/x", nil), nil)
			require.NoError(t, routes.Errors(a, nil)(c, tt.err))

			require.Equal(t, tt.code, w.Code)
			var env routes.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.message, env.Error.Message)
			assert.NotContains(t, w.Body.String(), "secret")
		})
	}
}

func TestErrors_ProbesDatabase(t *testing.T) {
	t.Parallel()

	a := app.New(app.Settings{})
	mongoErr := mongo.CommandError{Code: 11600, Message: "interrupted at shutdown"}

	t.Run("storage failure", func(t *testing.T) {
		t.Parallel()

		db := &mockPinger{}
		db.On("Ping").Return(errors.New("no reachable servers")).Once()

		w := httptest.NewRecorder()
		c := app.NewContext(w, httptest.NewRequest(http.MethodGet, "/pins", nil), nil)
		require.NoError(t, routes.Errors(a, db)(c, fmt.Errorf("list pins: %w", mongoErr)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "shutdown")
		db.AssertExpectations(t)
	})

	t.Run("client errors skip the probe", func(t *testing.T) {
		t.Parallel()

		db := &mockPinger{}
		w := httptest.NewRecorder()
		c := app.NewContext(w, httptest.NewRequest(http.MethodGet, "/pins/x", nil), nil)
		require.NoError(t, routes.Errors(a, db)(c, store.ErrNotFound))

		assert.Equal(t, http.StatusNotFound, w.Code)
		db.AssertNotCalled(t, "Ping")
	})
}
