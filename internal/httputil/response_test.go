package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chatstealth/server-go/internal/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{"not found", apperrors.SessionNotFound(), http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"already upgraded", apperrors.AlreadyUpgraded(), http.StatusBadRequest, apperrors.ErrCodeAlreadyUpgraded},
		{"forbidden", apperrors.Forbidden("Invalid secret code"), http.StatusForbidden, apperrors.ErrCodeForbidden},
		{"external", apperrors.External("stripe", errors.New("card declined")), http.StatusBadRequest, apperrors.ErrCodeExternal},
		{"rate limited", apperrors.RateLimitExceeded(), http.StatusTooManyRequests, apperrors.ErrCodeRateLimitExceeded},
		{"database", apperrors.Database(errors.New("conn reset")), http.StatusInternalServerError, apperrors.ErrCodeDatabase},
		{"wrapped app error", fmt.Errorf("destroy: %w", apperrors.SessionNotFound()), http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, body.Error, body.Detail)
		})
	}
}

func TestWriteError_DoesNotLeakCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: password authentication failed"))

	assert.NotContains(t, rec.Body.String(), "password")
}
