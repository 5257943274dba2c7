package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{name: "not found", err: fmt.Errorf("%w: role 9", ErrNotFound), status: http.StatusNotFound, detail: "resource not found: role 9"},
		{name: "validation", err: ErrValidation, status: http.StatusBadRequest, detail: "validation failed"},
		{name: "unmapped", err: errors.New("pq: password authentication failed"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
			assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, tc.detail, body.Detail)
		})
	}
}

func TestUnauthorizedSetsChallenge(t *testing.T) {
	rr := httptest.NewRecorder()
	Unauthorized(rr, "invalid or missing credentials")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
	assert.Contains(t, rr.Body.String(), "invalid or missing credentials")
}

func TestForbiddenHasNoChallenge(t *testing.T) {
	rr := httptest.NewRecorder()
	Forbidden(rr, "insufficient permissions")

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, rr.Header().Get("WWW-Authenticate"))
}
