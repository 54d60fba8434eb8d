package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		ping   error
		status int
		body   string
	}{
		{"up", nil, http.StatusOK, `{"status":"ok"}`},
		{"down", errors.New("dial tcp: refused"), http.StatusServiceUnavailable, `{"status":"unavailable","error":"dial tcp: refused"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Check(pingFunc(func(context.Context) error { return tt.ping }))
			rr := httptest.NewRecorder()
			h(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tt.body {
				t.Fatalf("body = %s, want %s", got, tt.body)
			}
		})
	}
}
