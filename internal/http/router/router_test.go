package router_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aanand-mishra/users-api/internal/config"
	"github.com/aanand-mishra/users-api/internal/http/router"
	"github.com/aanand-mishra/users-api/internal/service"
	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/storage/sqldb"
	"github.com/aanand-mishra/users-api/internal/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestServer returns the full handler over a private in-memory database.
func newTestServer(t *testing.T, opts router.Options) http.Handler {
	t.Helper()
	store, _ := newStore(t)
	if opts.Logger == nil {
		opts.Logger = quiet
	}
	return router.New(service.New(store, quiet), opts)
}

// newStore also returns the DSN so a test can open a second handle on the
// same shared-cache database.
func newStore(t *testing.T) (*sqldb.Store, string) {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"

	store, err := sqldb.New(ctx, config.Storage{Driver: config.DriverSQLite, DSN: dsn}, quiet)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return store, dsn
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func expect(t *testing.T, rr *httptest.ResponseRecorder, status int, body string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	if body == "" {
		return
	}
	if got := strings.TrimSpace(rr.Body.String()); got != body {
		t.Fatalf("body = %s, want %s", got, body)
	}
}

func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Message
}

// ─────────────────────────────────────────────────────────────────────────────
// Happy path
// ─────────────────────────────────────────────────────────────────────────────

func TestUserLifecycle(t *testing.T) {
	h := newTestServer(t, router.Options{})

	expect(t, do(t, h, http.MethodGet, "/users", ""), http.StatusOK, `[]`)

	rr := do(t, h, http.MethodPost, "/users",
		`{"name":"Ann","email":"ann@x.com","age":30,"address":{"city":"Lyon","house":"12"}}`)
	expect(t, rr, http.StatusCreated,
		`{"id":1,"name":"Ann","email":"ann@x.com","age":30,"address":{"city":"Lyon","house":"12"}}`)
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}

	expect(t, do(t, h, http.MethodGet, "/users", ""), http.StatusOK,
		`[{"id":1,"name":"Ann","email":"ann@x.com","age":30,"address":{"city":"Lyon","house":"12"}}]`)

	expect(t, do(t, h, http.MethodPut, "/users/1",
		`{"name":"Ann B","email":"ann@x.com","age":31,"address":{"city":"Lyon","house":"14"}}`),
		http.StatusOK, `{"message":"User updated successfully."}`)

	expect(t, do(t, h, http.MethodGet, "/users/1", ""), http.StatusOK,
		`{"id":1,"name":"Ann B","email":"ann@x.com","age":31,"address":{"city":"Lyon","house":"14"}}`)

	expect(t, do(t, h, http.MethodDelete, "/users/1", ""), http.StatusOK,
		`{"message":"User deleted successfully."}`)

	expect(t, do(t, h, http.MethodGet, "/users", ""), http.StatusOK, `[]`)
}

// ─────────────────────────────────────────────────────────────────────────────
// Client errors
// ─────────────────────────────────────────────────────────────────────────────

func TestCreate_Rejections(t *testing.T) {
	h := newTestServer(t, router.Options{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", `{"email":"ann@x.com","age":30,"address":{"city":"Lyon","house":"12"}}`,
			"Invalid or missing name. Name must be a string."},
		{"missing email", `{"name":"Ann","age":30,"address":{"city":"Lyon","house":"12"}}`,
			"Invalid or missing email. Email must be a string."},
		{"bad age", `{"name":"Ann","email":"ann@x.com","age":"abc","address":{"city":"Lyon","house":"12"}}`,
			"Invalid or missing age. Age must be a number."},
		{"missing city", `{"name":"Ann","email":"ann@x.com","age":30,"address":{"house":"12"}}`,
			`Invalid or missing address. Address must include "city" and "house", both as strings.`},
		{"numeric house", `{"name":"Ann","email":"ann@x.com","age":30,"address":{"city":"Lyon","house":12}}`,
			`Invalid address format. Both "city" and "house" must be strings.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/users", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if got := message(t, rr); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}

	expect(t, do(t, h, http.MethodGet, "/users", ""), http.StatusOK, `[]`)
}

func TestUnreadableBodies(t *testing.T) {
	h := newTestServer(t, router.Options{})

	expect(t, do(t, h, http.MethodPost, "/users", ""), http.StatusBadRequest,
		`{"message":"Request body is empty."}`)

	rr := do(t, h, http.MethodPost, "/users", `{"name":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := message(t, rr); got != "Invalid JSON body." {
		t.Fatalf("message = %q", got)
	}
}

func TestBodyLimit(t *testing.T) {
	h := newTestServer(t, router.Options{MaxBodyBytes: 64})

	big := `{"name":"` + strings.Repeat("a", 256) + `","email":"ann@x.com","age":30,"address":{"city":"Lyon","house":"12"}}`
	expect(t, do(t, h, http.MethodPost, "/users", big), http.StatusRequestEntityTooLarge,
		`{"message":"Request body is too large."}`)
}

func TestUpdate_Rejections(t *testing.T) {
	h := newTestServer(t, router.Options{})
	do(t, h, http.MethodPost, "/users",
		`{"name":"Ann","email":"ann@x.com","age":30,"address":{"city":"Lyon","house":"12"}}`)

	expect(t, do(t, h, http.MethodPut, "/users/1",
		`{"name":"Ann","email":"ann@x.com","address":{"city":"Lyon","house":"12"}}`),
		http.StatusBadRequest, `{"message":"Invalid or missing fields in the request."}`)

	full := `{"name":"Ann B","email":"ann@x.com","age":31,"address":{"city":"Lyon","house":"14"}}`
	expect(t, do(t, h, http.MethodPut, "/users/999", full), http.StatusNotFound, `{"message":"User not found."}`)
	expect(t, do(t, h, http.MethodPut, "/users/abc", full), http.StatusNotFound, `{"message":"User not found."}`)

	oddAge := `{"name":"Ann B","email":"ann@x.com","age":"abc","address":{"city":"Lyon","house":"14"}}`
	expect(t, do(t, h, http.MethodPut, "/users/999", oddAge), http.StatusNotFound, `{"message":"User not found."}`)
	rr := do(t, h, http.MethodPut, "/users/1", oddAge)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t, router.Options{})

	expect(t, do(t, h, http.MethodGet, "/users/7", ""), http.StatusNotFound, `{"message":"User not found."}`)
	expect(t, do(t, h, http.MethodDelete, "/users/7", ""), http.StatusNotFound, `{"message":"User not found."}`)
	expect(t, do(t, h, http.MethodDelete, "/users/x", ""), http.StatusNotFound, `{"message":"User not found."}`)
}

// ─────────────────────────────────────────────────────────────────────────────
// Server errors
// ─────────────────────────────────────────────────────────────────────────────

func TestDuplicateEmailIs500(t *testing.T) {
	h := newTestServer(t, router.Options{})
	body := `{"name":"Ann","email":"ann@x.com","age":30,"address":{"city":"Lyon","house":"12"}}`

	expect(t, do(t, h, http.MethodPost, "/users", body), http.StatusCreated, "")

	rr := do(t, h, http.MethodPost, "/users", body)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var resp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != service.MsgCreateFailed || resp.Error == "" {
		t.Fatalf("unexpected body %+v", resp)
	}
}

// panicStore blows up on every read.
type panicStore struct{ storage.Storage }

func (panicStore) GetUsers(context.Context) ([]types.User, error) { panic("boom") }

func TestPanicIsRecovered(t *testing.T) {
	h := router.New(service.New(panicStore{}, quiet), router.Options{Logger: quiet})

	rr := do(t, h, http.MethodGet, "/users", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Cross-cutting
// ─────────────────────────────────────────────────────────────────────────────

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, router.Options{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, router.Options{})
	expect(t, do(t, h, http.MethodGet, "/healthz", ""), http.StatusOK, `{"status":"ok"}`)
}

func TestFallbackAddressInList(t *testing.T) {
	store, dsn := newStore(t)
	h := router.New(service.New(store, quiet), router.Options{Logger: quiet})

	ctx := context.Background()
	if _, err := store.CreateUser(ctx, types.User{Name: "Bob", Email: "bob@x.com", Age: 40,
		Address: types.Address{City: "Nice", House: "3"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	raw, err := sql.Open(config.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("raw open: %v", err)
	}
	defer raw.Close()
	if _, err := raw.ExecContext(ctx, `UPDATE users SET address = 'not json' WHERE email = 'bob@x.com'`); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	expect(t, do(t, h, http.MethodGet, "/users", ""), http.StatusOK,
		`[{"id":1,"name":"Bob","email":"bob@x.com","age":40,"address":{"city":"Unknown","house":"Unknown"}}]`)
}
