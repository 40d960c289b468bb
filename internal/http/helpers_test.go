package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"roomservice/internal/config"
	"roomservice/internal/http/handlers"
	"roomservice/internal/repos"
)

const password = "Passw0rd!"

func newTestApp(t *testing.T) (*fiber.App, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(config.DB{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "handlers.db"),
		Seed:   true,
	}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	deps := handlers.NewDeps(db, nil, nil)
	return handlers.NewApp(deps, handlers.AppConfig{}), db
}

// do sends a JSON request, optionally authenticated with sid, and returns the
// status and raw body.
func do(t *testing.T, app *fiber.App, method, path, sid string, body any) (int, []byte) {
	t.Helper()
	resp := doResp(t, app, method, path, sid, body)
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func doResp(t *testing.T, app *fiber.App, method, path, sid string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp := doResp(t, app, "POST", "/login", "", map[string]string{"email": email, "password": password})
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("login %s: status %d body=%s", email, resp.StatusCode, b)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "sid" && c.Value != "" {
			return c.Value
		}
	}
	t.Fatalf("login %s: no sid cookie", email)
	return ""
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}
