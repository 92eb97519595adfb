package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

const testSecret = "test-secret"

func newAuthTestApp(t *testing.T) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Get("/whoami", RequireAuth(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userId": AuthenticatedUserID(c)})
	})
	return app
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	app := newAuthTestApp(t)

	token, err := GenerateToken(testSecret, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "valid token", authHeader: "Bearer " + token, wantStatus: fiber.StatusOK},
		{name: "missing header", authHeader: "", wantStatus: fiber.StatusUnauthorized},
		{name: "not bearer", authHeader: "Basic abc", wantStatus: fiber.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer not-a-token", wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.authHeader != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.authHeader)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	app := newAuthTestApp(t)

	token, err := GenerateToken("another-secret", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for foreign signature", resp.StatusCode)
	}
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	app := newAuthTestApp(t)

	token, err := GenerateToken(testSecret, "user-1", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for expired token", resp.StatusCode)
	}
}
