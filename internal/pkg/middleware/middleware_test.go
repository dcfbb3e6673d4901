package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/glaciervault/glaciervault/internal/pkg/billing"
	"github.com/glaciervault/glaciervault/internal/pkg/token"
	"github.com/glaciervault/glaciervault/internal/pkg/usage"
	"github.com/glaciervault/glaciervault/internal/pkg/usercontext"
)

type stubSubscription struct {
	result billing.ValidationResult
	err    error
}

func (s stubSubscription) HasValidSubscription(userID uint) (billing.ValidationResult, error) {
	return s.result, s.err
}

type stubCapacity struct {
	err error

	gotBytes int64
}

func (s *stubCapacity) CheckStorageLimit(userID uint, incomingBytes int64) error {
	s.gotBytes = incomingBytes
	return s.err
}

func okHandler(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

func asUser(userID uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, usercontext.UserContext{UserID: userID, IsLoggedIn: true})
		return c.Next()
	}
}

func TestRequireValidSubscription_Blocks(t *testing.T) {
	t.Parallel()

	checker := stubSubscription{result: billing.ValidationResult{
		Valid:      false,
		Status:     "trialing",
		ReasonCode: billing.ReasonTrialExpired,
	}}

	app := fiber.New()
	app.Get("/gated", asUser(1), RequireValidSubscription(checker), okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", resp.StatusCode)
	}
}

func TestRequireValidSubscription_PassesWithTrialHeader(t *testing.T) {
	t.Parallel()

	checker := stubSubscription{result: billing.ValidationResult{
		Valid:              true,
		Status:             "trialing",
		TrialDaysRemaining: 12,
	}}

	app := fiber.New()
	app.Get("/gated", asUser(1), RequireValidSubscription(checker), okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Trial-Days-Remaining"); got != "12" {
		t.Fatalf("trial header = %q, want 12", got)
	}
}

func TestRequireValidSubscription_FailsClosedOnLookupError(t *testing.T) {
	t.Parallel()

	checker := stubSubscription{err: errors.New("db gone")}

	app := fiber.New()
	app.Get("/gated", asUser(1), RequireValidSubscription(checker), okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestRequireStorageCapacity_RejectsOversizedUpload(t *testing.T) {
	t.Parallel()

	checker := &stubCapacity{err: usage.ErrStorageLimitExceeded}

	app := fiber.New()
	app.Post("/upload", asUser(1), RequireStorageCapacity(checker), okHandler)

	req := httptest.NewRequest("POST", "/upload", strings.NewReader("0123456789"))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	if checker.gotBytes != 10 {
		t.Fatalf("content length seen = %d, want 10", checker.gotBytes)
	}
}

func TestRequireStorageCapacity_DistinguishesFreeTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantError string
	}{
		{"no payment method", usage.ErrFreeTierLimitExceeded, "free_tier_limit_exceeded"},
		{"ceiling reached", usage.ErrStorageLimitExceeded, "storage_limit_exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := fiber.New()
			app.Post("/upload", asUser(1), RequireStorageCapacity(&stubCapacity{err: tt.err}), okHandler)

			resp, err := app.Test(httptest.NewRequest("POST", "/upload", strings.NewReader("x")))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
				t.Fatalf("status = %d, want 413", resp.StatusCode)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(string(body), tt.wantError) {
				t.Fatalf("body = %s, want error %q", body, tt.wantError)
			}
		})
	}
}

func TestRequireStorageCapacity_PassesUnderLimit(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Post("/upload", asUser(1), RequireStorageCapacity(&stubCapacity{}), okHandler)

	resp, err := app.Test(httptest.NewRequest("POST", "/upload", strings.NewReader("x")))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRequireJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	app := fiber.New()
	app.Get("/me", RequireJWT, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": usercontext.GetUserID(c)})
	})

	// no header
	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}

	// bad token
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", resp.StatusCode)
	}

	// valid token
	signed, err := token.Issue(9, "carol", "carol@example.com", false)
	if err != nil {
		t.Fatalf("token.Issue: %v", err)
	}
	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status with valid token = %d, want 200", resp.StatusCode)
	}
}
