package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"internmatch/internal/validation"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

func newTestApp(logs io.Writer, h fiber.Handler) *fiber.App {
	logger := zerolog.New(logs)
	app := fiber.New()
	app.Use(NewAccessLogMiddleware(logger).Middleware())
	app.Use(NewErrorMiddleware(logger).Middleware())
	app.Get("/x", h)
	return app
}

func body(t *testing.T, app *fiber.App) (int, string, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b), resp.Header.Get(HeaderRequestID)
}

func TestErrorMiddleware_Mapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"app error", NewAppError(fiber.StatusNotFound, "Applicant not found", nil, nil), 404, `"message":"Applicant not found"`},
		{"masked 5xx", NewAppError(fiber.StatusInternalServerError, "db exploded", nil, errors.New("boom")), 500, `"message":"internal server error"`},
		{"fiber error", fiber.ErrTooManyRequests, 429, `"status":429`},
		{"validation", &validation.RequestValidationError{Fields: []validation.FieldError{{Field: "Status", Tag: "required", Message: "status is required"}}}, 400, `"field":"Status"`},
		{"plain", errors.New("unexpected"), 500, `"message":"internal server error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			app := newTestApp(&logs, func(c fiber.Ctx) error { return tt.err })
			status, b, _ := body(t, app)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (%s)", status, tt.status, b)
			}
			if !strings.Contains(b, tt.message) {
				t.Fatalf("body %s missing %s", b, tt.message)
			}
			if strings.Contains(b, "db exploded") {
				t.Fatalf("5xx message leaked: %s", b)
			}
		})
	}
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	var logs bytes.Buffer
	app := newTestApp(&logs, func(c fiber.Ctx) error { panic("nil map") })
	status, _, _ := body(t, app)
	if status != 500 {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(logs.String(), "panic recovered") {
		t.Fatalf("panic not logged: %s", logs.String())
	}
}

func TestAccessLog_SetsRequestID(t *testing.T) {
	var logs bytes.Buffer
	app := newTestApp(&logs, func(c fiber.Ctx) error { return c.SendString("ok") })
	status, _, rid := body(t, app)
	if status != 200 || rid == "" {
		t.Fatalf("status=%d rid=%q", status, rid)
	}
	if !strings.Contains(logs.String(), `"rid":"`+rid+`"`) || !strings.Contains(logs.String(), `"status":200`) {
		t.Fatalf("access line missing fields: %s", logs.String())
	}
}
