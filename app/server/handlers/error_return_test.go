package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blog-backend/app/server/types"

	"github.com/labstack/echo/v4"
)

func TestErAuth(t *testing.T) {
	t.Parallel()

	a := &App{}

	render := func(statusCode int, err error) (int, types.ErrorMessage) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(req, rec)

		if err := a.erAuth(c, statusCode, err); err != nil {
			t.Fatalf("erAuth error: %v", err)
		}

		var body types.ErrorMessage
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal body %q: %v", rec.Body.String(), err)
		}
		return rec.Code, body
	}

	// 认证类错误带具体原因
	code, body := render(http.StatusUnauthorized, errors.New("missing auth token"))
	if code != http.StatusUnauthorized || body.Message != "missing auth token" {
		t.Errorf("got (%d, %q), want (401, missing auth token)", code, body.Message)
	}

	// 内部错误不向客户端透出底层原因
	code, body = render(http.StatusInternalServerError, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"))
	if code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", code)
	}
	if body.Message != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("got message %q, want generic text", body.Message)
	}
	if strings.Contains(body.Message, "dial tcp") {
		t.Errorf("internal error detail leaked to response: %q", body.Message)
	}
}
