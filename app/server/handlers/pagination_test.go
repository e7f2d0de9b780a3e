package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext(t *testing.T, query string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec)
}

func TestParsePagination(t *testing.T) {
	t.Parallel()

	a := &App{}

	cases := []struct {
		query    string
		showAll  bool
		page     int
		limit    int
	}{
		{"", false, 0, 20},
		{"page=1&limit=10", false, 0, 10},
		{"page=3&limit=50", false, 2, 50},
		{"page=0&limit=0", true, -1, -1}, // 特殊参数：展示全部
		{"page=0&limit=10", false, 0, 10},
		{"limit=1000", false, 0, 20}, // 超限回退默认值
		{"page=abc&limit=xyz", false, 0, 20},
	}

	for _, tc := range cases {
		showAll, page, limit := a.parsePagination(newTestContext(t, tc.query))
		if showAll != tc.showAll || page != tc.page || limit != tc.limit {
			t.Errorf("parsePagination(%q) = (%v, %d, %d), want (%v, %d, %d)",
				tc.query, showAll, page, limit, tc.showAll, tc.page, tc.limit)
		}
	}
}

func TestCalcMaxPage(t *testing.T) {
	t.Parallel()

	a := &App{}

	cases := []struct {
		count   int64
		showAll bool
		limit   int
		want    int64
	}{
		{0, false, 20, 0},
		{1, false, 20, 1},
		{20, false, 20, 1},
		{21, false, 20, 2},
		{100, true, -1, 1},
	}

	for _, tc := range cases {
		if got := a.calcMaxPage(tc.count, tc.showAll, tc.limit); got != tc.want {
			t.Errorf("calcMaxPage(%d, %v, %d) = %d, want %d", tc.count, tc.showAll, tc.limit, got, tc.want)
		}
	}
}

func TestGetBearerToken(t *testing.T) {
	t.Parallel()

	newCtx := func(header string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return echo.New().NewContext(req, httptest.NewRecorder())
	}

	if _, err := getBearerToken(newCtx("")); err == nil {
		t.Error("expected error for missing header")
	}
	if _, err := getBearerToken(newCtx("Basic abc")); err == nil {
		t.Error("expected error for non-bearer method")
	}
	if _, err := getBearerToken(newCtx("Bearer")); err == nil {
		t.Error("expected error for header without token")
	}

	tok, err := getBearerToken(newCtx("Bearer my-token"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "my-token" {
		t.Errorf("got %q, want %q", tok, "my-token")
	}

	// 方法名大小写不敏感
	tok, err = getBearerToken(newCtx("bearer my-token"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "my-token" {
		t.Errorf("got %q, want %q", tok, "my-token")
	}
}
