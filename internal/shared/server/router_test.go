package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/identity"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/server/middleware"
	"onboarding-backend/internal/shared/server/respond"
)

type tokenTable map[string]identity.Identity

func (t tokenTable) Verify(token string) (identity.Identity, error) {
	id, ok := t[token]
	if !ok {
		return identity.Identity{}, errors.New("bad token")
	}
	return id, nil
}

type whoami struct{}

func (whoami) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/whoami", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"id": middleware.EmployeeIDFromContext(c)})
	})
}

func newTestRouter() *gin.Engine {
	return NewRouter(RouterDeps{
		Config:   config.Config{CORSAllowOrigin: []string{"http://localhost:5173"}},
		Tokens:   tokenTable{"tok-e1": {EmployeeID: "E-1", Role: identity.RoleEmployee}},
		Handlers: []RouteRegistrar{whoami{}},
	})
}

func TestRouterPublicPaths(t *testing.T) {
	r := newTestRouter()
	for _, path := range []string{healthPath, metricsPath} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", path, resp.Code)
		}
	}
}

func TestRouterRequiresToken(t *testing.T) {
	r := newTestRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok-e1")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"E-1"`) {
		t.Fatalf("expected caller echoed, got %d %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRateGroup(t *testing.T) {
	cases := map[string]string{
		http.MethodPost + " /api/v1/documents":             rateGroupUpload,
		http.MethodGet + " /api/v1/documents":              rateGroupRead,
		http.MethodPost + " /api/v1/documents/d1/decision": rateGroupRead,
	}
	for in, want := range cases {
		method, path, _ := strings.Cut(in, " ")
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(method, path, nil)
		if got := rateGroup(c); got != want {
			t.Fatalf("%s: got %s want %s", in, got, want)
		}
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
