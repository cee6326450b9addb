package http

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/token-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/token-auth-service/internal/auth"
	"github.com/spec-kit/token-auth-service/internal/config"
	"github.com/spec-kit/token-auth-service/internal/domain"
	"github.com/spec-kit/token-auth-service/internal/events"
	"github.com/spec-kit/token-auth-service/internal/observability"
	"github.com/spec-kit/token-auth-service/internal/repository"
	"github.com/spec-kit/token-auth-service/internal/service"
)

const routerSecret = "router-test-secret"

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	system *auth.SystemIdentityProvider
}

func testSecurity() config.SecurityConfig {
	return config.SecurityConfig{
		LoginPath:           "/auth/login",
		LoginProcessingPath: "/auth/authenticate",
		LoginSuccessPath:    "/auth/success",
		LogoutPath:          "/auth/logout",
		ForwardLogoutFinish: "/auth/",
	}
}

func newTestServer(t *testing.T, security config.SecurityConfig, baseURL string) *testServer {
	t.Helper()
	logger := zap.NewNop()

	authService := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, repository.NewStaticUserRepository(), logger)
	require.NoError(t, authService.SeedUser(context.Background(), "alice", "s3cret", []string{"user"}))

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager(routerSecret, time.Hour)
	system := auth.NewSystemIdentityProvider(tokens, "system", []string{"user", "admin"}, logger)

	deps := auth.Dependencies{Logger: logger, Metrics: metrics, Dispatcher: dispatcher}
	refresh := auth.NewRefreshFilter(tokens, deps)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("token-auth", "test", nil),
		Metrics:   handlers.NewMetricsHandler(metrics),
		Auth:      handlers.NewAuthHandler(security, dispatcher, logger),
		System:    handlers.NewSystemHandler(system.Client(nil), baseURL, logger),
		TokenAuth: auth.NewPipeline(deps, auth.NewTokenFilter(tokens, auth.ProtectAll, deps)),
		Login:     auth.NewPipeline(deps, auth.NewPasswordFilter(authService, security.LoginProcessingPath, deps), refresh),
		Refresh:   auth.NewPipeline(deps, refresh),
		Policy:    DefaultPolicy(security.Insecure),
		Security:  security,
	})
	return &testServer{app: app, tokens: tokens, system: system}
}

func (s *testServer) token(t *testing.T, login string, roles ...string) string {
	t.Helper()
	token, _, err := s.tokens.Issue(domain.NewIdentity(login, roles...))
	require.NoError(t, err)
	return token
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func get(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(auth.HeaderName, token)
	}
	return req
}

func tokenCookie(resp *http.Response) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == auth.CookieName {
			return ck
		}
	}
	return nil
}

func TestRoutes_Access(t *testing.T) {
	s := newTestServer(t, testSecurity(), "")
	user := s.token(t, "alice", "user")
	admin := s.token(t, "root", "admin")

	cases := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{name: "health is open", req: get("/management/health", ""), status: http.StatusOK},
		{name: "metrics need a login", req: get("/management/metrics", ""), status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "metrics need admin", req: get("/management/metrics", user), status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "metrics for admin", req: get("/management/metrics", admin), status: http.StatusOK},
		{name: "api for user", req: get("/api/me", user), status: http.StatusOK},
		{name: "api anonymous", req: get("/api/me", ""), status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "login page", req: get("/auth/login", ""), status: http.StatusOK},
		{name: "unmapped is denied", req: get("/unmapped", admin), status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "bad token", req: get("/auth/info", "not.a.token"), status: http.StatusUnauthorized, code: "BAD_CREDENTIALS"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := s.do(t, tc.req)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestRoutes_MeReportsTokenIdentity(t *testing.T) {
	s := newTestServer(t, testSecurity(), "")

	resp, body := s.do(t, get("/api/me", s.token(t, "alice", "user")))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var identity struct {
		Login              string   `json:"login"`
		Roles              []string `json:"roles"`
		TokenAuthenticated bool     `json:"token_authenticated"`
		ExpiresInMs        int64    `json:"expires_in_ms"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &identity))
	assert.Equal(t, "alice", identity.Login)
	assert.ElementsMatch(t, []string{domain.RoleUser, domain.RoleAuthToken}, identity.Roles)
	assert.True(t, identity.TokenAuthenticated)
	assert.Positive(t, identity.ExpiresInMs)
}

func TestRoutes_ExpiredTokenCookie(t *testing.T) {
	s := newTestServer(t, testSecurity(), "")
	past := auth.NewTokenManager(routerSecret, time.Minute, auth.WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	expired, _, err := past.Issue(domain.NewIdentity("alice", "user"))
	require.NoError(t, err)
	// keep the plaintext suffix in the future so the signed claim decides
	idx := strings.LastIndex(expired, ":")
	forged := expired[:idx] + ":" + "99999999999999"

	req := get("/api/me", "")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: forged})
	resp, body := s.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "CREDENTIALS_EXPIRED", body.Error.Code)
	ck := tokenCookie(resp)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
}

func loginForm(login, password string) *http.Request {
	form := url.Values{auth.UsernameField: {login}, auth.PasswordField: {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/authenticate", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return req
}

func TestRoutes_LoginFlow(t *testing.T) {
	s := newTestServer(t, testSecurity(), "")

	resp, body := s.do(t, loginForm("alice", "s3cret"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	issued := resp.Header.Get(auth.HeaderName)
	require.NotEmpty(t, issued)
	ck := tokenCookie(resp)
	require.NotNil(t, ck)
	assert.Equal(t, issued, ck.Value)
	assert.True(t, ck.HttpOnly)

	var data struct {
		Identity struct {
			Login string   `json:"login"`
			Roles []string `json:"roles"`
		} `json:"identity"`
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "alice", data.Identity.Login)
	assert.Contains(t, data.Identity.Roles, domain.RoleAuthPassword)
	assert.Equal(t, issued, data.Auth.Token)

	// the cookie now authenticates the browser
	req := get("/api/me", "")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: issued})
	resp, _ = s.do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// a token-derived identity is never handed a new token
	req = get("/auth/success", "")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: issued})
	resp, _ = s.do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(auth.HeaderName))
	assert.Nil(t, tokenCookie(resp))
}

func TestRoutes_LoginRejected(t *testing.T) {
	s := newTestServer(t, testSecurity(), "")

	resp, body := s.do(t, loginForm("alice", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "BAD_CREDENTIALS", body.Error.Code)
	assert.Empty(t, resp.Header.Get(auth.HeaderName))
}

func TestRoutes_LoginForward(t *testing.T) {
	security := testSecurity()
	security.ForwardLoginSuccess = "/"
	s := newTestServer(t, security, "")

	resp, _ := s.do(t, loginForm("alice", "s3cret"))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
	assert.NotEmpty(t, resp.Header.Get(auth.HeaderName))
}

func TestRoutes_SuccessWithoutLoginRedirects(t *testing.T) {
	s := newTestServer(t, testSecurity(), "")

	resp, _ := s.do(t, get("/auth/success", ""))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestRoutes_Logout(t *testing.T) {
	s := newTestServer(t, testSecurity(), "")

	req := get("/auth/logout", "")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: s.token(t, "alice", "user")})
	resp, _ := s.do(t, req)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/", resp.Header.Get(fiber.HeaderLocation))
	ck := tokenCookie(resp)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
}

func TestRoutes_Insecure(t *testing.T) {
	security := testSecurity()
	security.Insecure = true
	s := newTestServer(t, security, "")

	resp, _ := s.do(t, get("/management/metrics", ""))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, get("/unmapped", ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestRoutes_SelfCheckCallsBackWithSystemToken(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := newTestServer(t, testSecurity(), "http://"+ln.Addr().String())
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.Shutdown() })

	admin := s.token(t, "root", "admin")

	resp, body := s.do(t, get("/management/selfcheck", admin))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "no system identity before bootstrap")
	assert.Equal(t, "NOT_CONFIGURED", body.Error.Code)

	require.True(t, s.system.Bootstrap())

	resp, body = s.do(t, get("/management/selfcheck", admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var check struct {
		Status   int `json:"status"`
		Identity struct {
			Login              string   `json:"login"`
			Roles              []string `json:"roles"`
			TokenAuthenticated bool     `json:"token_authenticated"`
		} `json:"identity"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &check))
	assert.Equal(t, http.StatusOK, check.Status)
	assert.Equal(t, "system", check.Identity.Login)
	assert.True(t, check.Identity.TokenAuthenticated)
	assert.Contains(t, check.Identity.Roles, domain.RoleAuthSystem)
}
