package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/token-auth-service/internal/domain"
	"github.com/spec-kit/token-auth-service/internal/events"
)

const loginPath = "/auth/authenticate"

type stubVerifier struct {
	login, password string
	err             error
}

func (s stubVerifier) Authenticate(_ context.Context, login, password string) (domain.Identity, error) {
	if s.err != nil {
		return domain.Identity{}, s.err
	}
	if login != s.login || password != s.password {
		return domain.Identity{}, ErrBadCredentials
	}
	return domain.NewIdentity(login, "USER").WithRole(domain.RoleAuthPassword), nil
}

func loginRequest(method, login, password string) *http.Request {
	form := url.Values{}
	if login != "" {
		form.Set(UsernameField, login)
	}
	if password != "" {
		form.Set(PasswordField, password)
	}
	req := httptest.NewRequest(method, loginPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPasswordLoginIssuesToken(t *testing.T) {
	deps, rec := newDeps()
	tm := NewTokenManager(testSecret, time.Hour)
	app := newApp(deps, nil,
		NewPasswordFilter(stubVerifier{login: "alice", password: "secret"}, loginPath, deps),
		NewRefreshFilter(tm, deps),
	)

	resp, body := do(t, app, loginRequest(http.MethodPost, "alice", "secret"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body.Login)
	assert.Contains(t, body.Roles, domain.RoleAuthPassword)

	a, err := tm.Parse(resp.Header.Get(HeaderName))
	require.NoError(t, err)
	assert.NotContains(t, a.Identity.Roles, domain.RoleAuthPassword)
	assert.Contains(t, a.Identity.Roles, domain.RoleAuthToken)

	assert.Equal(t, []events.EventType{events.EventAuthenticationSuccess, events.EventTokenIssued}, rec.types())
}

func TestPasswordLoginRejections(t *testing.T) {
	cases := []struct {
		name     string
		login    string
		password string
		reason   string
	}{
		{name: "wrong password", login: "alice", password: "nope", reason: "password:bad_credentials"},
		{name: "unknown login", login: "bob", password: "secret", reason: "password:bad_credentials"},
		{name: "missing password", login: "alice", reason: "password:no_credentials"},
		{name: "missing login", password: "secret", reason: "password:no_credentials"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps, rec := newDeps()
			app := newApp(deps, nil,
				NewPasswordFilter(stubVerifier{login: "alice", password: "secret"}, loginPath, deps),
				NewRefreshFilter(NewTokenManager(testSecret, time.Hour), deps),
			)

			resp, body := do(t, app, loginRequest(http.MethodPost, tc.login, tc.password))
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "BAD_CREDENTIALS", body.Code)
			assert.Empty(t, resp.Header.Get(HeaderName))
			assert.Equal(t, []events.EventType{events.EventAuthenticationFailure}, rec.types())
			assert.EqualValues(t, 1, deps.Metrics.Snapshot().AuthOutcomes[tc.reason])
		})
	}
}

func TestPasswordLoginVerifierFailureIsNotACredentialError(t *testing.T) {
	deps, rec := newDeps()
	app := newApp(deps, nil,
		NewPasswordFilter(stubVerifier{err: errors.New("database unavailable")}, loginPath, deps),
	)

	resp, body := do(t, app, loginRequest(http.MethodPost, "alice", "secret"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Empty(t, rec.types())
}

func TestPasswordFilterOnlyHandlesPost(t *testing.T) {
	deps, _ := newDeps()
	app := newApp(deps, nil,
		NewPasswordFilter(stubVerifier{login: "alice", password: "secret"}, loginPath, deps),
	)

	resp, body := do(t, app, loginRequest(http.MethodGet, "alice", "secret"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Anonymous)
}
