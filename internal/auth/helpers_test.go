package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/token-auth-service/internal/domain"
	"github.com/spec-kit/token-auth-service/internal/events"
	"github.com/spec-kit/token-auth-service/internal/observability"
	apperrors "github.com/spec-kit/token-auth-service/pkg/util/errorutil"
)

const testSecret = "test-secret-key-for-jwt-signing"

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newDeps() (Dependencies, *recorder) {
	rec := &recorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, t := range []events.EventType{
		events.EventAuthenticationSuccess,
		events.EventAuthenticationFailure,
		events.EventTokenIssued,
	} {
		dispatcher.Subscribe(t, rec.handle)
	}
	return Dependencies{Metrics: observability.NewMetrics(), Dispatcher: dispatcher}, rec
}

type identityBody struct {
	Login        string   `json:"login"`
	Roles        []string `json:"roles"`
	TokenTrusted bool     `json:"token_trusted"`
	Anonymous    bool     `json:"anonymous"`
	Code         string   `json:"code"`
}

// newApp mounts the filters as one pipeline in front of a catch-all
// handler that echoes the request identity. pre, when set, runs first.
func newApp(deps Dependencies, pre fiber.Handler, filters ...Filter) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	if pre != nil {
		app.Use(pre)
	}
	app.Use(NewPipeline(deps, filters...).Handle)
	app.All("/*", func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		return c.JSON(fiber.Map{
			"login":         identity.Login,
			"roles":         identity.Roles,
			"token_trusted": identity.TokenTrusted(),
			"anonymous":     identity.Anonymous,
		})
	})
	return app
}

// authenticateAs attaches a fixed authentication before the pipeline runs.
func authenticateAs(identity domain.Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		SetAuthentication(c, &Authentication{Identity: identity})
		return c.Next()
	}
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, identityBody) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body identityBody
	require.NoError(t, decodeJSON(resp, &body))
	return resp, body
}

func decodeJSON(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func requireClearedCookie(t *testing.T, resp *http.Response) {
	t.Helper()
	ck := findCookie(resp, CookieName)
	require.NotNil(t, ck, "expected %s cookie to be cleared", CookieName)
	require.Empty(t, ck.Value)
	require.Equal(t, "/", ck.Path)
	require.True(t, ck.Expires.Before(time.Now()), "cookie expires %s", ck.Expires)
}

// pastManager issues tokens as if an hour ago.
func pastManager(secret string, ttl time.Duration) *TokenManager {
	return NewTokenManager(secret, ttl, WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
}

// withSuffix replaces the plaintext expiry of token.
func withSuffix(token string, expiry time.Time) string {
	return stripExpiry(token) + expirySeparator + strconv.FormatInt(expiry.UnixMilli(), 10)
}
