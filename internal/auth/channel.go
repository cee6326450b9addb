package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	// HeaderName carries the token for programmatic clients.
	HeaderName = "X-Auth-Token"
	// CookieName carries the token for browsers.
	CookieName = "AuthToken"

	cookiePath = "/"
)

// TokenSource tells where a request's token was found.
type TokenSource int

const (
	SourceNone TokenSource = iota
	SourceHeader
	SourceCookie
)

func (s TokenSource) String() string {
	switch s {
	case SourceHeader:
		return "header"
	case SourceCookie:
		return "cookie"
	default:
		return "none"
	}
}

// ExtractToken returns the request's candidate token. The header wins; the
// cookie is only consulted when the header is absent. Empty values count
// as absent.
func ExtractToken(c *fiber.Ctx) (string, TokenSource, bool) {
	if tok := c.Get(HeaderName); tok != "" {
		return strings.Clone(tok), SourceHeader, true
	}
	if tok := c.Cookies(CookieName); tok != "" {
		return strings.Clone(tok), SourceCookie, true
	}
	return "", SourceNone, false
}

// WriteToken sets the same token on the response header and cookie.
func WriteToken(c *fiber.Ctx, token string) {
	c.Set(HeaderName, token)
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     cookiePath,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearTokenCookie expires the auth cookie on the client.
func ClearTokenCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     cookiePath,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
