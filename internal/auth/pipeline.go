package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/events"
	"github.com/spec-kit/token-auth-service/internal/observability"
	apperrors "github.com/spec-kit/token-auth-service/pkg/util/errorutil"
)

// Filter is one authentication step of a Pipeline.
type Filter interface {
	Name() string
	// RequiresAuthentication decides whether the filter acts on c.
	RequiresAuthentication(c *fiber.Ctx) bool
	// AttemptAuthentication establishes the authentication or rejects it.
	AttemptAuthentication(c *fiber.Ctx) (*Authentication, error)
	// OnSuccess records the authentication on the request.
	OnSuccess(c *fiber.Ctx, a *Authentication) error
}

// Dependencies bundles the collaborators shared by filters.
type Dependencies struct {
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// Pipeline runs filters in order and only then hands the request on, so
// nothing downstream sees the request before its identity is settled.
type Pipeline struct {
	filters []Filter
	deps    Dependencies
}

// NewPipeline composes filters into a pipeline.
func NewPipeline(deps Dependencies, filters ...Filter) *Pipeline {
	return &Pipeline{filters: filters, deps: deps.withDefaults()}
}

// Handle is the fiber middleware entry point.
func (p *Pipeline) Handle(c *fiber.Ctx) error {
	for _, f := range p.filters {
		if !f.RequiresAuthentication(c) {
			continue
		}
		a, err := f.AttemptAuthentication(c)
		if err != nil {
			return p.unsuccessful(c, f, err)
		}
		p.deps.Metrics.RecordAuthOutcome(f.Name() + ":success")
		if err := f.OnSuccess(c, a); err != nil {
			return err
		}
	}
	return c.Next()
}

// unsuccessful is the single failure path: it clears a cookie that held the
// rejected token and maps the failure kind onto a client error.
func (p *Pipeline) unsuccessful(c *fiber.Ctx, f Filter, err error) error {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) && authErr.Source == SourceCookie {
		ClearTokenCookie(c)
	}

	reason := failureReason(err)
	p.deps.Metrics.RecordAuthOutcome(f.Name() + ":" + reason)

	if !isCredentialFailure(err) {
		if errors.Is(err, ErrNotConfigured) {
			return apperrors.NewConfigurationError(err)
		}
		return err
	}

	p.deps.Logger.Warn("authentication rejected",
		zap.String("filter", f.Name()),
		zap.String("path", c.Path()),
		zap.String("reason", reason),
		zap.Error(err),
	)
	publish(c, p.deps, events.NewEvent(events.EventAuthenticationFailure, "", events.AuthenticationPayload{
		Method: f.Name(),
		Path:   c.Path(),
		Reason: reason,
	}))

	if errors.Is(err, ErrTokenExpired) {
		return apperrors.NewCredentialsExpired(err)
	}
	return apperrors.NewBadCredentials(err)
}

// publish delivers event; listener failures are logged, never surfaced.
func publish(c *fiber.Ctx, deps Dependencies, event events.Event) {
	if deps.Dispatcher == nil {
		return
	}
	if err := deps.Dispatcher.Publish(c.UserContext(), event); err != nil {
		deps.Logger.Warn("event listener failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}
