package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-auth-service/internal/auth"
	"github.com/spec-kit/token-auth-service/internal/domain"
	apperrors "github.com/spec-kit/token-auth-service/pkg/util/errorutil"
)

// Access is what a policy rule demands of the caller.
type Access int

const (
	AccessPermit Access = iota
	AccessRoles
	AccessDeny
)

// Rule maps an ant-style path pattern to an access requirement.
type Rule struct {
	Pattern string
	Access  Access
	Roles   []string
}

// Policy is an ordered rule table; the first matching rule decides and
// unmatched paths are denied.
type Policy struct {
	rules    []Rule
	insecure bool
}

// NewPolicy builds a policy from rules. An insecure policy permits everything.
func NewPolicy(insecure bool, rules ...Rule) *Policy {
	return &Policy{rules: rules, insecure: insecure}
}

// DefaultPolicy is the route table of the service.
func DefaultPolicy(insecure bool) *Policy {
	var rules []Rule
	permit := func(patterns ...string) {
		for _, p := range patterns {
			rules = append(rules, Rule{Pattern: p, Access: AccessPermit})
		}
	}
	require := func(pattern string, roles ...string) {
		rules = append(rules, Rule{Pattern: pattern, Access: AccessRoles, Roles: roles})
	}

	// static resources
	permit("/", "/index.html", "/robots.txt", "/favicon.png")
	// api docs
	permit("/swagger-ui.html", "/webjars/**", "/webjars-locator.js", "/swagger-resources/**", "/v2/api-docs")

	permit("/management/health")
	require("/management/**", domain.RoleAdmin)

	require("/api/**", domain.RoleUser)
	require("/system/**", domain.RoleUser)

	permit("/auth/**")
	permit("/generated/**", "/vendor/**")

	return NewPolicy(insecure, rules...)
}

// Decide returns nil when identity may access path.
func (p *Policy) Decide(identity domain.Identity, path string) error {
	if p.insecure {
		return nil
	}
	for _, rule := range p.rules {
		if !auth.MatchPath(rule.Pattern, path) {
			continue
		}
		switch rule.Access {
		case AccessPermit:
			return nil
		case AccessRoles:
			if !identity.Authenticated() {
				return apperrors.NewUnauthorized("authentication required")
			}
			if !identity.HasAnyRole(rule.Roles...) {
				return apperrors.NewForbidden("insufficient role")
			}
			return nil
		default:
			return apperrors.NewForbidden("access denied")
		}
	}
	return apperrors.NewForbidden("access denied")
}

// Handle enforces the policy as fiber middleware.
func (p *Policy) Handle(c *fiber.Ctx) error {
	if err := p.Decide(auth.CurrentIdentity(c), c.Path()); err != nil {
		return err
	}
	return c.Next()
}
