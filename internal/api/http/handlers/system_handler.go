package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/api/dto"
	"github.com/spec-kit/token-auth-service/internal/auth"
	apperrors "github.com/spec-kit/token-auth-service/pkg/util/errorutil"
)

const selfCheckTimeout = 5 * time.Second

// SystemHandler exposes service-to-service endpoints.
type SystemHandler struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewSystemHandler constructs handler. client must stamp system tokens on
// outgoing requests, see auth.SystemIdentityProvider.Client.
func NewSystemHandler(client *http.Client, baseURL string, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), logger: logger}
}

// Identity handles GET /system/identity.
func (h *SystemHandler) Identity(c *fiber.Ctx) error {
	a, _ := auth.AuthenticationFromContext(c)
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(a)})
}

// SelfCheck handles GET /management/selfcheck by calling /system/identity
// on this service under the system identity.
func (h *SystemHandler) SelfCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), selfCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/system/identity", nil)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			return apperrors.NewConfigurationError(err)
		}
		h.logger.Error("self check failed", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	defer resp.Body.Close()

	var body struct {
		Data dto.IdentityResponse `json:"data"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return apperrors.NewInternalError(err)
		}
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"status":   resp.StatusCode,
			"identity": body.Data,
		},
	})
}
