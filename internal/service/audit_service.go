package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/config"
	"github.com/spec-kit/token-auth-service/internal/events"
)

// Publisher is the part of the Redis client the audit service needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// AuditService records authentication events in the log and, when a
// channel is configured, publishes them to Redis.
type AuditService struct {
	dispatcher events.Dispatcher
	publisher  Publisher
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service. publisher may be nil.
func NewAuditService(dispatcher events.Dispatcher, publisher Publisher, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAuthenticationSuccess, a.handleAuthenticationSuccess)
	a.dispatcher.Subscribe(events.EventAuthenticationFailure, a.handleAuthenticationFailure)
	a.dispatcher.Subscribe(events.EventTokenIssued, a.handleTokenIssued)
	a.dispatcher.Subscribe(events.EventLogout, a.handleLogout)
}

func (a *AuditService) handleAuthenticationSuccess(ctx context.Context, event events.Event) error {
	a.logger.Info("Authenticated", zap.String("login", event.Login), zap.Any("payload", event.Payload))
	return a.publish(ctx, event)
}

func (a *AuditService) handleAuthenticationFailure(ctx context.Context, event events.Event) error {
	a.logger.Info("AuthenticationFailed", zap.Any("payload", event.Payload))
	return a.publish(ctx, event)
}

func (a *AuditService) handleTokenIssued(ctx context.Context, event events.Event) error {
	a.logger.Debug("TokenIssued", zap.String("login", event.Login))
	return a.publish(ctx, event)
}

func (a *AuditService) handleLogout(ctx context.Context, event events.Event) error {
	a.logger.Info("LoggedOut", zap.String("login", event.Login))
	return a.publish(ctx, event)
}

func (a *AuditService) publish(ctx context.Context, event events.Event) error {
	channel := strings.TrimSpace(a.cfg.RedisChannel)
	if channel == "" || a.publisher == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err := a.publisher.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}
