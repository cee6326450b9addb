package worker

import (
	"github.com/spec-kit/token-auth-service/internal/auth"
	"github.com/spec-kit/token-auth-service/internal/events"
	"github.com/spec-kit/token-auth-service/internal/service"
)

// StartAuditWorker registers audit handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}

// StartSystemBootstrap bootstraps the system identity once the application
// reports ready.
func StartSystemBootstrap(dispatcher events.Dispatcher, provider *auth.SystemIdentityProvider) {
	if dispatcher == nil || provider == nil {
		return
	}
	dispatcher.Subscribe(events.EventApplicationReady, provider.HandleApplicationReady)
}
