package tokenauth

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess   = "login_success"
	auditEventLoginFailure   = "login_failure"
	auditEventRefreshSuccess = "refresh_success"
	auditEventRefreshInvalid = "refresh_invalid"
	auditEventRefreshRevoked = "refresh_revoked"
	auditEventRefreshError   = "refresh_error"
	auditEventLogoutSession  = "logout_session"
	auditEventLogoutAll      = "logout_all"
)

// AuditErrorCode is the value of [AuditEvent].Error for failed operations.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrInvalidRefreshToken AuditErrorCode = "invalid_refresh_token"
	auditErrRevokedRefreshToken AuditErrorCode = "revoked_refresh_token"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidRefreshToken):
		return auditErrInvalidRefreshToken
	case errors.Is(err, ErrRevokedRefreshToken):
		return auditErrRevokedRefreshToken
	case errors.Is(err, ErrInvalidAccessToken):
		return auditErrInvalidToken
	default:
		return auditErrInternal
	}
}
