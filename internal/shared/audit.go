package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit actions recorded in permission_audit_log.
const (
	AuditActionGrant  = "GRANT"
	AuditActionRevoke = "REVOKE"
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
)

// Audit entity types.
const (
	AuditEntityUserPermission = "USER_PERMISSION"
	AuditEntityRolePermission = "ROLE_PERMISSION"
	AuditEntityPermission     = "PERMISSION"
)

// AuditEntry represents a record stored in permission_audit_log.
type AuditEntry struct {
	ActorID      uuid.UUID
	Action       string
	EntityType   string
	UserID       *uuid.UUID
	RoleID       *uuid.UUID
	PermissionID *uuid.UUID
	Details      map[string]any
	At           time.Time
}

// AuditLogger writes records into permission_audit_log.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry. Details are stored as JSONB.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.EntityType == "" {
		return errors.New("audit entry requires action and entity type")
	}
	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO permission_audit_log (id, actor_id, action, entity_type, user_id, role_id, permission_id, details, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), entry.ActorID, entry.Action, entry.EntityType, entry.UserID, entry.RoleID, entry.PermissionID, detailsJSON, at)
	return err
}
