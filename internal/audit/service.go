// Package audit records security-relevant and destructive actions as
// AuditEvent rows. Writes happen in the background so request latency is
// unaffected; Wait blocks until pending writes finish.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/cookbook/internal/database/audit"
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/logger"
)

const writeTimeout = 5 * time.Second

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	log  zerolog.Logger
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo, log: logger.Component("audit")}
}

// Log records an audit event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.repo.LogEvent(ctx, event); err != nil {
			s.log.Error().Err(err).Str("action", event.Action).Msg("failed to log audit event")
		}
	}()
}

// Wait blocks until all background writes have completed.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogAuth records a register, login or logout attempt.
func (s *Service) LogAuth(userID uint, action, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:     userID,
		EventType:  entities.AuditEventAuth,
		Action:     action,
		EntityType: "user",
		IPAddress:  ipAddr,
		UserAgent:  truncate(userAgent, 500),
		Status:     entities.AuditStatusSuccess,
	}
	if userID > 0 {
		event.EntityID = &userID
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogCreate records the creation of a recipe or comment.
func (s *Service) LogCreate(userID uint, entityType string, entityID uint, entityName string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventCreate,
		Action:      entityType + "_create",
		Description: "Created " + entityType + ": " + truncate(entityName, 400),
		EntityType:  entityType,
		EntityID:    &entityID,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogUpdate records a change to an entity owned by another user or by the actor.
func (s *Service) LogUpdate(userID uint, entityType string, entityID uint, entityName string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventUpdate,
		Action:      entityType + "_update",
		Description: "Updated " + entityType + ": " + truncate(entityName, 400),
		EntityType:  entityType,
		EntityID:    &entityID,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogDelete records a deletion event. privileged marks deletions performed
// by a privileged user on someone else's content.
func (s *Service) LogDelete(userID uint, entityType string, entityID uint, entityName string, privileged bool) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventDelete,
		Action:      entityType + "_delete",
		Description: "Deleted " + entityType + ": " + truncate(entityName, 400),
		EntityType:  entityType,
		EntityID:    &entityID,
		Status:      entities.AuditStatusSuccess,
	}
	if privileged {
		event.Metadata = mustJSON(map[string]any{"privileged": true})
	}

	s.LogAsync(event)
}

// LogProfile records profile changes such as password or avatar updates.
func (s *Service) LogProfile(userID uint, action, description string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventProfile,
		Action:      action,
		Description: description,
		EntityType:  "user",
		EntityID:    &userID,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogMaintenance records background housekeeping such as upload sweeps.
func (s *Service) LogMaintenance(action, description string, counts map[string]int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventMaintenance,
		Action:      action,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}
	if len(counts) > 0 {
		event.Metadata = mustJSON(counts)
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(ctx context.Context, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, userID, limit, offset)
}

// GetEventsByType retrieves paginated audit events of one type.
func (s *Service) GetEventsByType(ctx context.Context, eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(ctx, eventType, userID, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
