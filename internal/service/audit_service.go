package service

import (
	"context"
	"encoding/json"
	"time"

	"factory/internal/repository"
)

type AuditLogResponse struct {
	ID         uint            `json:"id"`
	UserID     *uint           `json:"user_id"`
	Username   string          `json:"username"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  time.Time       `json:"created_at"`
}

type AuditService interface {
	List(ctx context.Context, filter repository.AuditFilter, page, limit int) (*ListResult[AuditLogResponse], error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// List returns audit rows newest first. Rows without a user are shown as System.
func (s *auditService) List(ctx context.Context, filter repository.AuditFilter, page, limit int) (*ListResult[AuditLogResponse], error) {
	page, limit = normalizePage(page, limit)
	logs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		if l.User != nil {
			username = l.User.Username
		}
		details := json.RawMessage(l.Details)
		if !json.Valid(details) {
			details = json.RawMessage("{}")
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID,
			UserID:     l.UserID,
			Username:   username,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    details,
			CreatedAt:  l.CreatedAt,
		})
	}
	return &ListResult[AuditLogResponse]{Items: res, Total: total, Page: page, Limit: limit}, nil
}
