package dto

import (
	"encoding/json"
	"time"

	"ventari/internal/infrastructure/storage/postgres"
)

// AuditEntryResponse represents one audit trail entry in API responses.
// Compressed payloads are already inflated by the audit service.
type AuditEntryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	EntityID  string          `json:"entityId"`
	UserID    string          `json:"userId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromAuditEntry converts an audit entry to a response DTO.
func FromAuditEntry(e postgres.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        e.ID.String(),
		Action:    e.Action,
		EntityID:  e.EntityID.String(),
		UserID:    e.UserID,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}

// FromAuditEntries converts a slice of audit entries.
func FromAuditEntries(entries []postgres.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = FromAuditEntry(e)
	}
	return out
}
