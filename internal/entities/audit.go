package entities

import "time"

type AuditEventType string

const (
	AuditEventAuth        AuditEventType = "auth"
	AuditEventMaintenance AuditEventType = "maintenance"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// Auth audit actions.
const (
	AuditActionSignup = "signup"
	AuditActionLogin  = "login"
	AuditActionLogout = "logout"
)

type AuditEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	EventType AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action    string         `gorm:"size:100" json:"action"` // e.g. "signup", "login"
	Email     string         `gorm:"index;size:255" json:"email,omitempty"`
	Reason    string         `gorm:"size:100" json:"reason,omitempty"` // failure reason, e.g. "invalid_credentials"
	IPAddress string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status    AuditStatus    `gorm:"size:20" json:"status"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
