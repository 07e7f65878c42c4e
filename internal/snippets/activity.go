package snippets

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction enumerates audited snippet operations.
type ActivityAction string

const (
	ActivityActionCreate ActivityAction = "create"
	ActivityActionUpdate ActivityAction = "update"
	ActivityActionDelete ActivityAction = "delete"
)

// ActivityRecord captures an append-only audit trail for snippet mutations.
type ActivityRecord struct {
	ActivityID string         `gorm:"column:activity_id;primaryKey;size:190;not null"`
	UserID     int64          `gorm:"column:user_id;not null;index:idx_activity_user_time,priority:1"`
	SnippetID  int64          `gorm:"column:snippet_id;not null"`
	Action     ActivityAction `gorm:"column:action;size:50;not null"`
	OccurredAt time.Time      `gorm:"column:occurred_at;not null;index:idx_activity_user_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (ActivityRecord) TableName() string {
	return "snippet_activity"
}

// IDProvider issues identifiers for audit records.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
