package model

import "time"

type IntentionStatus string

const (
	IntentionActive   IntentionStatus = "active"
	IntentionPaused   IntentionStatus = "paused"
	IntentionAchieved IntentionStatus = "achieved"
	IntentionArchived IntentionStatus = "archived"
)

func (s IntentionStatus) Valid() bool {
	switch s {
	case IntentionActive, IntentionPaused, IntentionAchieved, IntentionArchived:
		return true
	}
	return false
}

// Intention is a family goal ("best intention") tracked alongside tasks.
type Intention struct {
	ID          int64           `json:"id"`
	FamilyID    int64           `json:"family_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      IntentionStatus `json:"status"`
	CreatedBy   *int64          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
