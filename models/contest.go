// models/contest.go
package models

import "time"

// ContestStatus is the pending-offer state machine shared by battles and races.
type ContestStatus string

const (
	ContestPending   ContestStatus = "pending"
	ContestAccepted  ContestStatus = "accepted"
	ContestCompleted ContestStatus = "completed"
	ContestFailed    ContestStatus = "failed"
	ContestDeclined  ContestStatus = "declined"
	ContestExpired   ContestStatus = "expired"
)

type PendingBattle struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	ChallengerID    int64         `gorm:"not null" json:"challenger_id"`
	TargetID        int64         `gorm:"index;not null" json:"target_id"`
	ChallengerInvID uint          `gorm:"not null" json:"challenger_inv_id"`
	TargetInvID     *uint         `json:"target_inv_id,omitempty"`
	ChatID          int64         `gorm:"not null" json:"chat_id"`
	Status          ContestStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt       time.Time     `gorm:"index" json:"created_at"`
}

type PendingRace struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	ChallengerID    int64         `gorm:"not null" json:"challenger_id"`
	TargetID        int64         `gorm:"index;not null" json:"target_id"`
	ChallengerInvID uint          `gorm:"not null" json:"challenger_inv_id"`
	TargetInvID     *uint         `json:"target_inv_id,omitempty"`
	Bet             int64         `gorm:"not null" json:"bet"`
	ChatID          int64         `gorm:"not null" json:"chat_id"`
	Status          ContestStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt       time.Time     `gorm:"index" json:"created_at"`
}
