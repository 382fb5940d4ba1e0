// models/processed_command.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessedCommand records the reply produced for a gateway update so a
// redelivered update replays the reply instead of re-running the command.
type ProcessedCommand struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UpdateID  int64          `gorm:"uniqueIndex;not null" json:"update_id"`
	SenderID  int64          `gorm:"index" json:"sender_id"`
	Command   string         `json:"command"`
	Response  datatypes.JSON `json:"response"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
