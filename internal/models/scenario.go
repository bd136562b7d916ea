package models

import (
	"time"
)

// Scenario is the situational premise a game is played against
type Scenario struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"index;size:128" json:"userId"`
	Name        string    `gorm:"size:255" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsPublic    bool      `gorm:"index" json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ScenarioSnapshot is the copy of a scenario frozen into a game
type ScenarioSnapshot struct {
	ID          string `gorm:"size:36" json:"id"`
	Name        string `gorm:"size:255" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

func (s *Scenario) Snapshot() ScenarioSnapshot {
	return ScenarioSnapshot{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
	}
}
