package models

import (
	"time"
)

// Company is the user-authored persona that owns the player's posts
type Company struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"index;size:128" json:"userId"`
	Name         string    `gorm:"size:255" json:"name"`
	Username     string    `gorm:"uniqueIndex;size:64" json:"username"`
	Description  string    `gorm:"type:text" json:"description"`
	ProfileImage string    `gorm:"size:1024" json:"profileImage"`
	IsPublic     bool      `gorm:"index" json:"isPublic"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CompanySnapshot is the copy of a company frozen into a game
type CompanySnapshot struct {
	ID           string `gorm:"size:36" json:"id"`
	Name         string `gorm:"size:255" json:"name"`
	Username     string `gorm:"size:64" json:"username"`
	Description  string `gorm:"type:text" json:"description"`
	ProfileImage string `gorm:"size:1024" json:"profileImage"`
}

// Snapshot returns the denormalized form stored on a game.
func (c *Company) Snapshot() CompanySnapshot {
	return CompanySnapshot{
		ID:           c.ID,
		Name:         c.Name,
		Username:     c.Username,
		Description:  c.Description,
		ProfileImage: c.ProfileImage,
	}
}

// Creator returns the author identity used for the player's posts.
func (s CompanySnapshot) Creator() Creator {
	return Creator{
		Name:     s.Name,
		Username: s.Username,
		Image:    s.ProfileImage,
	}
}
