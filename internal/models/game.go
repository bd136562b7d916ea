package models

import (
	"time"
)

// GameStatus is the lifecycle state of a game
type GameStatus string

const (
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusCompleted  GameStatus = "completed"
)

const (
	// LastDay is the final playable day; a post on it completes the game.
	LastDay = 6
	// FinalDay is the day counter value of a completed game.
	FinalDay = LastDay + 1
)

// Valid reports whether s is a known status.
func (s GameStatus) Valid() bool {
	return s == GameStatusInProgress || s == GameStatusCompleted
}

// Character is an AI persona generated once per game
type Character struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// Creator returns the author identity used for this character's posts.
func (c Character) Creator() Creator {
	return Creator{
		Name:     c.Name,
		Username: c.Username,
		Image:    c.Image,
	}
}

// Game is one playthrough binding a company, a scenario and a character roster
type Game struct {
	ID            string           `gorm:"primaryKey;size:36" json:"id"`
	UserID        string           `gorm:"index;size:128" json:"userId"`
	Company       CompanySnapshot  `gorm:"embedded;embeddedPrefix:company_" json:"company"`
	Scenario      ScenarioSnapshot `gorm:"embedded;embeddedPrefix:scenario_" json:"scenario"`
	Characters    []Character      `gorm:"type:text;serializer:json" json:"characters"`
	Day           int              `json:"day"`
	Status        GameStatus       `gorm:"size:32" json:"status"`
	FollowerCount int64            `json:"followerCount"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// FindCharacter looks a roster entry up by username.
func (g *Game) FindCharacter(username string) (Character, bool) {
	for _, c := range g.Characters {
		if c.Username == username {
			return c, true
		}
	}
	return Character{}, false
}

// Progression is the set of fields a day advance writes
type Progression struct {
	Day           int
	Status        GameStatus
	FollowerCount int64
}

// Advance computes the progression after a post on day with the given like estimate.
func (g *Game) Advance(day int, likes int64) Progression {
	next := day + 1
	status := GameStatusInProgress
	if next == FinalDay {
		status = GameStatusCompleted
	}
	if likes < 0 {
		likes = 0
	}
	return Progression{
		Day:           next,
		Status:        status,
		FollowerCount: g.FollowerCount + likes,
	}
}
