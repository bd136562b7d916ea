package models

import (
	"time"
)

// Creator is the author identity copied onto a post at write time
type Creator struct {
	Name     string `gorm:"size:255" json:"name"`
	Username string `gorm:"size:64" json:"username"`
	Image    string `gorm:"size:1024" json:"image"`
}

// UnknownCreator is used for character posts whose username is not on the roster.
var UnknownCreator = Creator{Name: "Unknown", Username: "Unknown", Image: ""}

// Post is one piece of content in a game, written by the company or a character
type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	GameID    string    `gorm:"index:idx_posts_game_day;size:36" json:"gameId"`
	Day       int       `gorm:"index:idx_posts_game_day" json:"day"`
	Creator   Creator   `gorm:"embedded;embeddedPrefix:creator_" json:"creator"`
	Text      string    `gorm:"type:text" json:"text"`
	Image     string    `gorm:"size:1024" json:"image"`
	Likes     int64     `json:"likes"`
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"createdAt"`
}
