package interfaces

import (
	"context"

	"brandsim/server/internal/models"
)

// GameLocker serializes mutations of a single game
type GameLocker interface {
	// LockGame returns a release func, or models.ErrGameBusy when the game is held
	LockGame(ctx context.Context, gameID string) (func(), error)
}

// PostPublisher fans newly created posts out to live subscribers
type PostPublisher interface {
	PublishPosts(gameID string, posts []models.Post)
}
