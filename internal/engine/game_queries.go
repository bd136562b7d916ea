package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"brandsim/server/internal/models"
)

func (e *GameEngine) GetGame(ctx context.Context, userID, gameID string) (*models.Game, error) {
	return e.games.GetForUser(ctx, gameID, userID)
}

// ListGames returns the caller's games, newest first.
func (e *GameEngine) ListGames(ctx context.Context, userID string) ([]models.Game, error) {
	return e.games.ListByOwner(ctx, userID)
}

// GameOverride is a manual correction of a game's progression fields
type GameOverride struct {
	Day    int
	Status models.GameStatus
	// FollowerCount keeps the stored value when nil.
	FollowerCount *int64
}

// UpdateGame overwrites day and status, and the follower count when given.
// It takes the game lock so it cannot interleave with a running workflow.
func (e *GameEngine) UpdateGame(ctx context.Context, userID, gameID string, o GameOverride) (*models.Game, error) {
	if o.Day < 0 || o.Day > models.FinalDay {
		return nil, fmt.Errorf("%w: day must be between 0 and %d", models.ErrValidation, models.FinalDay)
	}
	if !o.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, o.Status)
	}
	if (o.Status == models.GameStatusCompleted) != (o.Day == models.FinalDay) {
		return nil, fmt.Errorf("%w: status must be %q exactly on day %d", models.ErrValidation, models.GameStatusCompleted, models.FinalDay)
	}
	if o.FollowerCount != nil && *o.FollowerCount < 0 {
		return nil, fmt.Errorf("%w: followerCount must not be negative", models.ErrValidation)
	}

	release, err := e.locker.LockGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer release()

	game, err := e.games.GetForUser(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}

	p := models.Progression{
		Day:           o.Day,
		Status:        o.Status,
		FollowerCount: game.FollowerCount,
	}
	if o.FollowerCount != nil {
		p.FollowerCount = *o.FollowerCount
	}
	if err := e.games.SaveProgression(ctx, gameID, p); err != nil {
		return nil, err
	}

	game.Day = p.Day
	game.Status = p.Status
	game.FollowerCount = p.FollowerCount
	return game, nil
}

// DeleteGame removes the game and its posts and returns the game as it was.
func (e *GameEngine) DeleteGame(ctx context.Context, userID, gameID string) (*models.Game, error) {
	game, err := e.games.GetForUser(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	if err := e.games.DeleteWithPosts(ctx, gameID); err != nil {
		return nil, err
	}
	e.logger.Info("game deleted", zap.String("game_id", gameID), zap.String("user_id", userID))
	return game, nil
}

// ListPosts returns a game's posts ordered by day, optionally for one day only.
func (e *GameEngine) ListPosts(ctx context.Context, userID, gameID string, day *int) ([]models.Post, error) {
	if _, err := e.games.GetForUser(ctx, gameID, userID); err != nil {
		return nil, err
	}
	return e.posts.ListByGame(ctx, gameID, day)
}

// ToggleLike flips the liked flag of a post in one of the caller's games.
func (e *GameEngine) ToggleLike(ctx context.Context, userID, postID string) (*models.Post, error) {
	post, err := e.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if _, err := e.games.GetForUser(ctx, post.GameID, userID); err != nil {
		return nil, err
	}
	return e.posts.ToggleLike(ctx, postID)
}
