package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"brandsim/server/internal/models"
)

type GameStore struct {
	db *gorm.DB
}

func (s *GameStore) Create(ctx context.Context, game *models.Game) error {
	if err := s.db.WithContext(ctx).Create(game).Error; err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (s *GameStore) Get(ctx context.Context, id string) (*models.Game, error) {
	var game models.Game
	if err := s.db.WithContext(ctx).First(&game, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (s *GameStore) GetForUser(ctx context.Context, id, userID string) (*models.Game, error) {
	var game models.Game
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&game).Error
	if err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

func (s *GameStore) ListByOwner(ctx context.Context, userID string) ([]models.Game, error) {
	games := []models.Game{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// SaveProgression writes day, status and follower count in a single update.
func (s *GameStore) SaveProgression(ctx context.Context, id string, p models.Progression) error {
	err := s.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"day":            p.Day,
			"status":         p.Status,
			"follower_count": p.FollowerCount,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update game progression: %w", err)
	}
	return nil
}

// DeleteWithPosts removes the game and every post that references it.
func (s *GameStore) DeleteWithPosts(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("failed to delete game posts: %w", err)
		}
		if err := tx.Delete(&models.Game{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete game: %w", err)
		}
		return nil
	})
}
