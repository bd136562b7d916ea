package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"brandsim/server/internal/models"
)

type PostStore struct {
	db *gorm.DB
}

func (s *PostStore) Create(ctx context.Context, post *models.Post) error {
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (s *PostStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// ListByGame returns a game's posts ordered by day, optionally restricted to one day.
func (s *PostStore) ListByGame(ctx context.Context, gameID string, day *int) ([]models.Post, error) {
	posts := []models.Post{}
	q := s.db.WithContext(ctx).Where("game_id = ?", gameID)
	if day != nil {
		q = q.Where("day = ?", *day)
	}
	if err := q.Order("day ASC").Order("created_at ASC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// ToggleLike flips the liked flag and moves the counter by one.
// Read then write without a transaction: concurrent toggles race and the last write wins.
func (s *PostStore) ToggleLike(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Liked = !post.Liked
	if post.Liked {
		post.Likes++
	} else {
		post.Likes--
	}

	err = s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"liked": post.Liked,
			"likes": post.Likes,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}
	return post, nil
}
