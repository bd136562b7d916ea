package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"brandsim/server/internal/models"
)

type ScenarioStore struct {
	db *gorm.DB
}

func (s *ScenarioStore) Create(ctx context.Context, scenario *models.Scenario) error {
	if err := s.db.WithContext(ctx).Create(scenario).Error; err != nil {
		return fmt.Errorf("failed to create scenario: %w", err)
	}
	return nil
}

func (s *ScenarioStore) Get(ctx context.Context, id string) (*models.Scenario, error) {
	var scenario models.Scenario
	if err := s.db.WithContext(ctx).First(&scenario, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &scenario, nil
}

func (s *ScenarioStore) GetForUser(ctx context.Context, id, userID string) (*models.Scenario, error) {
	var scenario models.Scenario
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&scenario).Error
	if err != nil {
		return nil, translate(err)
	}
	return &scenario, nil
}

func (s *ScenarioStore) ListByOwner(ctx context.Context, userID string) ([]models.Scenario, error) {
	scenarios := []models.Scenario{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&scenarios).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	return scenarios, nil
}

func (s *ScenarioStore) RandomPublic(ctx context.Context, userID string) ([]models.Scenario, error) {
	scenarios := []models.Scenario{}
	err := s.db.WithContext(ctx).
		Where("is_public = ? AND user_id <> ?", true, userID).
		Find(&scenarios).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list public scenarios: %w", err)
	}
	return sample(scenarios, CommunitySampleSize), nil
}

func (s *ScenarioStore) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.Scenario{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update scenario: %w", err)
	}
	return nil
}

func (s *ScenarioStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Scenario{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	return nil
}
