package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brandsim/server/internal/models"
)

type CompanyStore struct {
	db *gorm.DB
}

func (s *CompanyStore) Create(ctx context.Context, company *models.Company) error {
	taken, err := s.UsernameExists(ctx, company.Username)
	if err != nil {
		return err
	}
	if taken {
		return models.ErrUsernameTaken
	}
	if err := s.db.WithContext(ctx).Create(company).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (s *CompanyStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Company{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

func (s *CompanyStore) Get(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

// GetForUser returns the company only when userID owns it.
func (s *CompanyStore) GetForUser(ctx context.Context, id, userID string) (*models.Company, error) {
	var company models.Company
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&company).Error
	if err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

func (s *CompanyStore) ListByOwner(ctx context.Context, userID string) ([]models.Company, error) {
	companies := []models.Company{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&companies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// RandomPublic returns up to CommunitySampleSize public companies not owned by userID.
func (s *CompanyStore) RandomPublic(ctx context.Context, userID string) ([]models.Company, error) {
	companies := []models.Company{}
	err := s.db.WithContext(ctx).
		Where("is_public = ? AND user_id <> ?", true, userID).
		Find(&companies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list public companies: %w", err)
	}
	return sample(companies, CommunitySampleSize), nil
}

func (s *CompanyStore) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

func (s *CompanyStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Company{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return nil
}
