package interfaces

import (
	"context"

	"brandsim/server/internal/models"
)

// CompanyRepository defines company persistence
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	UsernameExists(ctx context.Context, username string) (bool, error)
	Get(ctx context.Context, id string) (*models.Company, error)
	GetForUser(ctx context.Context, id, userID string) (*models.Company, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Company, error)
	RandomPublic(ctx context.Context, userID string) ([]models.Company, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// ScenarioRepository defines scenario persistence
type ScenarioRepository interface {
	Create(ctx context.Context, scenario *models.Scenario) error
	Get(ctx context.Context, id string) (*models.Scenario, error)
	GetForUser(ctx context.Context, id, userID string) (*models.Scenario, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Scenario, error)
	RandomPublic(ctx context.Context, userID string) ([]models.Scenario, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// GameRepository defines game persistence
type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	Get(ctx context.Context, id string) (*models.Game, error)
	GetForUser(ctx context.Context, id, userID string) (*models.Game, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Game, error)
	SaveProgression(ctx context.Context, id string, p models.Progression) error
	DeleteWithPosts(ctx context.Context, id string) error
}

// PostRepository defines post persistence
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, id string) (*models.Post, error)
	ListByGame(ctx context.Context, gameID string, day *int) ([]models.Post, error)
	ToggleLike(ctx context.Context, id string) (*models.Post, error)
}
