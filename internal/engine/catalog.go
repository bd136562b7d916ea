package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brandsim/server/internal/interfaces"
	"brandsim/server/internal/models"
)

const (
	maxUsernameLength = 30
	usernameAttempts  = 5
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9_]+`)
	usernamePattern  = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
)

// Catalog manages the companies and scenarios games are built from
type Catalog struct {
	companies interfaces.CompanyRepository
	scenarios interfaces.ScenarioRepository
	blobs     interfaces.BlobStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewCatalog(companies interfaces.CompanyRepository, scenarios interfaces.ScenarioRepository, blobs interfaces.BlobStore, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		companies: companies,
		scenarios: scenarios,
		blobs:     blobs,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CompanyInput carries the fields of a company create or update.
// Nil fields are left untouched on update.
type CompanyInput struct {
	Name        *string
	Description *string
	Username    *string
	// Picture is an http(s) URL kept as is, or a base64 payload to upload.
	Picture  *string
	IsPublic *bool
}

// CompanyListing is the company overview shown to a user
type CompanyListing struct {
	UserCompanies      []models.Company `json:"userCompanies"`
	CommunityCompanies []models.Company `json:"communityCompanies"`
}

func (c *Catalog) ListCompanies(ctx context.Context, userID string) (*CompanyListing, error) {
	own, err := c.companies.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	community, err := c.companies.RandomPublic(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CompanyListing{UserCompanies: own, CommunityCompanies: community}, nil
}

// CreateCompany persists a new company. An explicit username that is taken is
// rejected; one derived from the name gets a random suffix instead.
func (c *Catalog) CreateCompany(ctx context.Context, userID string, in CompanyInput) (*models.Company, error) {
	company := &models.Company{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      deref(in.Name),
		CreatedAt: c.now(),
	}
	company.Description = deref(in.Description)
	if in.IsPublic != nil {
		company.IsPublic = *in.IsPublic
	}

	if pic := deref(in.Picture); pic != "" {
		url, err := c.resolvePicture(ctx, company.ID, pic)
		if err != nil {
			return nil, err
		}
		company.ProfileImage = url
	}

	if explicit := strings.TrimPrefix(strings.TrimSpace(deref(in.Username)), "@"); explicit != "" {
		if !usernamePattern.MatchString(explicit) {
			return nil, fmt.Errorf("%w: username must be 3-30 letters, digits or underscores", models.ErrValidation)
		}
		company.Username = explicit
		if err := c.companies.Create(ctx, company); err != nil {
			return nil, err
		}
		return company, nil
	}

	base := Slugify(company.Name)
	candidate := base
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		company.Username = candidate
		err := c.companies.Create(ctx, company)
		if err == nil {
			return company, nil
		}
		if !errors.Is(err, models.ErrUsernameTaken) {
			return nil, err
		}
		candidate = withSuffix(base)
	}
	return nil, models.ErrUsernameTaken
}

func (c *Catalog) UpdateCompany(ctx context.Context, userID, id string, in CompanyInput) (*models.Company, error) {
	if _, err := c.companies.GetForUser(ctx, id, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}
	if in.Picture != nil {
		url := ""
		if *in.Picture != "" {
			var err error
			url, err = c.resolvePicture(ctx, id, *in.Picture)
			if err != nil {
				return nil, err
			}
		}
		updates["profile_image"] = url
	}

	if err := c.companies.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return c.companies.Get(ctx, id)
}

// DeleteCompany removes the company and returns it as it was. Games keep their snapshot.
func (c *Catalog) DeleteCompany(ctx context.Context, userID, id string) (*models.Company, error) {
	company, err := c.companies.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := c.companies.Delete(ctx, id); err != nil {
		return nil, err
	}
	c.logger.Info("company deleted", zap.String("company_id", id), zap.String("user_id", userID))
	return company, nil
}

func (c *Catalog) resolvePicture(ctx context.Context, companyID, picture string) (string, error) {
	if strings.HasPrefix(picture, "http://") || strings.HasPrefix(picture, "https://") {
		return picture, nil
	}
	return c.blobs.Upload(ctx, "companies/"+companyID, picture)
}

// ScenarioInput carries the fields of a scenario create or update.
type ScenarioInput struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

type ScenarioListing struct {
	UserScenarios      []models.Scenario `json:"userScenarios"`
	CommunityScenarios []models.Scenario `json:"communityScenarios"`
}

func (c *Catalog) ListScenarios(ctx context.Context, userID string) (*ScenarioListing, error) {
	own, err := c.scenarios.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	community, err := c.scenarios.RandomPublic(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ScenarioListing{UserScenarios: own, CommunityScenarios: community}, nil
}

func (c *Catalog) CreateScenario(ctx context.Context, userID string, in ScenarioInput) (*models.Scenario, error) {
	scenario := &models.Scenario{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        deref(in.Name),
		Description: deref(in.Description),
		CreatedAt:   c.now(),
	}
	if in.IsPublic != nil {
		scenario.IsPublic = *in.IsPublic
	}
	if err := c.scenarios.Create(ctx, scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}

func (c *Catalog) UpdateScenario(ctx context.Context, userID, id string, in ScenarioInput) (*models.Scenario, error) {
	if _, err := c.scenarios.GetForUser(ctx, id, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}
	if err := c.scenarios.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return c.scenarios.Get(ctx, id)
}

func (c *Catalog) DeleteScenario(ctx context.Context, userID, id string) (*models.Scenario, error) {
	scenario, err := c.scenarios.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := c.scenarios.Delete(ctx, id); err != nil {
		return nil, err
	}
	c.logger.Info("scenario deleted", zap.String("scenario_id", id), zap.String("user_id", userID))
	return scenario, nil
}

// Slugify derives a username from a display name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = strings.Trim(slug, "_")
	if len(slug) > maxUsernameLength-5 {
		slug = slug[:maxUsernameLength-5]
	}
	for len(slug) < 3 {
		slug += "_"
	}
	if strings.Trim(slug, "_") == "" {
		slug = "company"
	}
	return slug
}

func withSuffix(base string) string {
	return fmt.Sprintf("%s_%04d", base, rand.Intn(10000))
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
