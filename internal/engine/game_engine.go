package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"brandsim/server/internal/interfaces"
	"brandsim/server/internal/metrics"
	"brandsim/server/internal/models"
	"brandsim/server/internal/prompts"
)

// Workflow stages, used as metric labels and log fields.
const (
	stageLock       = "lock"
	stageLoad       = "load"
	stageImage      = "image"
	stageLikes      = "likes"
	stageUserPost   = "user_post"
	stageHistory    = "history"
	stageReactions  = "reactions"
	stageCharacters = "character_posts"
	stageProgress   = "progression"
)

// GameEngine runs roster generation and the daily post workflow
type GameEngine struct {
	companies interfaces.CompanyRepository
	scenarios interfaces.ScenarioRepository
	games     interfaces.GameRepository
	posts     interfaces.PostRepository
	blobs     interfaces.BlobStore
	locker    interfaces.GameLocker
	publisher interfaces.PostPublisher
	completer interfaces.Completer
	templates *prompts.TemplateEngine

	logger  *zap.Logger
	metrics *metrics.Metrics

	rosterSize      int
	workflowTimeout time.Duration
	now             func() time.Time
}

// GameEngineDeps groups the collaborators of a GameEngine
type GameEngineDeps struct {
	Companies interfaces.CompanyRepository
	Scenarios interfaces.ScenarioRepository
	Games     interfaces.GameRepository
	Posts     interfaces.PostRepository
	Blobs     interfaces.BlobStore
	Locker    interfaces.GameLocker
	Publisher interfaces.PostPublisher
	Completer interfaces.Completer
	Templates *prompts.TemplateEngine
	Logger    *zap.Logger
	Metrics   *metrics.Metrics

	RosterSize      int
	WorkflowTimeout time.Duration
}

// NewGameEngine creates a new game engine
func NewGameEngine(deps GameEngineDeps) *GameEngine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameEngine{
		companies:       deps.Companies,
		scenarios:       deps.Scenarios,
		games:           deps.Games,
		posts:           deps.Posts,
		blobs:           deps.Blobs,
		locker:          deps.Locker,
		publisher:       deps.Publisher,
		completer:       deps.Completer,
		templates:       deps.Templates,
		logger:          logger,
		metrics:         deps.Metrics,
		rosterSize:      deps.RosterSize,
		workflowTimeout: deps.WorkflowTimeout,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// CreateGame snapshots the company and scenario, generates the character
// roster and persists a fresh game on day 0.
func (e *GameEngine) CreateGame(ctx context.Context, userID, companyID, scenarioID string) (*models.Game, error) {
	company, err := e.companies.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company.UserID != userID && !company.IsPublic {
		return nil, models.ErrNotFound
	}

	scenario, err := e.scenarios.Get(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	if scenario.UserID != userID && !scenario.IsPublic {
		return nil, models.ErrNotFound
	}

	companySnap := company.Snapshot()
	scenarioSnap := scenario.Snapshot()

	prompt, err := e.templates.Render(prompts.CharacterRoster, prompts.RosterVars(companySnap, scenarioSnap, e.rosterSize))
	if err != nil {
		return nil, fmt.Errorf("failed to render roster prompt: %w", err)
	}
	content, err := e.completer.Complete(ctx, prompt, interfaces.CompletionOptions{Name: prompts.CharacterRoster, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("failed to generate roster: %w", err)
	}
	characters, err := parseRoster(content)
	if err != nil {
		return nil, err
	}

	game := &models.Game{
		ID:            uuid.NewString(),
		UserID:        userID,
		Company:       companySnap,
		Scenario:      scenarioSnap,
		Characters:    characters,
		Day:           0,
		Status:        models.GameStatusInProgress,
		FollowerCount: 0,
		CreatedAt:     e.now(),
	}
	if err := e.games.Create(ctx, game); err != nil {
		return nil, err
	}

	e.logger.Info("game created",
		zap.String("game_id", game.ID),
		zap.String("user_id", userID),
		zap.Int("characters", len(characters)),
	)
	return game, nil
}

// PostSubmission is one day's post from the player
type PostSubmission struct {
	UserID string
	GameID string
	Day    int
	Text   string
	// Image is an optional base64 payload or data URL.
	Image string
}

// PostResult reports what one workflow run wrote
type PostResult struct {
	UserPost       models.Post
	CharacterPosts []models.Post
	Progression    models.Progression
}

// SubmitPost runs the daily workflow: estimate likes, persist the player's
// post, generate character reactions for the next day and advance the game.
//
// The run is detached from ctx cancellation and bounded by the workflow
// timeout. Writes are not rolled back: a failure after the player's post is
// stored leaves that post in place.
func (e *GameEngine) SubmitPost(ctx context.Context, sub PostSubmission) (*PostResult, error) {
	if sub.Day < 0 || sub.Day > models.LastDay {
		return nil, fmt.Errorf("%w: day must be between 0 and %d", models.ErrValidation, models.LastDay)
	}

	ctx = context.WithoutCancel(ctx)
	if e.workflowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.workflowTimeout)
		defer cancel()
	}

	logger := e.logger.With(zap.String("game_id", sub.GameID), zap.Int("day", sub.Day))

	release, err := e.locker.LockGame(ctx, sub.GameID)
	if err != nil {
		return nil, e.fail(logger, stageLock, err)
	}
	defer release()

	game, err := e.games.GetForUser(ctx, sub.GameID, sub.UserID)
	if err != nil {
		return nil, e.fail(logger, stageLoad, err)
	}
	if game.Status == models.GameStatusCompleted {
		return nil, models.ErrGameCompleted
	}

	imageURL := ""
	if sub.Image != "" {
		key := fmt.Sprintf("posts/%s_%d_%s", game.ID, sub.Day, sub.UserID)
		imageURL, err = e.blobs.Upload(ctx, key, sub.Image)
		if err != nil {
			return nil, e.fail(logger, stageImage, err)
		}
	}

	likes, err := e.estimateLikes(ctx, game, sub.Text)
	if err != nil {
		return nil, e.fail(logger, stageLikes, err)
	}

	userPost := models.Post{
		ID:        uuid.NewString(),
		GameID:    game.ID,
		Day:       sub.Day,
		Creator:   game.Company.Creator(),
		Text:      sub.Text,
		Image:     imageURL,
		Likes:     likes,
		CreatedAt: e.now(),
	}
	if err := e.posts.Create(ctx, &userPost); err != nil {
		return nil, e.fail(logger, stageUserPost, err)
	}
	e.metrics.PostCreated("user", 1)

	history, err := e.posts.ListByGame(ctx, game.ID, nil)
	if err != nil {
		return nil, e.fail(logger, stageHistory, err)
	}

	reactions, err := e.generateReactions(ctx, game, sub.Text, history)
	if err != nil {
		return nil, e.fail(logger, stageReactions, err)
	}

	characterPosts, err := e.persistReactions(ctx, game, sub.Day+1, reactions)
	if err != nil {
		return nil, e.fail(logger, stageCharacters, err)
	}

	progression := game.Advance(sub.Day, likes)
	if err := e.games.SaveProgression(ctx, game.ID, progression); err != nil {
		return nil, e.fail(logger, stageProgress, err)
	}

	if e.publisher != nil {
		published := make([]models.Post, 0, len(characterPosts)+1)
		published = append(published, userPost)
		published = append(published, characterPosts...)
		e.publisher.PublishPosts(game.ID, published)
	}

	logger.Info("day advanced",
		zap.Int64("likes", likes),
		zap.Int("character_posts", len(characterPosts)),
		zap.Int("new_day", progression.Day),
		zap.String("status", string(progression.Status)),
		zap.Int64("followers", progression.FollowerCount),
	)

	return &PostResult{
		UserPost:       userPost,
		CharacterPosts: characterPosts,
		Progression:    progression,
	}, nil
}

func (e *GameEngine) estimateLikes(ctx context.Context, game *models.Game, text string) (int64, error) {
	prompt, err := e.templates.Render(prompts.LikeEstimation, prompts.LikeEstimationVars(game, text))
	if err != nil {
		return 0, fmt.Errorf("failed to render like prompt: %w", err)
	}
	content, err := e.completer.Complete(ctx, prompt, interfaces.CompletionOptions{Name: prompts.LikeEstimation, JSON: true})
	if err != nil {
		return 0, err
	}
	return parseLikeEstimate(content)
}

func (e *GameEngine) generateReactions(ctx context.Context, game *models.Game, text string, history []models.Post) ([]characterPost, error) {
	prompt, err := e.templates.Render(prompts.CharacterPosts, prompts.CharacterPostsVars(game, text, history))
	if err != nil {
		return nil, fmt.Errorf("failed to render character prompt: %w", err)
	}
	content, err := e.completer.Complete(ctx, prompt, interfaces.CompletionOptions{Name: prompts.CharacterPosts, JSON: true})
	if err != nil {
		return nil, err
	}
	return parseCharacterPosts(content)
}

// persistReactions writes all character posts concurrently. The first error
// is returned; posts already written stay.
func (e *GameEngine) persistReactions(ctx context.Context, game *models.Game, day int, reactions []characterPost) ([]models.Post, error) {
	posts := make([]models.Post, len(reactions))
	createdAt := e.now()
	for i, r := range reactions {
		creator := models.UnknownCreator
		if c, ok := game.FindCharacter(r.Username); ok {
			creator = c.Creator()
		}
		posts[i] = models.Post{
			ID:        uuid.NewString(),
			GameID:    game.ID,
			Day:       day,
			Creator:   creator,
			Text:      r.Content,
			Likes:     r.Likes,
			CreatedAt: createdAt,
		}
	}

	var g errgroup.Group
	for i := range posts {
		post := &posts[i]
		g.Go(func() error {
			return e.posts.Create(ctx, post)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.metrics.PostCreated("character", len(posts))
	return posts, nil
}

func (e *GameEngine) fail(logger *zap.Logger, stage string, err error) error {
	e.metrics.WorkflowFailed(stage)
	logger.Warn("post workflow aborted", zap.String("stage", stage), zap.Error(err))
	return err
}
