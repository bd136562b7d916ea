package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandsim/server/internal/interfaces"
	"brandsim/server/internal/models"
	"brandsim/server/internal/prompts"
	"brandsim/server/internal/storage"
	"brandsim/server/internal/storage/storagetest"
)

type scriptedCompleter struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	prompts map[string][]string
	calls   []interfaces.CompletionOptions
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		replies: map[string]string{
			prompts.CharacterRoster: `{"characters":[{"name":"Tech Guru","username":"techguru","description":"gadget reviewer"},{"name":"Skeptic Sam","username":"sam","description":"doubts everything"}]}`,
			prompts.LikeEstimation:  `{"likes": 120}`,
			prompts.CharacterPosts:  "```json\n[{\"username\":\"techguru\",\"content\":\"Love it\",\"likes\":40},{\"username\":\"nobody\",\"content\":\"Who?\",\"likes\":2}]\n```",
		},
		errs:    map[string]error{},
		prompts: map[string][]string{},
	}
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string, opts interfaces.CompletionOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, opts)
	c.prompts[opts.Name] = append(c.prompts[opts.Name], prompt)
	if err := c.errs[opts.Name]; err != nil {
		return "", err
	}
	return c.replies[opts.Name], nil
}

type recordingBlobs struct {
	keys []string
}

func (b *recordingBlobs) Upload(_ context.Context, key string, _ string) (string, error) {
	b.keys = append(b.keys, key)
	return "https://cdn.test/" + key + ".png", nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	games []string
	posts [][]models.Post
}

func (p *recordingPublisher) PublishPosts(gameID string, posts []models.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.games = append(p.games, gameID)
	p.posts = append(p.posts, posts)
}

type engineFixture struct {
	store     *storage.MySQLStore
	engine    *GameEngine
	completer *scriptedCompleter
	blobs     *recordingBlobs
	publisher *recordingPublisher
	locker    *storage.MemoryGameLocker
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	store := storagetest.NewStore(t)
	templates, err := prompts.NewTemplateEngine()
	require.NoError(t, err)

	f := &engineFixture{
		store:     store,
		completer: newScriptedCompleter(),
		blobs:     &recordingBlobs{},
		publisher: &recordingPublisher{},
		locker:    storage.NewMemoryGameLocker(),
	}
	f.engine = NewGameEngine(GameEngineDeps{
		Companies:       store.Companies(),
		Scenarios:       store.Scenarios(),
		Games:           store.Games(),
		Posts:           store.Posts(),
		Blobs:           f.blobs,
		Locker:          f.locker,
		Publisher:       f.publisher,
		Completer:       f.completer,
		Templates:       templates,
		RosterSize:      2,
		WorkflowTimeout: time.Minute,
	})
	return f
}

func (f *engineFixture) seedGame(t *testing.T, userID string) *models.Game {
	t.Helper()
	ctx := context.Background()
	company := &models.Company{ID: "c-" + userID, UserID: userID, Name: "Acme", Username: "acme_" + userID, Description: "rockets", ProfileImage: "https://img/acme.png"}
	require.NoError(t, f.store.Companies().Create(ctx, company))
	scenario := &models.Scenario{ID: "s-" + userID, UserID: userID, Name: "Launch", Description: "product launch week"}
	require.NoError(t, f.store.Scenarios().Create(ctx, scenario))

	game, err := f.engine.CreateGame(ctx, userID, company.ID, scenario.ID)
	require.NoError(t, err)
	return game
}

func TestCreateGameGeneratesRoster(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")

	assert.Equal(t, 0, game.Day)
	assert.Equal(t, models.GameStatusInProgress, game.Status)
	assert.Equal(t, int64(0), game.FollowerCount)
	assert.Equal(t, "Acme", game.Company.Name)
	require.Len(t, game.Characters, 2)
	assert.Equal(t, "techguru", game.Characters[0].Username)

	require.Len(t, f.completer.calls, 1)
	assert.True(t, f.completer.calls[0].JSON)
	rosterPrompt := f.completer.prompts[prompts.CharacterRoster][0]
	assert.Contains(t, rosterPrompt, "rockets")
	assert.Contains(t, rosterPrompt, "product launch week")

	stored, err := f.store.Games().Get(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.Characters, stored.Characters)
}

func TestCreateGameRejectsPrivateForeignCompany(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Companies().Create(ctx, &models.Company{ID: "c1", UserID: "owner", Name: "Private", Username: "priv"}))
	require.NoError(t, f.store.Scenarios().Create(ctx, &models.Scenario{ID: "s1", UserID: "other", Name: "S", IsPublic: true}))

	_, err := f.engine.CreateGame(ctx, "other", "c1", "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, f.completer.calls)
}

func TestCreateGameFailsOnEmptyRoster(t *testing.T) {
	f := newEngineFixture(t)
	f.completer.replies[prompts.CharacterRoster] = `{"characters":[]}`
	ctx := context.Background()
	require.NoError(t, f.store.Companies().Create(ctx, &models.Company{ID: "c1", UserID: "u", Name: "A", Username: "a1"}))
	require.NoError(t, f.store.Scenarios().Create(ctx, &models.Scenario{ID: "s1", UserID: "u", Name: "S"}))

	_, err := f.engine.CreateGame(ctx, "u", "c1", "s1")
	assert.ErrorIs(t, err, ErrMalformedReply)

	games, err := f.store.Games().ListByOwner(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestSubmitPostAdvancesDay(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")
	ctx := context.Background()

	result, err := f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: 2, Text: "Launch day!"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.UserPost.Day)
	assert.Equal(t, "", result.UserPost.Image)
	assert.Equal(t, int64(120), result.UserPost.Likes)
	assert.Equal(t, game.Company.Creator(), result.UserPost.Creator)

	require.Len(t, result.CharacterPosts, 2)
	assert.Equal(t, 3, result.CharacterPosts[0].Day)
	assert.Equal(t, "Tech Guru", result.CharacterPosts[0].Creator.Name)
	assert.Equal(t, models.UnknownCreator, result.CharacterPosts[1].Creator)

	stored, err := f.store.Games().Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Day)
	assert.Equal(t, models.GameStatusInProgress, stored.Status)
	assert.Equal(t, int64(120), stored.FollowerCount)

	posts, err := f.store.Posts().ListByGame(ctx, game.ID, nil)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, 2, posts[0].Day)

	require.Len(t, f.publisher.posts, 1)
	assert.Len(t, f.publisher.posts[0], 3)
	assert.Empty(t, f.blobs.keys)

	reactionPrompt := f.completer.prompts[prompts.CharacterPosts][0]
	assert.Contains(t, reactionPrompt, "Launch day!")
	assert.Contains(t, reactionPrompt, "@"+game.Company.Username)
}

func TestSubmitPostUploadsImage(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")

	result, err := f.engine.SubmitPost(context.Background(), PostSubmission{UserID: "u1", GameID: game.ID, Day: 0, Text: "", Image: "aGVsbG8="})
	require.NoError(t, err)

	require.Len(t, f.blobs.keys, 1)
	assert.Equal(t, "posts/"+game.ID+"_0_u1", f.blobs.keys[0])
	assert.Equal(t, "https://cdn.test/posts/"+game.ID+"_0_u1.png", result.UserPost.Image)
}

func TestSubmitPostOnLastDayCompletesGame(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")
	ctx := context.Background()

	_, err := f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: models.LastDay, Text: "Finale"})
	require.NoError(t, err)

	stored, err := f.store.Games().Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FinalDay, stored.Day)
	assert.Equal(t, models.GameStatusCompleted, stored.Status)

	_, err = f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: 0, Text: "again"})
	assert.ErrorIs(t, err, models.ErrGameCompleted)
}

func TestSubmitPostNegativeLikesKeepFollowers(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")
	f.completer.replies[prompts.LikeEstimation] = `{"likes": -15}`

	result, err := f.engine.SubmitPost(context.Background(), PostSubmission{UserID: "u1", GameID: game.ID, Day: 0, Text: "oops"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Progression.FollowerCount)
	assert.Equal(t, int64(0), result.UserPost.Likes)
}

func TestSubmitPostReactionParseFailureKeepsUserPost(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")
	f.completer.replies[prompts.CharacterPosts] = "I cannot answer in JSON today"
	ctx := context.Background()

	_, err := f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: 1, Text: "hello"})
	assert.ErrorIs(t, err, ErrMalformedReply)

	posts, err := f.store.Posts().ListByGame(ctx, game.ID, nil)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Text)

	stored, err := f.store.Games().Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Day)
	assert.Empty(t, f.publisher.posts)
}

func TestSubmitPostCompletionFailureWritesNothing(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")
	f.completer.errs[prompts.LikeEstimation] = errors.New("upstream down")
	ctx := context.Background()

	_, err := f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: 0, Text: "hi"})
	require.Error(t, err)

	posts, err := f.store.Posts().ListByGame(ctx, game.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSubmitPostRejectsBusyGame(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")

	release, err := f.locker.LockGame(context.Background(), game.ID)
	require.NoError(t, err)
	defer release()

	_, err = f.engine.SubmitPost(context.Background(), PostSubmission{UserID: "u1", GameID: game.ID, Day: 0, Text: "hi"})
	assert.ErrorIs(t, err, models.ErrGameBusy)
}

func TestSubmitPostForeignGameIsNotFound(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")

	_, err := f.engine.SubmitPost(context.Background(), PostSubmission{UserID: "intruder", GameID: game.ID, Day: 0, Text: "hi"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubmitPostSurvivesCallerCancellation(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: 0, Text: "still runs"})
	require.NoError(t, err)
}

func TestFollowerCountAccumulatesOverWeek(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")
	ctx := context.Background()

	for day := 0; day <= models.LastDay; day++ {
		_, err := f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: day, Text: strings.Repeat("x", day)})
		require.NoError(t, err)
	}

	stored, err := f.store.Games().Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120*7), stored.FollowerCount)
	assert.Equal(t, models.GameStatusCompleted, stored.Status)

	one := 3
	posts, err := f.engine.ListPosts(ctx, "u1", game.ID, &one)
	require.NoError(t, err)
	// day 3 user post plus the two reactions to day 2
	assert.Len(t, posts, 3)
}

func TestToggleLikeTwiceRestores(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")
	ctx := context.Background()

	result, err := f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: 0, Text: "like me"})
	require.NoError(t, err)
	id := result.UserPost.ID

	post, err := f.engine.ToggleLike(ctx, "u1", id)
	require.NoError(t, err)
	assert.True(t, post.Liked)
	assert.Equal(t, int64(121), post.Likes)

	post, err = f.engine.ToggleLike(ctx, "u1", id)
	require.NoError(t, err)
	assert.False(t, post.Liked)
	assert.Equal(t, int64(120), post.Likes)

	_, err = f.engine.ToggleLike(ctx, "intruder", id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateAndDeleteGame(t *testing.T) {
	f := newEngineFixture(t)
	game := f.seedGame(t, "u1")
	ctx := context.Background()

	_, err := f.engine.SubmitPost(ctx, PostSubmission{UserID: "u1", GameID: game.ID, Day: 0, Text: "first"})
	require.NoError(t, err)

	followers := int64(999)
	updated, err := f.engine.UpdateGame(ctx, "u1", game.ID, GameOverride{Day: 4, Status: models.GameStatusInProgress, FollowerCount: &followers})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Day)
	assert.Equal(t, int64(999), updated.FollowerCount)

	_, err = f.engine.UpdateGame(ctx, "u1", game.ID, GameOverride{Day: 8, Status: models.GameStatusInProgress})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.engine.UpdateGame(ctx, "u1", game.ID, GameOverride{Day: 1, Status: "paused"})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.engine.UpdateGame(ctx, "u1", game.ID, GameOverride{Day: 3, Status: models.GameStatusCompleted})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.engine.UpdateGame(ctx, "u1", game.ID, GameOverride{Day: models.FinalDay, Status: models.GameStatusInProgress})
	assert.ErrorIs(t, err, models.ErrValidation)

	current, err := f.engine.GetGame(ctx, "u1", game.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, current.Day)
	assert.Equal(t, models.GameStatusInProgress, current.Status)

	deleted, err := f.engine.DeleteGame(ctx, "u1", game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.ID, deleted.ID)

	_, err = f.engine.GetGame(ctx, "u1", game.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	posts, err := f.store.Posts().ListByGame(ctx, game.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
