package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"brandsim/server/internal/engine"
	"brandsim/server/internal/models"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	catalog *engine.Catalog
	games   *engine.GameEngine
	hub     *PostHub
	db      Pinger
	logger  *zap.Logger
}

func NewHandlers(catalog *engine.Catalog, games *engine.GameEngine, hub *PostHub, db Pinger, logger *zap.Logger) *Handlers {
	return &Handlers{
		catalog: catalog,
		games:   games,
		hub:     hub,
		db:      db,
		logger:  logger,
	}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status":  "ok",
		"service": "brandsim",
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
	}
	if h.hub != nil {
		body["feedClients"] = h.hub.ClientCount()
	}
	writeJSON(w, status, body)
}

// Company endpoints

func (h *Handlers) ListCompanies(w http.ResponseWriter, r *http.Request) {
	listing, err := h.catalog.ListCompanies(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handlers) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	company, err := h.catalog.CreateCompany(r.Context(), UserID(r.Context()), engine.CompanyInput{
		Name:        req.Name,
		Description: req.Description,
		Username:    req.Username,
		Picture:     req.CompanyProfilePicture,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (h *Handlers) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req updateCompanyRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	company, err := h.catalog.UpdateCompany(r.Context(), UserID(r.Context()), req.ID, engine.CompanyInput{
		Name:        req.Name,
		Description: req.Description,
		Picture:     req.CompanyProfilePicture,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *Handlers) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	var req deleteByIDRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	company, err := h.catalog.DeleteCompany(r.Context(), UserID(r.Context()), req.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// Scenario endpoints

func (h *Handlers) ListScenarios(w http.ResponseWriter, r *http.Request) {
	listing, err := h.catalog.ListScenarios(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handlers) CreateScenario(w http.ResponseWriter, r *http.Request) {
	var req createScenarioRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	scenario, err := h.catalog.CreateScenario(r.Context(), UserID(r.Context()), engine.ScenarioInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, scenario)
}

func (h *Handlers) UpdateScenario(w http.ResponseWriter, r *http.Request) {
	var req updateScenarioRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	scenario, err := h.catalog.UpdateScenario(r.Context(), UserID(r.Context()), req.ID, engine.ScenarioInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, scenario)
}

func (h *Handlers) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	var req deleteByIDRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	scenario, err := h.catalog.DeleteScenario(r.Context(), UserID(r.Context()), req.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, scenario)
}

// Game endpoints

// GetGames returns one game when ?id= is given, otherwise all of the caller's games.
func (h *Handlers) GetGames(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if id := r.URL.Query().Get("id"); id != "" {
		game, err := h.games.GetGame(r.Context(), userID, id)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, game)
		return
	}

	games, err := h.games.ListGames(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	game, err := h.games.CreateGame(r.Context(), UserID(r.Context()), req.CompanyID, req.ScenarioID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (h *Handlers) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var req updateGameRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	game, err := h.games.UpdateGame(r.Context(), UserID(r.Context()), req.GameID, engine.GameOverride{
		Day:           *req.Day,
		Status:        models.GameStatus(*req.Result),
		FollowerCount: req.FollowerCount,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *Handlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	var req deleteGameRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	game, err := h.games.DeleteGame(r.Context(), UserID(r.Context()), req.GameID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// Post endpoints

func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	gameID := query.Get("gameId")
	if gameID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("gameId is required"))
		return
	}

	var day *int
	if raw := query.Get("day"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 || d > models.FinalDay {
			writeJSON(w, http.StatusBadRequest, errorBody("day must be an integer between 0 and 7"))
			return
		}
		day = &d
	}

	posts, err := h.games.ListPosts(r.Context(), UserID(r.Context()), gameID, day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// CreatePost runs the daily workflow for the submitted post.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	_, err := h.games.SubmitPost(r.Context(), engine.PostSubmission{
		UserID: UserID(r.Context()),
		GameID: req.GameID,
		Day:    *req.Day,
		Text:   *req.Text,
		Image:  req.Image,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post created successfully"})
}

func (h *Handlers) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var req likePostRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	post, err := h.games.ToggleLike(r.Context(), UserID(r.Context()), req.PostID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"postId": post.ID,
		"liked":  post.Liked,
		"likes":  post.Likes,
	})
}

// GameFeed upgrades to a WebSocket that streams posts created for one of the caller's games.
func (h *Handlers) GameFeed(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("gameId is required"))
		return
	}
	if _, err := h.games.GetGame(r.Context(), UserID(r.Context()), gameID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.hub.ServeFeed(w, r, gameID)
}
