package web

import (
	"errors"
	"net/http"

	"github.com/unrolled/render"
	"go.uber.org/zap"

	"brandsim/server/internal/models"
)

var renderer = render.New(render.Options{
	Charset:    "UTF-8",
	IndentJSON: false,
})

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	_ = renderer.JSON(w, status, v)
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("Not found"))
	case errors.Is(err, models.ErrUsernameTaken):
		writeJSON(w, http.StatusBadRequest, errorBody("Username already taken"))
	case errors.Is(err, models.ErrGameCompleted):
		writeJSON(w, http.StatusBadRequest, errorBody("Game already completed"))
	case errors.Is(err, models.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, models.ErrGameBusy):
		writeJSON(w, http.StatusConflict, errorBody("A post for this game is already being processed"))
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", UserID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal Server Error"))
	}
}
