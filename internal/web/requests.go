package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 16 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Pointer fields distinguish an absent value from a zero one.

type createCompanyRequest struct {
	Name                  *string `json:"name" validate:"required,min=1,max=255"`
	Description           *string `json:"description" validate:"required,max=5000"`
	Username              *string `json:"username" validate:"omitempty,max=31"`
	CompanyProfilePicture *string `json:"companyProfilePicture"`
	IsPublic              *bool   `json:"isPublic"`
}

type updateCompanyRequest struct {
	ID                    string  `json:"id" validate:"required"`
	Name                  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description           *string `json:"description" validate:"omitempty,max=5000"`
	CompanyProfilePicture *string `json:"companyProfilePicture"`
	IsPublic              *bool   `json:"isPublic"`
}

type createScenarioRequest struct {
	Name        *string `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description" validate:"required,max=5000"`
	IsPublic    *bool   `json:"isPublic"`
}

type updateScenarioRequest struct {
	ID          string  `json:"id" validate:"required"`
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	IsPublic    *bool   `json:"isPublic"`
}

type deleteByIDRequest struct {
	ID string `json:"id" validate:"required"`
}

type createGameRequest struct {
	CompanyID  string `json:"companyId" validate:"required"`
	ScenarioID string `json:"scenarioId" validate:"required"`
}

type updateGameRequest struct {
	GameID        string  `json:"gameId" validate:"required"`
	Day           *int    `json:"day" validate:"required,min=0,max=7"`
	Result        *string `json:"result" validate:"required,oneof=in_progress completed"`
	FollowerCount *int64  `json:"followerCount" validate:"omitempty,min=0"`
}

type deleteGameRequest struct {
	GameID string `json:"gameId" validate:"required"`
}

type createPostRequest struct {
	GameID string  `json:"gameId" validate:"required"`
	Day    *int    `json:"day" validate:"required,min=0,max=6"`
	Text   *string `json:"text" validate:"required,max=5000"`
	Image  string  `json:"image"`
}

type likePostRequest struct {
	PostID string `json:"postId" validate:"required"`
}

// decodeRequest reads a JSON body into dst and validates it. The returned
// error message is safe to show to the client.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return validationMessage(validate.Struct(dst))
}

func validationMessage(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "min":
		return fmt.Errorf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}
