package adapthttp

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type registerForm struct {
	Username string `validate:"required,max=64"`
	// Rune count only; AuthService.Register enforces bcrypt's 72 byte limit.
	Password string `validate:"required,max=72"`
	Genre    string `validate:"max=64"`
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type movieForm struct {
	Name      string `validate:"max=256"`
	WatchedOn string `validate:"max=64"`
	Rating    string `validate:"required"`
	Review    string `validate:"max=10000"`
}

var errRatingNotNumber = errors.New("rating must be a number")

func parseRegisterForm(r *http.Request) registerForm {
	return registerForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		Genre:    strings.TrimSpace(r.PostFormValue("genre")),
	}
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

func parseMovieForm(r *http.Request) movieForm {
	return movieForm{
		Name:      strings.TrimSpace(r.PostFormValue("name")),
		WatchedOn: strings.TrimSpace(r.PostFormValue("date")),
		Rating:    strings.TrimSpace(r.PostFormValue("imdb")),
		Review:    r.PostFormValue("review"),
	}
}

// rating converts the submitted rating. Any finite float is accepted.
func (f movieForm) rating() (float64, error) {
	v, err := strconv.ParseFloat(f.Rating, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errRatingNotNumber
	}
	return v, nil
}

// describeValidation turns the first failed rule into a short sentence.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid form input."
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}
