package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct tag validation and folds field errors into ErrValidation.
func Validate(target any) error {
	err := validate.Struct(target)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fieldErr.Field()), fieldErr.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
}

// Bind decodes the JSON body into target and validates it.
func Bind(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return Validate(target)
}

// IDParam parses a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrValidation, name, raw)
	}
	return id, nil
}
