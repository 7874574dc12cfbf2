package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a JSON body into target and runs struct validation.
func Decode(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return shared.Validationf("invalid JSON body: %v", err)
	}
	return Validate(target)
}

// DecodeOptional is Decode for endpoints whose body may be omitted. An empty
// body leaves target at its zero value, whatever the Content-Length header says.
func DecodeOptional(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil && !errors.Is(err, io.EOF) {
		return shared.Validationf("invalid JSON body: %v", err)
	}
	return Validate(target)
}

// Validate runs the validator tags on target.
func Validate(target any) error {
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return shared.Validationf("%s", strings.Join(msgs, "; "))
		}
		return shared.Validationf("%v", err)
	}
	return nil
}

// UUIDParam parses a chi URL parameter as UUID.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

// OptionalUUIDQuery parses an optional UUID query parameter.
func OptionalUUIDQuery(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.Validationf("invalid %s %q", name, raw)
	}
	return &id, nil
}
