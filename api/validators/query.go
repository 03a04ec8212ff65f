package validators

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter, falling back to def when
// absent and clamping the result into [min, max].
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").WithDetails(map[string]string{key: "must be an integer"})
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n, nil
}

// ParseURLUUID reads a chi URL parameter and parses it as a UUID.
func ParseURLUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid URL parameter").WithDetails(map[string]string{key: "must be a UUID"})
	}
	return id, nil
}
