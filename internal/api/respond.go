package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/recompose/pkg/errors"
)

var errNoProjects = errors.New(errors.ErrCodeUnsupported, "project storage is not configured")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, errors.HTTPStatus(err), errorBody{Code: code, Message: errors.UserMessage(err)})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

// indexParam reads the {index} URL parameter.
func indexParam(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid instance index %q", chi.URLParam(r, "index"))
	}
	return i, nil
}

// slotRef names one remapper instance in request bodies.
type slotRef struct {
	Producer string `json:"producer"`
	Index    int    `json:"index"`
}

func (s slotRef) validate() error {
	if err := errors.ValidateName(s.Producer); err != nil {
		return err
	}
	if s.Index < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative instance index")
	}
	return nil
}
