// Package web exposes the REST API over net/http.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/orientamada/orientamada/internal/app"
	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/dto"
)

const maxBodyBytes = 1 << 20

// Handler gives HTTP handlers access to the application container / Donne accès au conteneur
type Handler struct {
	container *app.Container
}

// NewHandler creates a handler bound to the container / Crée un handler lié au conteneur
func NewHandler(container *app.Container) *Handler {
	return &Handler{container: container}
}

// ErrorBody is the wire format of every error / Format de toutes les erreurs
type ErrorBody struct {
	Error    string            `json:"error"`
	Code     string            `json:"code"`
	Details  map[string]string `json:"details,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type listEnvelope struct {
	Data any             `json:"data"`
	Meta domain.PageMeta `json:"meta"`
}

// writeJSON encodes v with the given status / Encode v avec le statut donné
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataEnvelope{Data: data})
}

func writeList(w http.ResponseWriter, data any, meta domain.PageMeta) {
	writeJSON(w, http.StatusOK, listEnvelope{Data: data, Meta: meta})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError renders err; 5xx causes are logged and hidden / Affiche err, les 5xx sont journalisées et masquées
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = apperr.New(http.StatusGatewayTimeout, "request_timeout", "request timeout").Wrap(err)
	}
	e := apperr.As(err)
	body := ErrorBody{Error: e.Message, Code: e.Code, Details: e.Details}

	if e.Status >= http.StatusInternalServerError {
		requestLogger(r).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", e.Status,
			"error", err,
		)
		if e.Status == http.StatusInternalServerError {
			body.Error = "internal server error"
			body.Details = nil
		}
	}
	writeJSON(w, e.Status, body)
}

// decodeJSON reads a size-limited body and validates its struct tags / Lit et valide le corps
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := readJSON(w, r, dst); err != nil {
		return err
	}
	if details := dto.Validate(dst); details != nil {
		return apperr.Validation(details)
	}
	return nil
}

// readJSON only decodes; entity rules run in the services
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperr.New(http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		case errors.Is(err, io.EOF):
			return apperr.BadRequest("invalid_body", "request body is required")
		default:
			return apperr.BadRequest("invalid_body", "malformed JSON body").Wrap(err)
		}
	}
	return nil
}

// pathID parses a positive id path parameter / Analyse un identifiant de chemin
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid_id", "invalid "+name)
	}
	return id, nil
}

// parseListQuery reads page, per_page, q, sort and every *_id filter / Lit pagination, recherche, tri et filtres
func parseListQuery(r *http.Request) (domain.ListQuery, error) {
	values := r.URL.Query()
	q := domain.ListQuery{
		Page: parsePage(r),
		Q:    strings.TrimSpace(values.Get("q")),
		Sort: strings.TrimSpace(values.Get("sort")),
	}

	for key := range values {
		if !strings.HasSuffix(key, "_id") {
			continue
		}
		id, err := strconv.ParseInt(values.Get(key), 10, 64)
		if err != nil || id <= 0 {
			return q, apperr.BadRequest("invalid_filter", "invalid "+key)
		}
		q = q.WithFilter(key, id)
	}
	return q, nil
}

// parsePage reads page and per_page; the services clamp them / Lit page et per_page
func parsePage(r *http.Request) domain.Page {
	values := r.URL.Query()
	page, _ := strconv.Atoi(values.Get("page"))
	perPage, _ := strconv.Atoi(values.Get("per_page"))
	return domain.Page{Number: page, PerPage: perPage}
}
