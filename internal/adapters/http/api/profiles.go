package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// ProfileDependencies stores and reads attendee profiles.
type ProfileDependencies interface {
	PutProfile(ctx context.Context, p model.Profile) error
	GetProfile(ctx context.Context, id string) (model.Profile, error)
}

// ProfilesHandler handles the /profiles routes.
type ProfilesHandler struct {
	deps ProfileDependencies
	log  logger.Logger
}

// HandlePut handles POST /profiles. The body is upserted by id.
func (h *ProfilesHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_profile"
	var p model.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if err := h.deps.PutProfile(r.Context(), p); err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGet handles GET /profiles/{id}.
func (h *ProfilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.log, "api.get_profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
