package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	service "github.com/okian/matchmaker/internal/app"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// InteractionDependencies accepts interactions for asynchronous ingestion.
type InteractionDependencies interface {
	SubmitInteraction(ctx context.Context, e model.InteractionEvent) (service.Submission, error)
}

// InteractionsHandler handles POST /interactions.
type InteractionsHandler struct {
	deps InteractionDependencies
	log  logger.Logger
}

// interactionRequest is the wire shape of POST /interactions. The id and
// timestamp are optional and filled in by the service.
type interactionRequest struct {
	ID        string            `json:"interaction_id"`
	SubjectID string            `json:"subject_id"`
	Kind      string            `json:"kind"`
	TargetID  string            `json:"target_id"`
	EventID   string            `json:"event_id"`
	Timestamp string            `json:"timestamp"`
	Metadata  map[string]string `json:"metadata"`
}

func (req interactionRequest) toEvent() (model.InteractionEvent, error) {
	kind, err := model.ParseEventKind(req.Kind)
	if err != nil {
		return model.InteractionEvent{}, err
	}
	e := model.InteractionEvent{
		ID:        req.ID,
		SubjectID: req.SubjectID,
		Kind:      kind,
		TargetID:  req.TargetID,
		EventID:   req.EventID,
		Metadata:  req.Metadata,
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return model.InteractionEvent{}, fmt.Errorf("invalid timestamp; must be RFC3339: %w", err)
		}
		e.Timestamp = ts
	}
	return e, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	ID        string `json:"interaction_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePost answers 202 for a newly queued interaction, 200 for a duplicate
// id and 429 when the ingest queue is full.
func (h *InteractionsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_interaction"
	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	e, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}

	sub, err := h.deps.SubmitInteraction(r.Context(), e)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	if sub.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ID: sub.ID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: sub.ID})
}
