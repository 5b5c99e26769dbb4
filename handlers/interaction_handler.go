package handlers

import (
	"encoding/json"
	"net/http"

	"mapquester/middleware"
	"mapquester/models"
	"mapquester/services"
	"mapquester/utils/errors"

	"github.com/gorilla/mux"
)

type InteractionHandler struct {
	points *services.PointService
}

func NewInteractionHandler(points *services.PointService) *InteractionHandler {
	return &InteractionHandler{points: points}
}

func (h *InteractionHandler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	ints, err := h.points.ListInteractions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if ints == nil {
		ints = []models.Interaction{}
	}
	writeJSON(w, http.StatusOK, ints)
}

// CreateInteraction adds a comment or toggles the caller's reaction.
func (h *InteractionHandler) CreateInteraction(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input models.InteractionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	if input.UserID != "" && input.UserID != userID {
		middleware.WriteError(w, errors.ErrPermissionDenied)
		return
	}
	if input.PointID == "" {
		middleware.WriteError(w, errors.Validation(map[string]string{"poiId": "Missing required field: poiId"}))
		return
	}

	res, err := h.points.CreateInteraction(r.Context(), userID, input)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
