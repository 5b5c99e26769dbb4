package handlers

import (
	"net/http"
	"strconv"

	"mapquester/middleware"
	"mapquester/services"
	"mapquester/utils/errors"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// PingLocation records the caller's position from the lat/lon query.
func (h *UserHandler) PingLocation(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.userService.PingLocation(r.Context(), userID, lat, lon); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Location updated", "user_id": userID})
}

// Me returns the caller's account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
