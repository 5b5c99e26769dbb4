package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"mapquester/middleware"
	"mapquester/models"
	"mapquester/services"
	"mapquester/utils/errors"

	"github.com/gorilla/mux"
)

const maxUploadBytes = 32 << 20

type POIHandler struct {
	points *services.PointService
}

type PointsResponse struct {
	Pois       []models.Point `json:"pois"`
	Pagination *Pagination    `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

type CreatedPointResponse struct {
	PoiID string `json:"poi_id"`
	models.Point
}

type NearbyPOIResponse struct {
	NearbyPOIs []services.NearbyPoint `json:"nearby_pois"`
	Count      int                    `json:"count"`
	Lat        float64                `json:"lat"`
	Lon        float64                `json:"lon"`
	Radius     float64                `json:"radius"`
}

func NewPOIHandler(points *services.PointService) *POIHandler {
	return &POIHandler{points: points}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func requestUser(r *http.Request) (string, error) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		return "", errors.ErrUnauthorized
	}
	return userID, nil
}

// GetPoints lists the points visible to the path user.
func (h *POIHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if mux.Vars(r)["userId"] != userID {
		middleware.WriteError(w, errors.ErrPermissionDenied)
		return
	}

	q := r.URL.Query()
	mode, ok := models.ParseViewMode(q.Get("viewType"))
	if !ok && q.Get("viewType") != "" {
		middleware.WriteError(w, errors.Validation(map[string]string{"viewType": "Must be 'map' or 'list'."}))
		return
	}
	tags, err := parseTags(append(q["tags[]"], q["tags"]...))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	listing, err := h.points.List(r.Context(), userID, mode, tags, page, pageSize)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	resp := PointsResponse{Pois: listing.Points}
	if resp.Pois == nil {
		resp.Pois = []models.Point{}
	}
	if listing.Paginated {
		if page < 1 {
			page = 1
		}
		if pageSize < 1 {
			pageSize = services.DefaultPageSize
		}
		resp.Pagination = &Pagination{Page: page, PageSize: pageSize, TotalPages: listing.TotalPages}
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseTags(raw []string) ([]models.Tag, error) {
	var tags []models.Tag
	for _, s := range raw {
		for _, part := range strings.Split(s, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, ok := models.ParseTag(part)
			if !ok {
				return nil, errors.Validation(map[string]string{"tags": "Unknown tag " + strconv.Quote(part) + "."})
			}
			tags = append(tags, t)
		}
	}
	return tags, nil
}

// CreatePoint accepts the multipart create form.
func (h *POIHandler) CreatePoint(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	if owner := r.FormValue("userId"); owner != "" && owner != userID {
		middleware.WriteError(w, errors.ErrPermissionDenied)
		return
	}

	in := services.CreatePointInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tag:         r.FormValue("tag"),
		Latitude:    formFloat(r, "latitude"),
		Longitude:   formFloat(r, "longitude"),
		IsPublic:    true,
	}
	if v := r.FormValue("isPublic"); v != "" {
		in.IsPublic, _ = strconv.ParseBool(v)
	}
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["content"] {
			f, err := fh.Open()
			if err != nil {
				middleware.WriteError(w, errors.ErrInvalidInput)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				middleware.WriteError(w, errors.ErrInvalidInput)
				return
			}
			in.Content = append(in.Content, models.Attachment{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	p, err := h.points.Create(r.Context(), userID, in)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedPointResponse{PoiID: p.ID, Point: p})
}

func formFloat(r *http.Request, key string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(key)), 64)
	if err != nil {
		return nil
	}
	return &v
}

// UpdatePoint merges the JSON body into the stored point.
func (h *POIHandler) UpdatePoint(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	current, err := h.points.Get(r.Context(), userID, id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	var input struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Tag         *string  `json:"tag"`
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	patch := models.PatchFrom(current)
	if input.Title != nil {
		patch.Title = *input.Title
	}
	if input.Description != nil {
		patch.Description = *input.Description
	}
	if input.Tag != nil {
		patch.Tag = models.Tag(strings.ToLower(*input.Tag))
	}
	if input.Latitude != nil {
		patch.Latitude = *input.Latitude
	}
	if input.Longitude != nil {
		patch.Longitude = *input.Longitude
	}

	updated, err := h.points.Update(r.Context(), userID, id, patch)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeletePoint logically deletes the point.
func (h *POIHandler) DeletePoint(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.points.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "POI deleted successfully"})
}

// GetNearbyPOIs answers lat/lon/radius (meters) queries, optionally filtered by type.
func (h *POIHandler) GetNearbyPOIs(w http.ResponseWriter, r *http.Request) {
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
	radius, err := strconv.ParseFloat(r.URL.Query().Get("radius"), 64)
	if err != nil || radius <= 0 {
		radius = 3000 // Default radius in meters
	}
	var tag models.Tag
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, ok := models.ParseTag(raw)
		if !ok {
			middleware.WriteError(w, errors.ErrInvalidInput)
			return
		}
		tag = t
	}

	pois, err := h.points.Nearby(r.Context(), userID, lat, lon, radius, tag)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if pois == nil {
		pois = []services.NearbyPoint{}
	}
	writeJSON(w, http.StatusOK, NearbyPOIResponse{
		NearbyPOIs: pois,
		Count:      len(pois),
		Lat:        lat,
		Lon:        lon,
		Radius:     radius,
	})
}
