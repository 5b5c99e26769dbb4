package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mapquester/models"
	"mapquester/utils/errors"
)

// PointClient implements the point and interaction endpoints on top of APIClient.
type PointClient struct {
	api *APIClient
}

func NewPointClient(api *APIClient) *PointClient {
	return &PointClient{api: api}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number or a decimal string such as "40.712800".
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %s: %w", b, err)
	}
	f.Value, f.Set = v, true
	return nil
}

type wirePoint struct {
	ID          flexString `json:"id"`
	PoiID       flexString `json:"poi_id"`
	UserID      flexString `json:"userId"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Tag         *string    `json:"tag"`
	Latitude    flexFloat  `json:"latitude"`
	Longitude   flexFloat  `json:"longitude"`
	IsPublic    *bool      `json:"isPublic"`
	Reactions   *int       `json:"reactions"`
	Content     []string   `json:"content"`
	CreatedAt   *time.Time `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// overlay writes every field the server sent over p.
func (w wirePoint) overlay(p models.Point) models.Point {
	if w.ID != "" {
		p.ID = string(w.ID)
	} else if w.PoiID != "" {
		p.ID = string(w.PoiID)
	}
	if w.UserID != "" {
		p.UserID = string(w.UserID)
	}
	if w.Title != nil {
		p.Title = *w.Title
	}
	if w.Description != nil {
		p.Description = *w.Description
	}
	if w.Tag != nil {
		p.Tag = models.Tag(strings.ToLower(*w.Tag))
	}
	if w.Latitude.Set {
		p.Latitude = w.Latitude.Value
	}
	if w.Longitude.Set {
		p.Longitude = w.Longitude.Value
	}
	if w.IsPublic != nil {
		p.IsPublic = *w.IsPublic
	}
	if w.Reactions != nil {
		p.Reactions = *w.Reactions
	}
	if w.Content != nil {
		p.Content = w.Content
	}
	if w.CreatedAt != nil {
		p.CreatedAt = w.CreatedAt
	}
	if w.UpdatedAt != nil {
		p.UpdatedAt = w.UpdatedAt
	}
	return p
}

type pointsResponse struct {
	Pois       []wirePoint `json:"pois"`
	Pagination *struct {
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

// FetchPoints requests one page of points visible to userID.
func (c *PointClient) FetchPoints(ctx context.Context, userID string, q models.PointQuery) (models.PointPage, error) {
	params := url.Values{}
	params.Set("viewType", q.Mode.String())
	for _, t := range q.Tags {
		params.Add("tags[]", string(t))
	}
	if q.Mode == models.ListView {
		params.Set("page", strconv.Itoa(q.Page))
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}

	var resp pointsResponse
	if err := c.api.do(ctx, "GET", "/pois/get/"+url.PathEscape(userID), params, nil, &resp); err != nil {
		return models.PointPage{}, err
	}

	page := models.PointPage{Points: make([]models.Point, 0, len(resp.Pois))}
	for _, w := range resp.Pois {
		p := w.overlay(models.Point{IsPublic: true})
		if p.ID == "" {
			continue
		}
		page.Points = append(page.Points, p)
	}
	if resp.Pagination != nil {
		page.HasPagination = true
		page.TotalPages = resp.Pagination.TotalPages
	}
	return page, nil
}

// CreatePoint posts the draft as a multipart form, attachments as repeated content parts.
func (c *PointClient) CreatePoint(ctx context.Context, userID string, d models.Draft) (models.Point, error) {
	if d.Position == nil {
		return models.Point{}, errors.Validation(map[string]string{string(models.FieldLatitude): "Coordinates are required"})
	}
	body, err := draftForm(userID, d)
	if err != nil {
		return models.Point{}, err
	}

	var resp wirePoint
	if err := c.api.do(ctx, "POST", "/pois/create/", nil, body, &resp); err != nil {
		return models.Point{}, err
	}
	p := resp.overlay(models.Point{
		UserID:      userID,
		Title:       d.Title,
		Description: d.Description,
		Tag:         d.Tag,
		Latitude:    d.Position.Latitude,
		Longitude:   d.Position.Longitude,
		IsPublic:    d.IsPublic,
	})
	if p.ID == "" {
		return models.Point{}, errors.Transport(fmt.Errorf("create response carried no point id"), 201)
	}
	return p, nil
}

func draftForm(userID string, d models.Draft) (*payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"userId", userID},
		{"latitude", strconv.FormatFloat(d.Position.Latitude, 'f', 6, 64)},
		{"longitude", strconv.FormatFloat(d.Position.Longitude, 'f', 6, 64)},
		{"title", d.Title},
		{"tag", string(d.Tag)},
		{"description", d.Description},
		{"isPublic", strconv.FormatBool(d.IsPublic)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("encode form: %w", err)
		}
	}
	for _, a := range d.Content {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="content"; filename=%q`, a.Filename))
		h.Set("Content-Type", a.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("encode attachment: %w", err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, fmt.Errorf("encode attachment: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	return &payload{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

// UpdatePoint sends the editable fields and merges the response into current.
func (c *PointClient) UpdatePoint(ctx context.Context, current models.Point, patch models.PointPatch) (models.Point, error) {
	body, err := jsonPayload(patch)
	if err != nil {
		return models.Point{}, err
	}
	var resp wirePoint
	if err := c.api.do(ctx, "PATCH", "/pois/update/"+url.PathEscape(current.ID)+"/", nil, body, &resp); err != nil {
		return models.Point{}, err
	}
	updated := resp.overlay(patch.Apply(current))
	updated.ID = current.ID
	return updated, nil
}

// DeletePoint asks for a logical delete.
func (c *PointClient) DeletePoint(ctx context.Context, id string) error {
	return c.api.do(ctx, "PATCH", "/pois/delete/"+url.PathEscape(id)+"/", nil, nil, nil)
}

type wireInteraction struct {
	ID              flexString `json:"id"`
	UserID          flexString `json:"userId"`
	Username        string     `json:"username"`
	PoiID           flexString `json:"poiId"`
	InteractionType string     `json:"interactionType"`
	Content         string     `json:"content"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ListInteractions returns every reaction and comment on the point.
func (c *PointClient) ListInteractions(ctx context.Context, pointID string) ([]models.Interaction, error) {
	var resp []wireInteraction
	if err := c.api.do(ctx, "GET", "/pois/interactions/"+url.PathEscape(pointID)+"/", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Interaction, 0, len(resp))
	for _, w := range resp {
		pid := string(w.PoiID)
		if pid == "" {
			pid = pointID
		}
		out = append(out, models.Interaction{
			ID:              string(w.ID),
			UserID:          string(w.UserID),
			Username:        w.Username,
			PointID:         pid,
			InteractionType: models.InteractionType(w.InteractionType),
			Content:         w.Content,
			CreatedAt:       w.CreatedAt,
			UpdatedAt:       w.UpdatedAt,
		})
	}
	return out, nil
}

// CreateInteraction posts a reaction (toggled by the server) or a comment.
func (c *PointClient) CreateInteraction(ctx context.Context, in models.InteractionInput) error {
	body, err := jsonPayload(in)
	if err != nil {
		return err
	}
	return c.api.do(ctx, "POST", "/pois/interactions/create/", nil, body, nil)
}
