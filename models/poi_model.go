package models

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// Tag is the closed set of point categories.
type Tag string

const (
	TagFood   Tag = "food"
	TagEvent  Tag = "event"
	TagSchool Tag = "school"
	TagPhoto  Tag = "photo"
	TagMusic  Tag = "music"
)

// AllTags lists every tag in canonical order.
var AllTags = []Tag{TagFood, TagEvent, TagSchool, TagPhoto, TagMusic}

// ParseTag returns the Tag named by s, if it is one of AllTags.
func ParseTag(s string) (Tag, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range AllTags {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	for _, known := range AllTags {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the capitalised tag name shown to users.
func (t Tag) Label() string {
	if t == "" {
		return ""
	}
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Attachment is a file carried with a point on creation.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// AllowedAttachmentTypes are the only content types accepted for attachments.
var AllowedAttachmentTypes = []string{"application/pdf", "image/jpeg", "image/png"}

// NewAttachment validates the content type and escapes the filename.
func NewAttachment(filename, contentType string, data []byte) (Attachment, error) {
	allowed := false
	for _, t := range AllowedAttachmentTypes {
		if strings.EqualFold(t, contentType) {
			allowed = true
			break
		}
	}
	if !allowed {
		return Attachment{}, fmt.Errorf("unsupported attachment type %q", contentType)
	}
	return Attachment{
		Filename:    EscapeFilename(filename),
		ContentType: strings.ToLower(contentType),
		Data:        data,
	}, nil
}

// EscapeFilename URL-escapes the base name while keeping the extension intact.
func EscapeFilename(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return url.PathEscape(base) + ext
}

// Point is a persisted point of interest. ID is assigned by the server.
type Point struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tag         Tag        `json:"tag"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	IsPublic    bool       `json:"isPublic"`
	Reactions   int        `json:"reactions,omitempty"`
	Content     []string   `json:"content,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Position returns the point's coordinate.
func (p Point) Position() Coordinate {
	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Draft is an unsaved point held only by the client.
type Draft struct {
	Title       string
	Description string
	Tag         Tag
	Position    *Coordinate
	IsPublic    bool
	Content     []Attachment
}

// NewDraft starts a public draft anchored at c.
func NewDraft(c Coordinate) Draft {
	return Draft{Position: &c, IsPublic: true}
}

// PointPatch carries the editable fields of an existing point.
type PointPatch struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Tag         Tag     `json:"tag"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// PatchFrom seeds an edit form from the point's current values.
func PatchFrom(p Point) PointPatch {
	return PointPatch{
		Title:       p.Title,
		Description: p.Description,
		Tag:         p.Tag,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
	}
}

// Apply returns p with the patch fields written over it.
func (pp PointPatch) Apply(p Point) Point {
	p.Title = pp.Title
	p.Description = pp.Description
	p.Tag = pp.Tag
	p.Latitude = pp.Latitude
	p.Longitude = pp.Longitude
	return p
}

// Field names an editable attribute of a draft or point.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldTag         Field = "tag"
	FieldLatitude    Field = "latitude"
	FieldLongitude   Field = "longitude"
	FieldIsPublic    Field = "isPublic"
	FieldContent     Field = "content"
)
