package experience

import (
	"net/url"
	"strings"

	"mapquester/models"
	"mapquester/utils/logger"
)

const (
	paramTag     = "tag"
	paramPointID = "poi_id"
)

// URLSync maps the active tags and the selected point to the address bar.
type URLSync struct {
	bar AddressBar

	seededID string
}

func NewURLSync(bar AddressBar) *URLSync {
	return &URLSync{bar: bar}
}

// Seed reads tag and poi_id parameters. Unknown tags are skipped. The point
// id is remembered until Resolve is called.
func (u *URLSync) Seed() []models.Tag {
	if u.bar == nil {
		return nil
	}
	values, err := url.ParseQuery(strings.TrimPrefix(u.bar.Query(), "?"))
	if err != nil {
		logger.Debug("URLSync: ignoring malformed query %q: %v", u.bar.Query(), err)
	}
	var tags []models.Tag
	for _, raw := range values[paramTag] {
		if t, ok := models.ParseTag(raw); ok {
			tags = append(tags, t)
		}
	}
	u.seededID = strings.TrimSpace(values.Get(paramPointID))
	return tags
}

// PendingID is the seeded point id not yet resolved against loaded points.
func (u *URLSync) PendingID() string { return u.seededID }

// Resolve looks up the seeded id in points and forgets it either way.
func (u *URLSync) Resolve(points []models.Point) (models.Point, bool) {
	id := u.seededID
	if id == "" {
		return models.Point{}, false
	}
	u.seededID = ""
	for _, p := range points {
		if p.ID == id {
			return p, true
		}
	}
	logger.Debug("URLSync: point %s from the address bar is not loaded", id)
	return models.Point{}, false
}

// Sync writes the query for tags and pointID if it differs from the current
// one.
func (u *URLSync) Sync(tags []models.Tag, pointID string) bool {
	if u.bar == nil {
		return false
	}
	q := EncodeQuery(tags, pointID)
	if q == strings.TrimPrefix(u.bar.Query(), "?") {
		return false
	}
	u.bar.Replace(q)
	return true
}

// EncodeQuery renders tag parameters in the given order followed by poi_id.
// url.Values.Encode is not used because it sorts keys.
func EncodeQuery(tags []models.Tag, pointID string) string {
	var b strings.Builder
	for _, t := range tags {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(paramTag + "=" + url.QueryEscape(string(t)))
	}
	if pointID != "" {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(paramPointID + "=" + url.QueryEscape(pointID))
	}
	return b.String()
}
