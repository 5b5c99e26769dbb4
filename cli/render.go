package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"mapquester/experience"
	"mapquester/models"
)

func tagList(tags []models.Tag) string {
	if len(tags) == 0 {
		return "(all)"
	}
	labels := make([]string, len(tags))
	for i, t := range tags {
		labels[i] = t.Label()
	}
	return strings.Join(labels, ", ")
}

// Render prints a text rendition of p.
func Render(w io.Writer, p experience.Presentation) {
	v := p.View
	fmt.Fprintf(w, "Mode: %s | Center: %.5f, %.5f | Zoom: %.1f", p.Mode, v.Latitude, v.Longitude, v.Zoom)
	if p.ReadOnly {
		fmt.Fprint(w, " | read-only")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Filters: %s", tagList(p.ActiveTags))
	if p.FilterMenuOpen {
		fmt.Fprintf(w, " (staged: %s)", tagList(p.StagedTags))
	}
	fmt.Fprintln(w)

	switch {
	case p.UserLocation != nil:
		fmt.Fprintf(w, "You: %.5f, %.5f (±%.0fm)\n", p.UserLocation.Latitude, p.UserLocation.Longitude, p.UserLocation.Accuracy)
	default:
		fmt.Fprintf(w, "Location: %s\n", p.Permission)
	}
	if p.Pending != nil {
		fmt.Fprintf(w, "Pending: %.5f, %.5f  [add]\n", p.Pending.Latitude, p.Pending.Longitude)
	}

	renderPoints(w, p)
	renderPanel(w, p.Panel)
	if p.Interactions != nil {
		renderInteractions(w, *p.Interactions)
	}
	if p.Dialog != nil {
		fmt.Fprintf(w, "\n%s\n%s\n[%s: yes] [%s: no]\n", p.Dialog.Title, p.Dialog.Message, p.Dialog.ConfirmLabel, p.Dialog.CancelLabel)
	}
	for _, n := range p.Notices {
		fmt.Fprintf(w, "[%s #%d] %s\n", n.Level, n.ID, n.Message)
	}
}

func renderPoints(w io.Writer, p experience.Presentation) {
	fmt.Fprintln(w)
	if p.Mode == models.ListView {
		if len(p.Rows) == 0 && !p.Loading {
			fmt.Fprintln(w, "No points found.")
		}
		for _, row := range p.Rows {
			distance := "-"
			if row.HasDistance {
				distance = formatDistance(row.DistanceMeters)
			}
			fmt.Fprintf(w, "%s%-4s %-30s %-8s %8s\n", marker(p, row.Point.ID), row.Point.ID, row.Point.Title, row.Point.Tag.Label(), distance)
		}
	} else {
		fmt.Fprintf(w, "%d point(s) on the map\n", len(p.Points))
		for _, pt := range p.Points {
			fmt.Fprintf(w, "%s%-4s %-30s %.5f, %.5f\n", marker(p, pt.ID), pt.ID, pt.Title, pt.Latitude, pt.Longitude)
		}
	}

	switch {
	case p.Loading:
		fmt.Fprintln(w, "Loading...")
	case p.FetchFailed:
		fmt.Fprintln(w, "Failed to load points. Use 'retry'.")
	case p.Mode == models.ListView && p.Cursor.HasMore:
		fmt.Fprintln(w, "More points available. Use 'more'.")
	}
}

func marker(p experience.Presentation, id string) string {
	if pt, ok := experience.SelectedPoint(p.Selection); ok && pt.ID == id {
		return "> "
	}
	if p.Highlighted == id {
		return "* "
	}
	return "  "
}

func formatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.1f km", m/1000)
}

func renderPanel(w io.Writer, panel experience.Panel) {
	if panel.Kind == experience.PanelNone {
		return
	}
	fmt.Fprintf(w, "\n== %s ==\n", panel.Title)
	for _, f := range panel.Fields {
		fmt.Fprintf(w, "  %-12s %s\n", f.Label+":", f.Value)
		if f.Error != "" {
			fmt.Fprintf(w, "  %-12s ! %s\n", "", f.Error)
		}
	}
	if panel.Submitting {
		fmt.Fprintln(w, "  Saving...")
	} else if len(panel.Actions) > 0 {
		fmt.Fprintf(w, "  Actions: %s\n", strings.Join(panel.Actions, ", "))
	}
}

func renderInteractions(w io.Writer, v experience.InteractionsView) {
	if v.Loading {
		fmt.Fprintln(w, "  Loading comments...")
		return
	}
	heart := "♡"
	if v.HasReacted {
		heart = "♥"
	}
	fmt.Fprintf(w, "  %s %d\n", heart, v.ReactionCount)
	now := time.Now()
	for _, c := range v.Comments {
		fmt.Fprintf(w, "  %s (%s): %s\n", c.Username, experience.CommentTime(c, now), c.Content)
	}
	if v.Err != nil {
		fmt.Fprintf(w, "  ! %v\n", v.Err)
	}
}
