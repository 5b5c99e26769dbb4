package cli

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mapquester/experience"
	"mapquester/models"
)

func (c *CLI) handleLogin(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: login <username> [password]")
	}
	password, err := c.passwordArg(args, 1)
	if err != nil {
		return err
	}
	if err := c.Accounts.Login(ctx, args[0], password); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Logged in as %s\n", args[0])
	return c.sessionChanged(ctx)
}

func (c *CLI) handleLogout(ctx context.Context) error {
	c.Accounts.Logout(ctx)
	fmt.Fprintln(c.Out, "Logged out")
	return c.sessionChanged(ctx)
}

// sessionChanged drops what the previous account could see.
func (c *CLI) sessionChanged(ctx context.Context) error {
	return c.onLoop(ctx, func() error {
		c.Map.SessionChanged()
		return nil
	})
}

func (c *CLI) handleSignup(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: signup <username> <email> [password]")
	}
	password, err := c.passwordArg(args, 2)
	if err != nil {
		return err
	}
	if err := c.Accounts.Signup(ctx, args[0], args[1], password); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Account created for %s. Use 'login %s' to sign in.\n", args[0], args[0])
	return nil
}

// passwordArg returns args[i] or prompts for it without echo.
func (c *CLI) passwordArg(args []string, i int) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	if c.RL == nil {
		return "", fmt.Errorf("password required")
	}
	pw, err := c.RL.ReadPassword("Password: ")
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (c *CLI) handleTap(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tap <latitude> <longitude>")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q", args[0])
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q", args[1])
	}
	if err := c.onLoop(ctx, func() error {
		return c.Map.MapTapped(models.Coordinate{Latitude: lat, Longitude: lon})
	}); err != nil {
		return err
	}
	fmt.Fprintln(c.Out, "Pending location set. Use 'add' to add a point here.")
	return nil
}

func (c *CLI) handleSelect(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: select <point id>")
	}
	if err := c.onLoop(ctx, func() error { return c.Map.SelectPoint(args[0]) }); err != nil {
		return err
	}
	return c.handleShow(ctx)
}

var fieldNames = map[string]models.Field{
	"title":       models.FieldTitle,
	"description": models.FieldDescription,
	"desc":        models.FieldDescription,
	"tag":         models.FieldTag,
	"lat":         models.FieldLatitude,
	"latitude":    models.FieldLatitude,
	"lon":         models.FieldLongitude,
	"lng":         models.FieldLongitude,
	"longitude":   models.FieldLongitude,
	"public":      models.FieldIsPublic,
	"ispublic":    models.FieldIsPublic,
}

// handleSet edits a field of the draft or of the point being edited,
// whichever is open.
func (c *CLI) handleSet(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: set <field> [value]")
	}
	field, ok := fieldNames[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unknown field %q", args[0])
	}
	value := strings.Join(args[1:], " ")

	return c.onLoop(ctx, func() error {
		switch c.Map.Presentation().Selection.Kind() {
		case experience.KindDrafting:
			return c.Map.EditDraft(field, value)
		case experience.KindEditing:
			return c.Map.EditPoint(field, value)
		default:
			return fmt.Errorf("no form is open")
		}
	})
}

func (c *CLI) handleAttach(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: attach <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(args[0]))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	att, err := models.NewAttachment(filepath.Base(args[0]), contentType, data)
	if err != nil {
		return err
	}
	return c.onLoop(ctx, func() error { return c.Map.EditDraft(models.FieldContent, att) })
}

func (c *CLI) handleSubmit(ctx context.Context) error {
	return c.onLoop(ctx, func() error {
		switch c.Map.Presentation().Selection.Kind() {
		case experience.KindDrafting:
			return c.Map.SubmitDraft()
		case experience.KindEditing:
			return c.Map.SubmitEdit()
		default:
			return fmt.Errorf("nothing to submit")
		}
	})
}

// handleCancel dismisses an open dialog first, then an edit in progress.
func (c *CLI) handleCancel(ctx context.Context) error {
	return c.onLoop(ctx, func() error {
		if c.Map.CancelDialog() {
			return nil
		}
		if c.Map.Presentation().Selection.Kind() == experience.KindEditing {
			return c.Map.CancelEdit()
		}
		c.Map.Close()
		return nil
	})
}

func (c *CLI) handleConfirm(ctx context.Context, yes bool) error {
	return c.onLoop(ctx, func() error {
		var ok bool
		if yes {
			ok = c.Map.Confirm()
		} else {
			ok = c.Map.CancelDialog()
		}
		if !ok {
			return fmt.Errorf("no dialog is open")
		}
		return nil
	})
}

func parseTag(s string) (models.Tag, error) {
	t, ok := models.ParseTag(s)
	if !ok {
		names := make([]string, len(models.AllTags))
		for i, known := range models.AllTags {
			names[i] = string(known)
		}
		return "", fmt.Errorf("unknown tag %q (one of %s)", s, strings.Join(names, ", "))
	}
	return t, nil
}

func (c *CLI) handleFilter(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: filter <tag>")
	}
	t, err := parseTag(args[0])
	if err != nil {
		return err
	}
	return c.onLoop(ctx, func() error { return c.Map.ToggleTag(t) })
}

// handleFilters drives the staged filter menu.
func (c *CLI) handleFilters(ctx context.Context, args []string) error {
	if len(args) == 0 {
		p, err := c.snapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "Active: %s\n", tagList(p.ActiveTags))
		if p.FilterMenuOpen {
			fmt.Fprintf(c.Out, "Staged: %s\n", tagList(p.StagedTags))
		}
		return nil
	}

	switch args[0] {
	case "open":
		return c.onLoop(ctx, func() error { c.Map.OpenFilterMenu(); return nil })
	case "close":
		return c.onLoop(ctx, func() error { c.Map.CloseFilterMenu(); return nil })
	case "apply":
		return c.onLoop(ctx, func() error { c.Map.ApplyFilters(); return nil })
	case "reset":
		return c.onLoop(ctx, func() error { c.Map.ResetFilters(); return nil })
	case "stage":
		if len(args) != 2 {
			return fmt.Errorf("usage: filters stage <tag>")
		}
		t, err := parseTag(args[1])
		if err != nil {
			return err
		}
		return c.onLoop(ctx, func() error { return c.Map.StageTag(t) })
	default:
		return fmt.Errorf("unknown filters action %q", args[0])
	}
}

func (c *CLI) handleMode(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.onLoop(ctx, func() error { c.Map.ToggleMode(); return nil })
	}
	m, ok := models.ParseViewMode(args[0])
	if !ok {
		return fmt.Errorf("usage: mode [map|list]")
	}
	return c.onLoop(ctx, func() error { c.Map.SetMode(m); return nil })
}

func (c *CLI) handleMore(ctx context.Context) error {
	return c.onLoop(ctx, func() error {
		if !c.Map.LoadMore() {
			return fmt.Errorf("no more points to load")
		}
		return nil
	})
}

func (c *CLI) handleRetry(ctx context.Context) error {
	return c.onLoop(ctx, func() error {
		if !c.Map.Retry() {
			return fmt.Errorf("nothing to retry")
		}
		return nil
	})
}

func (c *CLI) handleMove(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: move <latitude> <longitude> [zoom]")
	}
	nums := make([]float64, len(args))
	for i, a := range args {
		n, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", a)
		}
		nums[i] = n
	}
	return c.onLoop(ctx, func() error {
		v := c.Map.Presentation().View
		v.Latitude, v.Longitude = nums[0], nums[1]
		if len(nums) == 3 {
			v.Zoom = nums[2]
		}
		c.Map.MoveViewport(v)
		return nil
	})
}

func (c *CLI) handleRecenter(ctx context.Context) error {
	return c.onLoop(ctx, func() error {
		if !c.Map.RecenterOnUser() {
			return fmt.Errorf("your location is not known yet")
		}
		return nil
	})
}

func (c *CLI) handleComment(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: comment <text>")
	}
	text := strings.Join(args, " ")
	return c.onLoop(ctx, func() error { return c.Map.Comment(text) })
}

func (c *CLI) handleDismiss(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dismiss <notice id>")
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil {
		return fmt.Errorf("invalid notice id %q", args[0])
	}
	return c.onLoop(ctx, func() error {
		if !c.Map.DismissNotice(id) {
			return fmt.Errorf("no notice #%d", id)
		}
		return nil
	})
}

func (c *CLI) handleShow(ctx context.Context) error {
	p, err := c.snapshot(ctx)
	if err != nil {
		return err
	}
	Render(c.Out, p)
	return nil
}
