package cli

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"mapquester/experience"
	"mapquester/models"
	"mapquester/utils/errors"
)

// queueLoop runs everything inline: Do runs fn and then drains the work and
// completions it queued. Timers never fire.
type queueLoop struct {
	queue []func()
}

type noopTask struct{}

func (noopTask) Cancel() {}

func (q *queueLoop) Go(work func(context.Context) func()) {
	q.queue = append(q.queue, func() {
		if done := work(context.Background()); done != nil {
			done()
		}
	})
}

func (q *queueLoop) Post(fn func()) { q.queue = append(q.queue, fn) }

func (q *queueLoop) AfterFunc(time.Duration, func()) experience.Task { return noopTask{} }

func (q *queueLoop) Do(_ context.Context, fn func()) error {
	fn()
	for len(q.queue) > 0 {
		next := q.queue[0]
		q.queue = q.queue[1:]
		next()
	}
	return nil
}

type mockPoints struct {
	points  []models.Point
	created []models.Draft
	deleted []string
}

func (m *mockPoints) FetchPoints(_ context.Context, _ string, q models.PointQuery) (models.PointPage, error) {
	var out []models.Point
	for _, p := range m.points {
		if len(q.Tags) == 0 || p.Tag == q.Tags[0] {
			out = append(out, p)
		}
	}
	return models.PointPage{Points: out, TotalPages: 1, HasPagination: q.Mode == models.ListView}, nil
}

func (m *mockPoints) CreatePoint(_ context.Context, userID string, d models.Draft) (models.Point, error) {
	m.created = append(m.created, d)
	p := models.Point{
		ID:        strconv.Itoa(100 + len(m.created)),
		UserID:    userID,
		Title:     d.Title,
		Tag:       d.Tag,
		Latitude:  d.Position.Latitude,
		Longitude: d.Position.Longitude,
		IsPublic:  d.IsPublic,
	}
	m.points = append(m.points, p)
	return p, nil
}

func (m *mockPoints) UpdatePoint(_ context.Context, current models.Point, patch models.PointPatch) (models.Point, error) {
	return patch.Apply(current), nil
}

func (m *mockPoints) DeletePoint(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockPoints) ListInteractions(context.Context, string) ([]models.Interaction, error) {
	return nil, nil
}

func (m *mockPoints) CreateInteraction(context.Context, models.InteractionInput) error {
	return nil
}

type mockAccounts struct {
	user     string
	password string
	loggedIn bool
	err      error
}

func (a *mockAccounts) Login(_ context.Context, username, password string) error {
	if a.err != nil {
		return a.err
	}
	a.user, a.password, a.loggedIn = username, password, true
	return nil
}

func (a *mockAccounts) Signup(context.Context, string, string, string) error { return a.err }

func (a *mockAccounts) Logout(context.Context) { a.loggedIn = false }

type userSession string

func (s userSession) UserID() string { return string(s) }

func newTestCLI(t *testing.T, points *mockPoints, query string) (*CLI, *bytes.Buffer) {
	t.Helper()
	loop := &queueLoop{}
	bar := NewAddressBar(query)
	m := experience.New(experience.Deps{
		Points:       points,
		Interactions: points,
		Session:      userSession("7"),
		AddressBar:   bar,
		Dispatcher:   loop,
	}, experience.Options{InitialMode: models.MapView})
	if err := loop.Do(context.Background(), func() { m.Mount(context.Background()) }); err != nil {
		t.Fatalf("mount: %v", err)
	}

	out := &bytes.Buffer{}
	c := NewCLI(m, loop, &mockAccounts{}, bar, nil)
	c.Out = out
	return c, out
}

func run(t *testing.T, c *CLI, line string) error {
	t.Helper()
	return c.ExecuteCommand(context.Background(), c.ParseArgs(line))
}

func TestParseArgs(t *testing.T) {
	c := &CLI{}
	tests := []struct {
		input string
		want  []string
	}{
		{`tap 1 2`, []string{"tap", "1", "2"}},
		{`set title "Night market"`, []string{"set", "title", "Night market"}},
		{`set description ""`, []string{"set", "description", ""}},
		{"  comment   hello\tworld ", []string{"comment", "hello", "world"}},
	}
	for _, tt := range tests {
		got := c.ParseArgs(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("ParseArgs(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExecuteCommand_CreatePoint(t *testing.T) {
	points := &mockPoints{}
	c, out := newTestCLI(t, points, "")

	for _, line := range []string{
		"tap -37.81 144.96",
		"add",
		`set title "Night market"`,
		`set description "Dumplings after dark"`,
		"set tag food",
		"submit",
	} {
		if err := run(t, c, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}

	if len(points.created) != 1 {
		t.Fatalf("expected 1 created point, got %d", len(points.created))
	}
	d := points.created[0]
	if d.Title != "Night market" || d.Tag != models.TagFood {
		t.Errorf("unexpected draft: %+v", d)
	}
	if d.Position == nil || d.Position.Latitude != -37.81 {
		t.Errorf("expected draft anchored at the tap, got %+v", d.Position)
	}
	if !strings.Contains(out.String(), "Pending location set") {
		t.Errorf("expected pending hint, got %q", out.String())
	}
}

func TestExecuteCommand_SetWithoutForm(t *testing.T) {
	c, _ := newTestCLI(t, &mockPoints{}, "")

	if err := run(t, c, "set title x"); err == nil {
		t.Error("expected error with no open form")
	}
	if err := run(t, c, "set colour red"); err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Errorf("expected unknown field error, got %v", err)
	}
}

func TestExecuteCommand_SelectUpdatesAddressBar(t *testing.T) {
	points := &mockPoints{points: []models.Point{
		{ID: "3", UserID: "7", Title: "Library", Tag: models.TagSchool, Latitude: 1, Longitude: 2},
	}}
	c, out := newTestCLI(t, points, "")

	if err := run(t, c, "select 3"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(c.Address.Query(), "poi_id=3") {
		t.Errorf("expected poi_id=3 in address bar, got %q", c.Address.Query())
	}
	if !strings.Contains(out.String(), "Library") {
		t.Errorf("expected panel output to mention the point, got %q", out.String())
	}

	if err := run(t, c, "select 99"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestExecuteCommand_DeleteNeedsConfirmation(t *testing.T) {
	points := &mockPoints{points: []models.Point{
		{ID: "3", UserID: "7", Title: "Library", Tag: models.TagSchool, Latitude: 1, Longitude: 2},
	}}
	c, _ := newTestCLI(t, points, "")

	if err := run(t, c, "select 3"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := run(t, c, "delete"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(points.deleted) != 0 {
		t.Fatal("expected delete to wait for confirmation")
	}
	if err := run(t, c, "yes"); err != nil {
		t.Fatalf("yes: %v", err)
	}
	if len(points.deleted) != 1 || points.deleted[0] != "3" {
		t.Errorf("expected point 3 deleted, got %v", points.deleted)
	}
	if err := run(t, c, "yes"); err == nil {
		t.Error("expected error with no dialog open")
	}
}

func TestExecuteCommand_Filters(t *testing.T) {
	c, _ := newTestCLI(t, &mockPoints{}, "")

	if err := run(t, c, "filter pizza"); err == nil {
		t.Error("expected unknown tag error")
	}
	if err := run(t, c, "filter music"); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if !strings.Contains(c.Address.Query(), "music") {
		t.Errorf("expected tag in address bar, got %q", c.Address.Query())
	}
}

func TestExecuteCommand_ModeAndExit(t *testing.T) {
	c, _ := newTestCLI(t, &mockPoints{}, "")

	if err := run(t, c, "mode list"); err != nil {
		t.Fatalf("mode: %v", err)
	}
	if c.Map.Mode() != models.ListView {
		t.Errorf("expected list mode, got %s", c.Map.Mode())
	}
	if err := run(t, c, "mode sideways"); err == nil {
		t.Error("expected usage error")
	}
	if err := run(t, c, "exit"); !errors.Is(err, ErrExit) {
		t.Errorf("expected ErrExit, got %v", err)
	}
	if err := run(t, c, "frobnicate"); err == nil {
		t.Error("expected unknown command error")
	}
}

func TestExecuteCommand_Login(t *testing.T) {
	c, out := newTestCLI(t, &mockPoints{}, "")
	accounts := c.Accounts.(*mockAccounts)

	if err := run(t, c, "login alice secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !accounts.loggedIn || accounts.user != "alice" || accounts.password != "secret" {
		t.Errorf("unexpected login: %+v", accounts)
	}
	if !strings.Contains(out.String(), "Logged in as alice") {
		t.Errorf("expected confirmation, got %q", out.String())
	}

	// No readline to prompt with.
	if err := run(t, c, "login alice"); err == nil {
		t.Error("expected missing password error")
	}
}

func TestExecuteCommand_LogoutDropsPrivatePoints(t *testing.T) {
	points := &mockPoints{points: []models.Point{
		{ID: "3", UserID: "7", Title: "Diary", Tag: models.TagPhoto, Latitude: 1, Longitude: 2},
	}}
	c, out := newTestCLI(t, points, "")
	if err := run(t, c, "select 3"); err != nil {
		t.Fatalf("select: %v", err)
	}

	// What stays visible without an account.
	points.points = []models.Point{
		{ID: "4", UserID: "8", Title: "Park", Tag: models.TagEvent, Latitude: 3, Longitude: 4, IsPublic: true},
	}
	if err := run(t, c, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.Accounts.(*mockAccounts).loggedIn {
		t.Error("expected the account logged out")
	}
	p := c.Map.Presentation()
	if p.Selection.Kind() != experience.KindIdle {
		t.Errorf("expected no selection after logout, got %s", p.Selection.Kind())
	}
	if len(p.Points) != 1 || p.Points[0].ID != "4" {
		t.Errorf("expected only the public point, got %+v", p.Points)
	}
	if strings.Contains(c.Address.Query(), "poi_id") {
		t.Errorf("expected poi_id cleared, got %q", c.Address.Query())
	}
	if !strings.Contains(out.String(), "Logged out") {
		t.Errorf("expected confirmation, got %q", out.String())
	}
}
