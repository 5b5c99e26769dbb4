package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mapquester/models"
	"mapquester/utils/errors"
	"mapquester/utils/logger"

	"github.com/godbus/dbus/v5"
)

const (
	geoClueService    = "org.freedesktop.GeoClue2"
	geoClueManager    = dbus.ObjectPath("/org/freedesktop/GeoClue2/Manager")
	geoClueManagerIf  = "org.freedesktop.GeoClue2.Manager"
	geoClueClientIf   = "org.freedesktop.GeoClue2.Client"
	geoClueLocationIf = "org.freedesktop.GeoClue2.Location"
	dbusPropsIf       = "org.freedesktop.DBus.Properties"

	geoClueAccuracyExact = uint32(8)
	geoClueDistance      = uint32(25) // meters between updates
	geoClueInterval      = uint32(5)  // seconds between updates
)

// GeoClueSource reads the device position from GeoClue2 over the system bus.
type GeoClueSource struct {
	desktopID string
	client    *geoClueClient
}

func NewGeoClueSource(desktopID string) *GeoClueSource {
	if !strings.HasSuffix(desktopID, ".desktop") {
		desktopID += ".desktop"
	}
	return &GeoClueSource{desktopID: desktopID}
}

// RequestPermission registers a GeoClue client. GeoClue refuses clients whose
// desktop id has no matching .desktop entry, which surfaces as a denial.
func (g *GeoClueSource) RequestPermission(ctx context.Context) error {
	if err := ensureDesktopEntry(g.desktopID); err != nil {
		logger.Error("location: failed to ensure desktop entry: %v", err)
	}
	cl, err := newGeoClueClient(g.desktopID)
	if err != nil {
		return errors.PermissionDenied(err)
	}
	if err := cl.start(); err != nil {
		cl.close()
		return errors.PermissionDenied(err)
	}
	g.client = cl
	return nil
}

// Watch streams fixes until ctx is done.
func (g *GeoClueSource) Watch(ctx context.Context) (<-chan models.Fix, error) {
	if g.client == nil {
		return nil, errors.PermissionDenied(fmt.Errorf("geoclue client not started"))
	}
	cl := g.client
	g.client = nil

	sigCh := make(chan *dbus.Signal, 10)
	rule := fmt.Sprintf("type='signal',interface='%s',path='%s'", dbusPropsIf, cl.path)
	if call := cl.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule); call.Err != nil {
		cl.close()
		return nil, errors.Transport(call.Err, 0)
	}
	cl.bus.Signal(sigCh)

	fixes := make(chan models.Fix, 1)
	go func() {
		defer close(fixes)
		defer cl.close()

		emit := func(path dbus.ObjectPath) {
			fix, ok := cl.readLocation(path)
			if !ok {
				return
			}
			select {
			case fixes <- fix:
			case <-ctx.Done():
			}
		}
		if path, err := cl.locationPath(); err == nil && path != "" && path != "/" {
			emit(path)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok || sig == nil {
					logger.Error("location: dbus signal channel closed")
					return
				}
				if path, ok := changedLocation(sig, cl.path); ok {
					emit(path)
				}
			}
		}
	}()
	return fixes, nil
}

func changedLocation(sig *dbus.Signal, client dbus.ObjectPath) (dbus.ObjectPath, bool) {
	if sig.Name != dbusPropsIf+".PropertiesChanged" || sig.Path != client || len(sig.Body) < 2 {
		return "", false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return "", false
	}
	v, ok := changed["Location"]
	if !ok {
		return "", false
	}
	path, ok := v.Value().(dbus.ObjectPath)
	return path, ok && path != "" && path != "/"
}

type geoClueClient struct {
	path dbus.ObjectPath
	bus  *dbus.Conn
}

func newGeoClueClient(desktopID string) (*geoClueClient, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	var clientPath dbus.ObjectPath
	call := bus.Object(geoClueService, geoClueManager).Call(geoClueManagerIf+".CreateClient", 0)
	if call.Err != nil {
		return nil, call.Err
	}
	if err := call.Store(&clientPath); err != nil {
		return nil, err
	}

	obj := bus.Object(geoClueService, clientPath)
	set := func(name string, val interface{}) error {
		return obj.Call(dbusPropsIf+".Set", 0, geoClueClientIf, name, dbus.MakeVariant(val)).Err
	}
	if err := set("DesktopId", strings.TrimSuffix(desktopID, ".desktop")); err != nil {
		return nil, fmt.Errorf("set DesktopId: %w", err)
	}
	if err := set("RequestedAccuracyLevel", geoClueAccuracyExact); err != nil {
		return nil, fmt.Errorf("set accuracy: %w", err)
	}
	_ = set("DistanceThreshold", geoClueDistance)
	_ = set("TimeThreshold", geoClueInterval)

	return &geoClueClient{path: clientPath, bus: bus}, nil
}

func (c *geoClueClient) start() error {
	return c.bus.Object(geoClueService, c.path).Call(geoClueClientIf+".Start", 0).Err
}

func (c *geoClueClient) close() {
	_ = c.bus.Object(geoClueService, c.path).Call(geoClueClientIf+".Stop", 0)
	c.bus.Close()
}

func (c *geoClueClient) locationPath() (dbus.ObjectPath, error) {
	var variant dbus.Variant
	call := c.bus.Object(geoClueService, c.path).Call(dbusPropsIf+".Get", 0, geoClueClientIf, "Location")
	if call.Err != nil {
		return "", call.Err
	}
	if err := call.Store(&variant); err != nil {
		return "", err
	}
	path, _ := variant.Value().(dbus.ObjectPath)
	return path, nil
}

func (c *geoClueClient) readLocation(path dbus.ObjectPath) (models.Fix, bool) {
	var props map[string]dbus.Variant
	call := c.bus.Object(geoClueService, path).Call(dbusPropsIf+".GetAll", 0, geoClueLocationIf)
	if call.Err != nil {
		return models.Fix{}, false
	}
	if err := call.Store(&props); err != nil {
		return models.Fix{}, false
	}
	f64 := func(key string) float64 {
		if v, ok := props[key]; ok {
			if f, ok := v.Value().(float64); ok {
				return f
			}
		}
		return 0
	}
	fix := models.Fix{
		Latitude:  f64("Latitude"),
		Longitude: f64("Longitude"),
		Accuracy:  f64("Accuracy"),
		Timestamp: time.Now().UTC(),
	}
	// 0,0 is what GeoClue reports before it has a position
	if fix.Latitude == 0 && fix.Longitude == 0 {
		return models.Fix{}, false
	}
	return fix, true
}

// ensureDesktopEntry writes the .desktop file GeoClue authorises clients against.
func ensureDesktopEntry(desktopID string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(home, ".local", "share", "applications")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(dir, desktopID)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	content := `[Desktop Entry]
Type=Application
Name=MapQuester
Comment=Points of interest on a map (GeoClue client)
Exec=mapquester
Terminal=true
Categories=Utility;
X-Geoclue-2-Client=true
X-Geoclue-2-Access-Fine=true
`
	return os.WriteFile(dest, []byte(content), 0o644)
}
