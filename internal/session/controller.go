package session

import (
	"context"
	"fmt"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/mapsync"
)

// Camera is the part of the surface a user moves directly.
type Camera interface {
	PanTo(at domain.Coordinate) error
	SetZoom(zoom float64) error
}

// Controller exposes the engine to other goroutines. Every call runs on the
// loop and waits for it.
type Controller struct {
	loop   *Loop
	engine *mapsync.Engine
	camera Camera
}

// NewController binds engine and camera to loop.
func NewController(loop *Loop, engine *mapsync.Engine, camera Camera) *Controller {
	return &Controller{loop: loop, engine: engine, camera: camera}
}

// Apply syncs the engine to a listing snapshot.
func (c *Controller) Apply(ctx context.Context, s domain.Snapshot) error {
	in := mapsync.SyncInput{
		Entities:      s.Entities(),
		HighlightedID: s.HighlightedID,
		InitialCenter: s.InitialCenter,
		InitialZoom:   s.InitialZoom,
	}
	return c.loop.Do(ctx, func() { c.engine.Sync(in) })
}

// State returns the engine snapshot.
func (c *Controller) State(ctx context.Context) (mapsync.State, error) {
	var st mapsync.State
	err := c.loop.Do(ctx, func() { st = c.engine.Snapshot() })
	return st, err
}

func (c *Controller) PointerEnter(ctx context.Context, id string) error {
	return c.call(ctx, func() error { return c.engine.PointerEnter(id) })
}

func (c *Controller) PointerLeave(ctx context.Context, id string) error {
	return c.call(ctx, func() error { return c.engine.PointerLeave(id) })
}

func (c *Controller) Activate(ctx context.Context, id string) error {
	return c.call(ctx, func() error { return c.engine.Activate(id) })
}

func (c *Controller) ClickIndicator(ctx context.Context, d domain.Direction) error {
	return c.call(ctx, func() error { return c.engine.ClickIndicator(d) })
}

// SetViewport moves the camera the way a user dragging or zooming the map
// would. Either argument may be nil.
func (c *Controller) SetViewport(ctx context.Context, center *domain.Coordinate, zoom *float64) error {
	return c.call(ctx, func() error {
		if center != nil {
			if err := c.camera.PanTo(*center); err != nil {
				return fmt.Errorf("pan: %w", err)
			}
		}
		if zoom != nil {
			if err := c.camera.SetZoom(*zoom); err != nil {
				return fmt.Errorf("zoom: %w", err)
			}
		}
		return nil
	})
}

// CheckReadiness requires a running loop and an attached surface.
func (c *Controller) CheckReadiness(ctx context.Context) error {
	if err := c.loop.CheckReadiness(ctx); err != nil {
		return err
	}
	return c.engine.CheckReadiness(ctx)
}

func (c *Controller) call(ctx context.Context, fn func() error) error {
	var err error
	if doErr := c.loop.Do(ctx, func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}
