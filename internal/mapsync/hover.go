package mapsync

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/observability"
)

// hoverController turns pointer events into one hovered id.
//
//	Idle --enter(id)--> Hovering(id) --leave(id)--> PendingClose(id)
//	PendingClose(id) --enter(any)--> Hovering(any)
//	PendingClose(id) --timer--> Idle
//
// It owns the reference to the open tooltip and closes it before any other
// tooltip is opened.
type hoverController struct {
	surface Surface
	timer   *debounceTimer
	delay   time.Duration

	hovered string
	open    string

	handleOf func(id string) (MarkerHandle, bool)
	onChange func(prev, next string)

	logger  *slog.Logger
	metrics *observability.Metrics
}

func newHoverController(s Surface, timer *debounceTimer, delay time.Duration, logger *slog.Logger, metrics *observability.Metrics) *hoverController {
	return &hoverController{
		surface:  s,
		timer:    timer,
		delay:    delay,
		handleOf: func(string) (MarkerHandle, bool) { return nil, false },
		onChange: func(string, string) {},
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *hoverController) pointerEnter(id string) {
	h.timer.Cancel()
	if h.open != "" && h.open != id {
		h.closeTooltip()
	}
	if h.open != id {
		h.openTooltip(id)
	}
	h.setHovered(id)
}

func (h *hoverController) pointerLeave(id string) {
	if h.hovered != id {
		return
	}
	h.timer.Schedule(h.delay, func() { h.expire(id) })
}

func (h *hoverController) expire(id string) {
	if h.hovered != id {
		return
	}
	if h.open == id {
		h.closeTooltip()
	}
	h.setHovered("")
}

// forget drops every reference to a marker that is about to be destroyed.
// Its tooltip goes away with the marker, so no close call is issued.
func (h *hoverController) forget(id string) {
	if h.open == id {
		h.open = ""
	}
	if h.hovered == id {
		h.timer.Cancel()
		h.hovered = ""
	}
}

func (h *hoverController) setHovered(id string) {
	if h.hovered == id {
		return
	}
	prev := h.hovered
	h.hovered = id
	h.onChange(prev, id)
}

// openTooltip failures are logged and otherwise ignored: a broken tooltip must
// not stop hover styling or marker activation.
func (h *hoverController) openTooltip(id string) {
	handle, ok := h.handleOf(id)
	if !ok {
		return
	}
	if err := h.surface.OpenTooltip(handle); err != nil {
		h.logger.Warn("open tooltip failed", "entity_id", id, "error", err)
		h.metrics.SurfaceErrors.WithLabelValues("tooltip").Inc()
		return
	}
	h.open = id
	h.metrics.TooltipOpens.Inc()
}

func (h *hoverController) closeTooltip() {
	id := h.open
	h.open = ""
	handle, ok := h.handleOf(id)
	if !ok {
		return
	}
	if err := h.surface.CloseTooltip(handle); err != nil {
		h.logger.Warn("close tooltip failed", "entity_id", id, "error", err)
		h.metrics.SurfaceErrors.WithLabelValues("tooltip").Inc()
	}
}
