// Package mapsync keeps the markers drawn on an interactive listing map in
// step with the listings the host application wants shown.
//
// The [Engine] is fed full snapshots through [Engine.Sync] and talks to the
// map library only through the narrow [Surface] interface. It is built from
// four cooperating parts:
//
//   - the reconciler owns every marker handle. It diffs each snapshot against
//     its registry by id, destroys markers whose id disappeared, creates
//     markers for new ids, and never recreates a marker whose id survived.
//   - the hover controller turns pointer enter/leave events into a single
//     hovered id. Leaving a marker only closes its tooltip after a quiet
//     period, so sweeping the pointer across neighbouring markers does not
//     flicker. At most one tooltip is ever open.
//   - the viewport tracker recomputes the off-screen indicators on every
//     bounds-changed event from the surface.
//   - the bounds fitter frames all markers after the listing set changes,
//     then pulls the zoom back to a ceiling once the surface has settled.
//
// # Threading
//
// The engine is not safe for concurrent use. Every method, and every surface
// callback, must run on the goroutine that owns the engine. The hover timer
// fires on a clock goroutine, so its expiry is handed back through
// [Options.Dispatch]; hosts that run the engine on an event loop pass the
// loop's post function there.
package mapsync
