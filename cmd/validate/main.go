// Command validate replays a listing snapshot fixture through the map engine
// on an in-memory surface and checks that the rendered state is what the
// snapshots ask for: every placeable listing has exactly one marker inside the
// supported region, retained listings keep their markers, the highlighted
// listing is styled as such, and fitted views frame every marker without
// exceeding the zoom ceiling.
//
// Usage:
//
//	go run ./cmd/validate -json data/mock/listing_snapshots.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/adapter/memsurface"
	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/mapsync"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	path := flag.String("json", "", "path to a listing snapshot JSON fixture (array of snapshots)")
	maxZoom := flag.Float64("max-zoom", mapsync.DefaultMaxZoom, "zoom ceiling applied after fitting")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*path, *maxZoom))
}

func run(path string, maxZoom float64) int {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	fmt.Println("=== Listing Map Replay Validation ===")
	fmt.Println()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read fixture: %v\n", err)
		return 1
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: fixture must be a JSON array: %v\n", err)
		return 1
	}

	decode := &phase{name: "Phase 1: Snapshot decoding"}
	placement := &phase{name: "Phase 2: Marker placement"}
	stability := &phase{name: "Phase 3: Marker identity across snapshots"}
	styling := &phase{name: "Phase 4: Highlight styling"}
	framing := &phase{name: "Phase 5: Bounds fitting and zoom ceiling"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	surface := memsurface.New(memsurface.DefaultOptions())
	engine := mapsync.New(mapsync.Options{Clock: clockwork.NewFakeClock(), MaxZoom: maxZoom}, logger, metrics)
	engine.Attach(surface)
	defer engine.Close()

	prev := map[string]bool{}
	for i, raw := range raws {
		s, err := domain.ParseSnapshot(domain.RawEvent{Value: raw})
		if err != nil {
			decode.errorf("snapshot %d: %v", i, err)
			continue
		}

		want := placeable(s)
		created := lastSeq(surface)
		engine.Sync(mapsync.SyncInput{
			Entities:      s.Entities(),
			HighlightedID: s.HighlightedID,
			InitialCenter: s.InitialCenter,
			InitialZoom:   s.InitialZoom,
		})
		for n := 0; n < 4 && surface.Settle(); n++ {
		}
		st := engine.Snapshot()

		checkPlacement(placement, i, st, want)
		checkStability(stability, i, prev, want, lastSeq(surface)-created)
		checkStyling(styling, i, st, s.HighlightedID, surface.ViewportBounds())
		// The engine only refits when the id set changes.
		if s.InitialCenter == nil && len(want) > 0 && !sameIDs(prev, want) {
			checkFraming(framing, i, surface, st, maxZoom)
		}
		prev = want
	}

	phases := []*phase{decode, placement, stability, styling, framing}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Snapshots: %d, markers created: %d\n", len(raws), lastSeq(surface))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// placeable is the set of ids the engine should draw: first occurrence of
// each id with numeric coordinates.
func placeable(s domain.Snapshot) map[string]bool {
	out := make(map[string]bool, len(s.Listings))
	for _, l := range s.Listings {
		if l.Coordinate().IsNumeric() {
			out[l.ID] = true
		}
	}
	return out
}

func sameIDs(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

func lastSeq(s *memsurface.Surface) int {
	n := 0
	for _, m := range s.Markers() {
		n = max(n, m.Seq)
	}
	return n
}

func checkPlacement(p *phase, i int, st mapsync.State, want map[string]bool) {
	if len(st.Markers) != len(want) {
		p.errorf("snapshot %d: %d markers, want %d", i, len(st.Markers), len(want))
	}
	for _, m := range st.Markers {
		if !want[m.ID] {
			p.errorf("snapshot %d: unexpected marker %q", i, m.ID)
		}
		if !domain.SupportedRegion.Contains(m.Coordinate) {
			p.errorf("snapshot %d: marker %q at %v outside region", i, m.ID, m.Coordinate)
		}
	}
}

// checkStability compares the number of new surface markers with the number
// of ids that were not present in the previous snapshot.
func checkStability(p *phase, i int, prev, want map[string]bool, created int) {
	added := 0
	for id := range want {
		if !prev[id] {
			added++
		}
	}
	if created > added {
		p.errorf("snapshot %d: %d markers created for %d new ids", i, created, added)
	}
}

func checkStyling(p *phase, i int, st mapsync.State, highlighted string, viewport domain.Region) {
	for _, m := range st.Markers {
		wantTier := domain.TierDefault.String()
		if m.ID == highlighted {
			wantTier = domain.TierHighlighted.String()
			if viewport.Contains(m.Coordinate) && st.Indicators.Any() {
				p.errorf("snapshot %d: indicators %+v shown for on-screen highlight", i, st.Indicators)
			}
		}
		if m.Tier != wantTier {
			p.errorf("snapshot %d: marker %q tier %s, want %s", i, m.ID, m.Tier, wantTier)
		}
	}
}

func checkFraming(p *phase, i int, s *memsurface.Surface, st mapsync.State, maxZoom float64) {
	if z := s.Zoom(); z > maxZoom {
		p.errorf("snapshot %d: zoom %.2f above ceiling %.2f", i, z, maxZoom)
	}
	vb := s.ViewportBounds()
	for _, m := range st.Markers {
		if !vb.Contains(m.Coordinate) {
			p.errorf("snapshot %d: marker %q at %v outside fitted viewport %+v", i, m.ID, m.Coordinate, vb)
		}
	}
}
