// Command genmock turns a CSV of listings into a sequence of listing snapshots,
// the way a user browsing search results would produce them, and writes them
// as a JSON fixture. With -brokers it also publishes them to the snapshot
// topic so a local service has something to render.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/mock/listings.csv \
//	  -out data/mock/listing_snapshots.json \
//	  [-brokers localhost:9092 -topic listing-snapshots]
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	kafkago "github.com/segmentio/kafka-go"
)

var baseDate = time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)

// wireListing mirrors the snapshot JSON. Coordinates are omitted, not zero,
// when the CSV leaves them blank.
type wireListing struct {
	ID      string   `json:"id"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Address string   `json:"address"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Zip     string   `json:"zip"`
	Price   float64  `json:"price"`
}

type wireSnapshot struct {
	Listings      []wireListing      `json:"listings"`
	HighlightedID string             `json:"highlighted_id,omitempty"`
	InitialCenter *domain.Coordinate `json:"initial_center,omitempty"`
	InitialZoom   *float64           `json:"initial_zoom,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV file with id,lat,lng,address,city,state,zip,price columns")
	out := flag.String("out", "", "output path for the snapshot JSON fixture")
	brokers := flag.String("brokers", "", "optional comma-separated Kafka brokers to publish to")
	topic := flag.String("topic", "listing-snapshots", "snapshot topic used with -brokers")
	flag.Parse()

	if *csvPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -out")
	}

	listings, err := readListings(*csvPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *csvPath, err)
	}
	log.Printf("read %d listings", len(listings))

	snapshots := browse(listings)
	if err := writeJSON(*out, snapshots); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d snapshots: %s", len(snapshots), *out)

	printStats(listings)

	if *brokers == "" {
		return nil
	}
	return publish(sharedcfg.ParseBrokers(*brokers), *topic, snapshots)
}

func readListings(path string) ([]wireListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[h] = i
	}

	listings := make([]wireListing, 0, len(rows)-1)
	for n, row := range rows[1:] {
		l := wireListing{
			ID:      get(row, colIdx, "id"),
			Address: get(row, colIdx, "address"),
			City:    get(row, colIdx, "city"),
			State:   get(row, colIdx, "state"),
			Zip:     get(row, colIdx, "zip"),
		}
		if l.ID == "" {
			return nil, fmt.Errorf("row %d: missing id", n+2)
		}
		if l.Lat, err = optFloat(get(row, colIdx, "lat")); err != nil {
			return nil, fmt.Errorf("row %d: lat: %w", n+2, err)
		}
		if l.Lng, err = optFloat(get(row, colIdx, "lng")); err != nil {
			return nil, fmt.Errorf("row %d: lng: %w", n+2, err)
		}
		if p := get(row, colIdx, "price"); p != "" {
			if l.Price, err = strconv.ParseFloat(p, 64); err != nil {
				return nil, fmt.Errorf("row %d: price: %w", n+2, err)
			}
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// browse simulates a search session: the full result set, then a hover-free
// walk highlighting each listing in turn, then a narrowed result set that
// drops the most expensive third.
func browse(listings []wireListing) []wireSnapshot {
	snapshots := []wireSnapshot{{Listings: listings}}
	for _, l := range listings {
		snapshots = append(snapshots, wireSnapshot{Listings: listings, HighlightedID: l.ID})
	}

	narrowed := append([]wireListing(nil), listings...)
	sort.SliceStable(narrowed, func(i, j int) bool { return narrowed[i].Price < narrowed[j].Price })
	narrowed = narrowed[:len(narrowed)-len(narrowed)/3]
	center := domain.SupportedRegion.Center()
	zoom := 5.0
	snapshots = append(snapshots, wireSnapshot{Listings: narrowed, InitialCenter: &center, InitialZoom: &zoom})
	return snapshots
}

func publish(brokers []string, topic string, snapshots []wireSnapshot) error {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	msgs := make([]kafkago.Message, 0, len(snapshots))
	for i, s := range snapshots {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal snapshot %d: %w", i, err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte("demo-session"),
			Value: data,
			Time:  baseDate.Add(time.Duration(i) * time.Second),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	log.Printf("published %d snapshots to %s", len(msgs), topic)
	return nil
}

func optFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// printStats reports what the map will do with the listings.
func printStats(listings []wireListing) {
	states := map[string]int{}
	var missing, clamped int
	for _, l := range listings {
		states[l.State]++
		switch {
		case l.Lat == nil || l.Lng == nil:
			missing++
		case !domain.IsWithinRegion(*l.Lat, *l.Lng):
			clamped++
		}
	}

	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("\n=== Listings by state ===")
	for _, k := range keys {
		fmt.Printf("  %-4s %d\n", k, states[k])
	}
	fmt.Printf("\nneed geocoding: %d\noutside region (clamped): %d\n", missing, clamped)
}
