package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yemble/pointcast/internal/fetchcache"
)

// SettingsSink persists user settings. Last write wins.
type SettingsSink interface {
	Save(Settings) error
}

// LocationNamer resolves a point to a human-readable place name. Best
// effort: a failed or empty lookup never interrupts the pipeline.
type LocationNamer interface {
	ReverseName(Location) (string, error)
}

// Snapshot is the displayed state: the aggregated forecast for the most
// recently committed location, or its per-stage error.
type Snapshot struct {
	Location      Location        `json:"location"`
	LocationHash  string          `json:"locationHash"`
	LocationName  string          `json:"locationName,omitempty"`
	Provider      string          `json:"provider"`
	Timezone      string          `json:"timezone,omitempty"`
	Units         UnitSystem      `json:"units"`
	IntervalHours int             `json:"intervalHours"`
	Days          []DaySummary    `json:"days"`
	Geometry      json.RawMessage `json:"geometry,omitempty"`
	Error         string          `json:"error,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Controller drives the three-stage pipeline (resolve metadata, fetch hourly
// series, aggregate) and owns the displayed snapshot. Overlapping requests
// are serialized by a generation counter: only the result that still matches
// the latest generation is committed, so a late response for a superseded
// location is discarded rather than clobbering newer state.
type Controller struct {
	provider Provider
	sink     SettingsSink
	namer    LocationNamer
	timeout  time.Duration

	mu         sync.Mutex
	gen        uint64
	loc        Location
	defaultLoc Location
	units      UnitSystem
	interval   int
	series     *HourlySeries
	snap       Snapshot
}

// NewController creates a Controller seeded from persisted settings. sink and
// namer may be nil.
func NewController(provider Provider, sink SettingsSink, namer LocationNamer, st Settings) *Controller {
	interval := st.IntervalHours
	if interval < 1 || interval > 3 {
		interval = 3
	}
	unitSystem := st.Units
	if unitSystem != UnitsMetric {
		unitSystem = UnitsImperial
	}

	return &Controller{
		provider:   provider,
		sink:       sink,
		namer:      namer,
		timeout:    30 * time.Second,
		loc:        st.DefaultLocation,
		defaultLoc: st.DefaultLocation,
		units:      unitSystem,
		interval:   interval,
		snap: Snapshot{
			Provider:      provider.Name(),
			Units:         unitSystem,
			IntervalHours: interval,
		},
	}
}

// Forecast runs the full pipeline for a location and commits the result if no
// newer request has started in the meantime. The returned snapshot is always
// the one computed for this call, committed or not.
func (c *Controller) Forecast(ctx context.Context, loc Location) (Snapshot, error) {
	if !loc.Valid() {
		return c.CurrentSnapshot(), fmt.Errorf("location out of range: %s", loc.Hash())
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.loc = loc
	unitSystem := c.units
	interval := c.interval
	c.mu.Unlock()

	snap, series, err := c.run(ctx, loc, unitSystem, interval)
	if errors.Is(err, fetchcache.ErrInFlight) {
		// The same locator is already being fetched by an earlier request;
		// this one is dropped, per the cache's documented debounce contract.
		// A dropped duplicate supersedes nothing: undo the generation bump so
		// the outstanding fetch can still commit its result.
		c.mu.Lock()
		if gen == c.gen {
			c.gen--
		}
		c.mu.Unlock()
		return c.CurrentSnapshot(), err
	}

	c.commit(gen, snap, series)
	return snap, err
}

func (c *Controller) run(ctx context.Context, loc Location, unitSystem UnitSystem, interval int) (Snapshot, *HourlySeries, error) {
	snap := Snapshot{
		Location:      loc,
		LocationHash:  loc.Hash(),
		Provider:      c.provider.Name(),
		Units:         unitSystem,
		IntervalHours: interval,
		UpdatedAt:     time.Now().UTC(),
	}

	meta, err := c.provider.ResolveMetadata(ctx, loc)
	if err != nil {
		snap.Error = fmt.Sprintf("resolve: %v", err)
		return snap, nil, err
	}
	snap.Timezone = meta.Timezone
	snap.LocationName = meta.LocationName

	if snap.LocationName == "" && c.namer != nil {
		if name, nerr := c.namer.ReverseName(loc); nerr == nil {
			snap.LocationName = name
		}
	}

	series, err := c.provider.FetchHourly(ctx, meta, unitSystem)
	if err != nil {
		snap.Error = fmt.Sprintf("hourly: %v", err)
		return snap, nil, err
	}

	snap.Days = Aggregate(series.Records, loadLocation(series.Timezone), interval, DefaultDaylightWindow)
	snap.Geometry = series.Geometry
	return snap, &series, nil
}

// commit installs a pipeline result unless a newer generation superseded it.
func (c *Controller) commit(gen uint64, snap Snapshot, series *HourlySeries) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		log.Printf("INFO: discarding superseded forecast for %s", snap.LocationHash)
		return false
	}
	c.snap = snap
	c.series = series
	return true
}

// SetLocation reacts to a location-change event. A location whose hash
// matches the currently displayed state is a no-op; otherwise the pipeline
// runs in the background.
func (c *Controller) SetLocation(loc Location) {
	if !loc.Valid() {
		return
	}

	c.mu.Lock()
	same := loc.Hash() == c.snap.LocationHash && c.snap.Error == ""
	c.mu.Unlock()
	if same {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		if _, err := c.Forecast(ctx, loc); err != nil && !errors.Is(err, fetchcache.ErrInFlight) {
			log.Printf("forecast pipeline failed for %s: %v", loc.Hash(), err)
		}
	}()
}

// SetUnits changes the display unit system and re-fetches the hourly series,
// since the upstream request itself encodes the units.
func (c *Controller) SetUnits(ctx context.Context, unitSystem UnitSystem) error {
	if unitSystem != UnitsImperial && unitSystem != UnitsMetric {
		return fmt.Errorf("unit system must be imperial or metric")
	}

	c.mu.Lock()
	c.units = unitSystem
	loc := c.loc
	c.mu.Unlock()

	c.persist()

	if !loc.Valid() {
		return nil
	}
	_, err := c.Forecast(ctx, loc)
	return err
}

// SetInterval changes the sampling interval and re-aggregates the retained
// records. No network call is made.
func (c *Controller) SetInterval(intervalHours int) error {
	if intervalHours < 1 || intervalHours > 3 {
		return fmt.Errorf("interval must be 1, 2 or 3 hours")
	}

	c.mu.Lock()
	c.interval = intervalHours
	c.snap.IntervalHours = intervalHours
	if c.series != nil {
		c.snap.Days = Aggregate(c.series.Records, loadLocation(c.series.Timezone), intervalHours, DefaultDaylightWindow)
		c.snap.UpdatedAt = time.Now().UTC()
	}
	c.mu.Unlock()

	c.persist()
	return nil
}

// SetDefaultLocation persists a new home location and moves there.
func (c *Controller) SetDefaultLocation(loc Location) error {
	if !loc.Valid() {
		return fmt.Errorf("location out of range: %s", loc.Hash())
	}

	c.mu.Lock()
	c.defaultLoc = loc
	c.mu.Unlock()

	c.persist()
	c.SetLocation(loc)
	return nil
}

// Refresh re-runs the pipeline for the current location, bypassing the
// same-hash short-circuit. Used by the periodic refresh job.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	loc := c.loc
	c.mu.Unlock()

	if !loc.Valid() {
		return nil
	}
	_, err := c.Forecast(ctx, loc)
	if errors.Is(err, fetchcache.ErrInFlight) {
		return nil
	}
	return err
}

// CurrentSnapshot returns the displayed state.
func (c *Controller) CurrentSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Settings returns the current user settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Settings{
		DefaultLocation: c.defaultLoc,
		IntervalHours:   c.interval,
		Units:           c.units,
	}
}

func (c *Controller) persist() {
	if c.sink == nil {
		return
	}
	if err := c.sink.Save(c.Settings()); err != nil {
		log.Printf("failed to persist settings: %v", err)
	}
}

func loadLocation(name string) *time.Location {
	tz, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return tz
}
