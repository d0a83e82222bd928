package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
	"github.com/san-kum/qmfsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type ZoneMeta struct {
	Kind   string  `json:"kind"`
	Span   float64 `json:"span"`
	Origin float64 `json:"origin"`
}

type DeviceMeta struct {
	Tag       string     `json:"tag"`
	RF        float64    `json:"rf"`
	DC        float64    `json:"dc"`
	Frequency float64    `json:"frequency"`
	Radius    float64    `json:"radius"`
	Steepness float64    `json:"steepness"`
	Zones     []ZoneMeta `json:"zones"`
}

type SpeciesMeta struct {
	Tag          string             `json:"tag"`
	Count        int                `json:"count"`
	Mass         float64            `json:"mass"`
	Charge       float64            `json:"charge"`
	Speed        float64            `json:"speed"`
	H            float64            `json:"h"`
	Steps        int                `json:"steps"`
	Alive        int                `json:"alive"`
	Lost         int                `json:"lost"`
	Detected     int                `json:"detected"`
	Transmission float64            `json:"transmission"`
	Metrics      map[string]float64 `json:"metrics"`
	History      string             `json:"history"`
	Time         string             `json:"time"`
}

type RunMetadata struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Timestamp  time.Time     `json:"timestamp"`
	Seed       int64         `json:"seed"`
	Integrator string        `json:"integrator"`
	Device     DeviceMeta    `json:"device"`
	Species    []SpeciesMeta `json:"species"`
}

// Find returns the species entry with the given tag.
func (m *RunMetadata) Find(tag string) (*SpeciesMeta, error) {
	for i := range m.Species {
		if m.Species[i].Tag == tag {
			return &m.Species[i], nil
		}
	}
	return nil, fmt.Errorf("run %s has no species %q", m.ID, tag)
}

// Run is a finished simulation ready to be persisted.
type Run struct {
	Name       string
	Integrator string
	Seed       int64
	Device     *field.Device
	Results    []*sim.Result
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileTag(tag string) string {
	return unsafeChars.ReplaceAllString(tag, "_")
}

// Save writes metadata.json plus one history and one time file per species.
func (s *Store) Save(run Run) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", fileTag(run.Name), now.UnixMilli())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       run.Name,
		Timestamp:  now,
		Seed:       run.Seed,
		Integrator: run.Integrator,
		Device:     deviceMeta(run.Device),
	}

	for i, res := range run.Results {
		sm := SpeciesMeta{
			Tag:          res.Tag,
			Count:        res.Species.Count,
			Mass:         res.Species.Mass,
			Charge:       res.Species.Charge,
			Speed:        res.Species.Speed,
			H:            res.Plan.H,
			Steps:        res.History.Steps(),
			Alive:        res.Alive,
			Lost:         res.Lost,
			Detected:     res.Detected,
			Transmission: res.Transmission(),
			Metrics:      res.Metrics,
			History:      fmt.Sprintf("history_%02d_%s.csv", i, fileTag(res.Tag)),
			Time:         fmt.Sprintf("time_%02d_%s.csv", i, fileTag(res.Tag)),
		}
		if err := writeFile(filepath.Join(runDir, sm.History), func(f *os.File) error {
			return WriteHistoryCSV(f, res.History)
		}); err != nil {
			return "", err
		}
		if err := writeFile(filepath.Join(runDir, sm.Time), func(f *os.File) error {
			return WriteTimeCSV(f, res.Time)
		}); err != nil {
			return "", err
		}
		meta.Species = append(meta.Species, sm)
	}

	if err := writeFile(filepath.Join(runDir, "metadata.json"), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", err
	}

	return runID, nil
}

func deviceMeta(dev *field.Device) DeviceMeta {
	d := dev.Drive()
	dm := DeviceMeta{
		Tag:       d.Tag,
		RF:        d.RF,
		DC:        d.DC,
		Frequency: d.Frequency,
		Radius:    d.Radius,
		Steepness: dev.Steepness(),
	}
	for k := 1; k <= dev.Zones(); k++ {
		z := dev.Zone(k)
		dm.Zones = append(dm.Zones, ZoneMeta{Kind: string(z.Kind), Span: z.Span, Origin: z.Origin})
	}
	return dm
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadHistory reads back the recorded history of one species.
func (s *Store) LoadHistory(runID, tag string) (*dynamo.History, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	sm, err := meta.Find(tag)
	if err != nil {
		return nil, err
	}

	runDir := filepath.Join(s.baseDir, runID)
	tf, err := os.Open(filepath.Join(runDir, sm.Time))
	if err != nil {
		return nil, err
	}
	defer tf.Close()
	times, err := ReadTimeCSV(tf)
	if err != nil {
		return nil, err
	}

	hf, err := os.Open(filepath.Join(runDir, sm.History))
	if err != nil {
		return nil, err
	}
	defer hf.Close()
	return ReadHistoryCSV(hf, times)
}
