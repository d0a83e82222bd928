package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

type TrackData struct {
	Particle   int       `json:"particle"`
	Membership []float64 `json:"membership"`
	X          []float64 `json:"x"`
	Y          []float64 `json:"y"`
	Z          []float64 `json:"z"`
	VX         []float64 `json:"vx"`
	VY         []float64 `json:"vy"`
	VZ         []float64 `json:"vz"`
}

type SpeciesExport struct {
	SpeciesMeta
	Times  []float64   `json:"times"`
	Tracks []TrackData `json:"tracks"`
}

type ExportData struct {
	RunMetadata
	Species []SpeciesExport `json:"species"`
}

// ExportJSON writes the run metadata together with every particle track.
func ExportJSON(w io.Writer, meta *RunMetadata, histories map[string]*dynamo.History) error {
	data := ExportData{RunMetadata: *meta}
	for _, sm := range meta.Species {
		se := SpeciesExport{SpeciesMeta: sm}
		if h, ok := histories[sm.Tag]; ok {
			se.Times = h.Time
			se.Tracks = make([]TrackData, h.Particles())
			for n := range se.Tracks {
				se.Tracks[n] = TrackData{
					Particle:   n,
					Membership: h.Track(n, 0),
					X:          h.Track(n, 1),
					Y:          h.Track(n, 2),
					Z:          h.Track(n, 3),
					VX:         h.Track(n, 4),
					VY:         h.Track(n, 5),
					VZ:         h.Track(n, 6),
				}
			}
		}
		data.Species = append(data.Species, se)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// LoadAll reads the metadata and every species history of a run.
func (s *Store) LoadAll(runID string) (*RunMetadata, map[string]*dynamo.History, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	histories := make(map[string]*dynamo.History, len(meta.Species))
	for _, sm := range meta.Species {
		h, err := s.LoadHistory(runID, sm.Tag)
		if err != nil {
			return nil, nil, err
		}
		histories[sm.Tag] = h
	}
	return meta, histories, nil
}
