package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/storage"
)

const (
	summarySheet = "Summary"
	maxTracks    = 8
	maxTrackRows = 2000
)

var sheetReplacer = strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")")

func sheetName(prefix, tag string) string {
	name := sheetReplacer.Replace(prefix + tag)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// WriteXLSX writes a workbook with a summary sheet, the final state of
// every particle per species and a thinned track sheet per species.
func WriteXLSX(path string, meta *storage.RunMetadata, histories map[string]*dynamo.History) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if err := writeSummary(f, meta); err != nil {
		return err
	}

	for i, sm := range meta.Species {
		h, ok := histories[sm.Tag]
		if !ok {
			continue
		}
		final := sheetName(fmt.Sprintf("%d ", i+1), sm.Tag)
		if err := writeFinal(f, final, h); err != nil {
			return fmt.Errorf("sheet %s: %w", final, err)
		}
		tracks := sheetName(fmt.Sprintf("%d tracks ", i+1), sm.Tag)
		if err := writeTracks(f, tracks, h); err != nil {
			return fmt.Errorf("sheet %s: %w", tracks, err)
		}
	}

	return f.SaveAs(path)
}

func writeSummary(f *excelize.File, meta *storage.RunMetadata) error {
	names := metricNames(meta)
	header := []any{"Tag", "Count", "Mass (kg)", "Charge (C)", "Alive", "Lost", "Detected", "Transmission"}
	for _, n := range names {
		header = append(header, n)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}

	for i, sm := range meta.Species {
		row := []any{sm.Tag, sm.Count, sm.Mass, sm.Charge, sm.Alive, sm.Lost, sm.Detected, sm.Transmission}
		for _, n := range names {
			row = append(row, sm.Metrics[n])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	base := len(meta.Species) + 3
	info := [][]any{
		{"Run", meta.ID},
		{"Integrator", meta.Integrator},
		{"Seed", meta.Seed},
		{"Device", meta.Device.Tag},
		{"RF (V)", meta.Device.RF},
		{"DC (V)", meta.Device.DC},
		{"Frequency (Hz)", meta.Device.Frequency},
		{"Radius (m)", meta.Device.Radius},
	}
	for i, kv := range info {
		cell, _ := excelize.CoordinatesToCellName(1, base+i)
		if err := f.SetSheetRow(summarySheet, cell, &kv); err != nil {
			return err
		}
	}
	return nil
}

func metricNames(meta *storage.RunMetadata) []string {
	seen := make(map[string]bool)
	for _, sm := range meta.Species {
		for n := range sm.Metrics {
			seen[n] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func writeFinal(f *excelize.File, sheet string, h *dynamo.History) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{"Particle", "L", "X", "Y", "Z", "VX", "VY", "VZ"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last := h.Steps() - 1
	for n := 0; n < h.Particles(); n++ {
		s := h.At(last, n)
		row := []any{n, s.Membership, s.Pos[0], s.Pos[1], s.Pos[2], s.Vel[0], s.Vel[1], s.Vel[2]}
		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// writeTracks records time, z, x and y for the first few particles,
// thinned to at most maxTrackRows rows.
func writeTracks(f *excelize.File, sheet string, h *dynamo.History) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	n := min(h.Particles(), maxTracks)
	header := []any{"Time"}
	for p := 0; p < n; p++ {
		header = append(header, fmt.Sprintf("Z%d", p), fmt.Sprintf("X%d", p), fmt.Sprintf("Y%d", p))
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	stride := max(1, (h.Steps()+maxTrackRows-1)/maxTrackRows)
	r := 2
	for t := 0; t < h.Steps(); t += stride {
		row := []any{h.Time[t]}
		for p := 0; p < n; p++ {
			s := h.At(t, p)
			row = append(row, s.Pos[dynamo.Z], s.Pos[dynamo.X], s.Pos[dynamo.Y])
		}
		cell, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		r++
	}
	return nil
}
