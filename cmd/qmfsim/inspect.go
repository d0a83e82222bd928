package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/qmfsim/internal/analysis"
	"github.com/san-kum/qmfsim/internal/config"
	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/experiment"
	"github.com/san-kum/qmfsim/internal/export"
	"github.com/san-kum/qmfsim/internal/field"
	"github.com/san-kum/qmfsim/internal/optim"
	"github.com/san-kum/qmfsim/internal/storage"
)

var channels = map[string]int{"zone": 0, "x": 1, "y": 2, "z": 3, "vx": 4, "vy": 5, "vz": 6}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// output returns stdout or the created file at path.
func output(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func stability(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setup, err := cfg.Build()
	if err != nil {
		return err
	}
	d := setup.Drive

	fmt.Printf("device %s: RF %.4g V, DC %.4g V, %.4g MHz, r0 %.4g mm\n\n",
		d.Tag, d.RF, d.DC, d.Frequency/1e6, d.Radius*1e3)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPECIES\tM/Z (amu/e)\ta\tq\tSTABLE\tBETA\tSECULAR (kHz)")
	for _, sp := range setup.Species {
		a, q := analysis.Mathieu(d, sp)
		beta := analysis.Beta(a, q)
		mz := (sp.Mass / config.AtomicMassUnit) / (sp.Charge / config.ElementaryCharge)
		fmt.Fprintf(w, "%s\t%.3f\t%.5f\t%.5f\t%t\t%.4f\t%.2f\n",
			sp.Tag, mz, a, q, analysis.Stable(a, q), beta, beta*d.Frequency/2/1e3)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if d.RF > 0 {
		apex := analysis.MassAt(d, config.ElementaryCharge, analysis.ApexQ) / config.AtomicMassUnit
		fmt.Printf("\napex (a %.5f, q %.5f) sits at m/z %.3f for this drive\n", analysis.ApexA, analysis.ApexQ, apex)
	}
	return nil
}

func massScan(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("preset") && configFile == "" {
		preset = "mass-scan"
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}
	if scanPoints < 1 || !(scanTo >= scanFrom) {
		return fmt.Errorf("invalid scan range %g..%g with %d points", scanFrom, scanTo, scanPoints)
	}

	ctx, cancel := signalContext()
	defer cancel()

	probe := exp.Setup().Species[0]
	scan := optim.NewMassScan(exp.GetSimulator(), probe, config.AtomicMassUnit, scanWorkers)
	fmt.Printf("scanning %d masses from %g to %g amu...\n\n", scanPoints, scanFrom, scanTo)
	points, err := scan.Run(ctx, optim.Grid(scanFrom, scanTo, scanPoints), exp.Setup().Run)
	if err != nil {
		return err
	}

	trans := make([]float64, len(points))
	for i, p := range points {
		trans[i] = 100 * p.Transmission
	}
	if len(trans) > 1 {
		fmt.Println(asciigraph.Plot(trans,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("transmission %% over %g..%g amu", scanFrom, scanTo)),
		))
		fmt.Println()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MASS (amu)\tDETECTED\tLOST\tTRANSMISSION")
	for _, p := range points {
		fmt.Fprintf(w, "%.3f\t%d\t%d\t%.1f%%\n", p.MassAMU, p.Detected, p.Lost, 100*p.Transmission)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if peak, ok := optim.Peak(points); ok {
		fmt.Printf("\npeak: %.3f amu (%.1f%%)\n", peak.MassAMU, 100*peak.Transmission)
	}

	if outPath != "" {
		if err := export.WriteScanFigure(outPath, points); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, histories, err := st.LoadAll(args[0])
	if err != nil {
		return err
	}
	out, err := output(outPath)
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(out, meta, histories); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// loadSpecies resolves --species, defaulting to the first species of the run.
func loadSpecies(st *storage.Store, runID string) (*storage.RunMetadata, *storage.SpeciesMeta, *dynamo.History, error) {
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(meta.Species) == 0 {
		return nil, nil, nil, fmt.Errorf("run %s has no species", runID)
	}
	sm := &meta.Species[0]
	if speciesTag != "" {
		if sm, err = meta.Find(speciesTag); err != nil {
			return nil, nil, nil, err
		}
	}
	h, err := st.LoadHistory(runID, sm.Tag)
	if err != nil {
		return nil, nil, nil, err
	}
	return meta, sm, h, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, _, h, err := loadSpecies(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	out, err := output(outPath)
	if err != nil {
		return err
	}
	if err := storage.WriteHistoryCSV(out, h); err != nil {
		out.Close()
		return err
	}
	if outPath != "" {
		fmt.Printf("exported %d timepoints of %d particles to %s\n", h.Steps(), h.Particles(), outPath)
	}
	return out.Close()
}

func exportXLSX(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, histories, err := st.LoadAll(runID)
	if err != nil {
		return err
	}
	path := outPath
	if path == "" {
		path = runID + ".xlsx"
	}
	if err := export.WriteXLSX(path, meta, histories); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, histories, err := st.LoadAll(runID)
	if err != nil {
		return err
	}
	dir := outPath
	if dir == "" {
		dir = filepath.Join(dataDir, runID, "figures")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, sp := range meta.Species {
		paths, err := export.WriteFigures(dir, sp.Tag, histories[sp.Tag], len(meta.Device.Zones), meta.Device.Radius)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
	}
	return nil
}

func trackOf(h *dynamo.History) ([]float64, error) {
	ch, ok := channels[channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel: %s", channel)
	}
	if particle < 0 || particle >= h.Particles() {
		return nil, fmt.Errorf("particle %d out of range [0, %d)", particle, h.Particles())
	}
	return h.Track(particle, ch), nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, sm, h, err := loadSpecies(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	track, err := trackOf(h)
	if err != nil {
		return err
	}
	if len(track) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("species: %s (%d particles)\n", sm.Tag, sm.Count)
	fmt.Printf("samples: %d\n\n", len(track))

	graph := asciigraph.Plot(track,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s of particle %d vs time", channel, particle)),
	)
	fmt.Println(graph)
	return nil
}

func spectrum(cmd *cobra.Command, args []string) error {
	meta, sm, h, err := loadSpecies(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	track, err := trackOf(h)
	if err != nil {
		return err
	}

	freq, err := analysis.SecularFrequency(track, sm.H)
	if err != nil {
		return err
	}

	ps := analysis.PowerSpectrum(track)
	if n := len(ps) / 4; n > 1 {
		fmt.Println(asciigraph.Plot(ps[:n],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (%s, particle %d)", channel, particle)),
		))
		fmt.Println()
	}

	fmt.Printf("frequency analysis: %s / %s\n", meta.ID, sm.Tag)
	fmt.Printf("dominant frequency: %.3f kHz\n", freq/1e3)

	d := field.Drive{RF: meta.Device.RF, DC: meta.Device.DC, Frequency: meta.Device.Frequency, Radius: meta.Device.Radius}
	a, q := analysis.Mathieu(d, dynamo.Species{Mass: sm.Mass, Charge: sm.Charge})
	fmt.Printf("mathieu a %.5f, q %.5f: predicted secular %.3f kHz\n", a, q, analysis.Beta(a, q)*d.Frequency/2/1e3)
	return nil
}
