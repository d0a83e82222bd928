package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/qmfsim/internal/automation"
	"github.com/san-kum/qmfsim/internal/experiment"
	"github.com/san-kum/qmfsim/internal/storage"
	"github.com/san-kum/qmfsim/internal/viz"
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	steps, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st)
	for _, s := range steps {
		fmt.Printf("\n%s", s.Name)
		if s.RunID != "" {
			fmt.Printf(" (run id: %s)", s.RunID)
		}
		fmt.Println()
		fmt.Println(viz.SummaryTable(s.Results))
	}
	return err
}

func voltageSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sweep := &automation.VoltageSweep{
		Base:      cfg,
		Param:     sweepParam,
		Min:       sweepFrom,
		Max:       sweepTo,
		Points:    sweepPoints,
		KeepRatio: keepRatio,
	}
	points, err := automation.RunSweep(ctx, sweep, experiment.NewRegistry())
	if err != nil {
		return err
	}

	spTags := make([]string, len(cfg.Species))
	for i, sp := range cfg.Species {
		spTags[i] = strings.ToUpper(sp.Tag)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RF (V)\tDC (V)\t%s\n", strings.Join(spTags, "\t"))
	for _, p := range points {
		cells := make([]string, len(cfg.Species))
		for i, sp := range cfg.Species {
			cells[i] = fmt.Sprintf("%.1f%%", 100*p.Transmission[sp.Tag])
		}
		fmt.Fprintf(w, "%.2f\t%.2f\t%s\n", p.RF, p.DC, strings.Join(cells, "\t"))
	}
	return w.Flush()
}
