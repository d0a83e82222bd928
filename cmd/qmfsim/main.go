package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/qmfsim/internal/config"
	"github.com/san-kum/qmfsim/internal/experiment"
	"github.com/san-kum/qmfsim/internal/sim"
	"github.com/san-kum/qmfsim/internal/storage"
	"github.com/san-kum/qmfsim/internal/viz"
)

var (
	dataDir string
	verbose bool

	configFile string
	preset     string
	runName    string
	deviceCSV  string
	deviceTag  string
	speciesCSV string
	tags       []string

	integrator     string
	seed           int64
	stepsPerPeriod int
	margin         float64
	steps          int
	count          int
	hardSwitch     bool
	noHistory      bool

	// inspection
	speciesTag string
	particle   int
	channel    string
	outPath    string

	// mass scan
	scanFrom    float64
	scanTo      float64
	scanPoints  int
	scanWorkers int

	// voltage sweep
	sweepParam  string
	sweepFrom   float64
	sweepTo     float64
	sweepPoints int
	keepRatio   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qmfsim",
		Short: "ion trajectories through a segmented quadrupole mass filter",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				return nil
			}
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			sim.SetLogger(l)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".qmfsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log run progress")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate every configured species and save the run",
		RunE:  runSimulation,
	}
	addSetupFlags(runCmd)
	runCmd.Flags().StringVar(&runName, "name", "", "run name (defaults to the preset or config file name)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "simulate with a live terminal view",
		RunE:  runLive,
	}
	addSetupFlags(liveCmd)
	liveCmd.Flags().StringVar(&runName, "name", "", "run name")

	stabilityCmd := &cobra.Command{
		Use:   "stability",
		Short: "Mathieu parameters of the configured species",
		RunE:  stability,
	}
	addSetupFlags(stabilityCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "transmission against mass for the first configured species",
		RunE:  massScan,
	}
	addSetupFlags(scanCmd)
	scanCmd.Flags().Float64Var(&scanFrom, "from", 40, "lowest mass (amu)")
	scanCmd.Flags().Float64Var(&scanTo, "to", 54, "highest mass (amu)")
	scanCmd.Flags().IntVar(&scanPoints, "points", 29, "number of masses")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 4, "masses simulated at once")
	scanCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the scan as an SVG figure")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "transmission of every species across a range of drive potentials",
		RunE:  voltageSweep,
	}
	addSetupFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "rf", "potential to sweep: rf or dc")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 200, "first value (V)")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 290, "last value (V)")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 10, "number of settings")
	sweepCmd.Flags().BoolVar(&keepRatio, "keep-ratio", true, "scale the other potential to keep DC/RF fixed")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and tracks as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export one species history to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&speciesTag, "species", "", "species tag (default first)")
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportXLSXCmd := &cobra.Command{
		Use:   "export-xlsx [run_id]",
		Short: "export a run to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  exportXLSX,
	}
	exportXLSXCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.xlsx)")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render trajectory figures as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	svgCmd.Flags().StringVarP(&outPath, "out", "o", "", "output directory (default <data>/<run_id>/figures)")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one particle track in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	addTrackFlags(plotCmd)

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "secular frequency of one particle track",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrum,
	}
	addTrackFlags(spectrumCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tINTEG\tZONES\tSPECIES")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				kinds := make([]string, len(p.Zones))
				for i, z := range p.Zones {
					kinds[i] = z.Kind
				}
				spTags := make([]string, len(p.Species))
				for i, s := range p.Species {
					spTags[i] = s.Tag
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, p.Integrator, strings.Join(kinds, ","), strings.Join(spTags, ","))
			}
			return w.Flush()
		},
	}

	integratorsCmd := &cobra.Command{
		Use:   "integrators",
		Short: "list available integrators",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range experiment.NewRegistry().ListIntegrators() {
				fmt.Println(name)
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a preset as an editable YAML config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	addSetupFlags(initCmd)

	rootCmd.AddCommand(runCmd, liveCmd, stabilityCmd, scanCmd, sweepCmd, scenarioCmd, listCmd, exportCmd, exportCSVCmd,
		exportXLSXCmd, svgCmd, plotCmd, spectrumCmd, presetsCmd, integratorsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSetupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "standard", "preset configuration")
	f.StringVar(&deviceCSV, "device-csv", "", "device table (csv)")
	f.StringVar(&deviceTag, "device", "", "device tag to read from --device-csv")
	f.StringVar(&speciesCSV, "species-csv", "", "species table (csv)")
	f.StringSliceVar(&tags, "tags", nil, "species tags to read from --species-csv (default all)")
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	f.Int64Var(&seed, "seed", 1, "random seed")
	f.IntVar(&stepsPerPeriod, "steps-per-period", sim.DefaultStepsPerPeriod, "steps per RF period")
	f.Float64Var(&margin, "margin", sim.DefaultMargin, "transit time margin")
	f.IntVar(&steps, "steps", 0, "fixed number of timepoints (overrides the plan)")
	f.IntVar(&count, "count", 0, "particles per species (overrides the config)")
	f.BoolVar(&hardSwitch, "hard-switch", false, "use only each particle's own zone")
	f.BoolVar(&noHistory, "no-history", false, "keep only the final state")
}

func addTrackFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&speciesTag, "species", "", "species tag (default first)")
	cmd.Flags().IntVar(&particle, "particle", 0, "particle index")
	cmd.Flags().StringVar(&channel, "channel", "x", "zone, x, y, z, vx, vy or vz")
}

// loadConfig starts from the preset, replaces it with --config when given,
// swaps in CSV tables, and finally applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if deviceCSV != "" {
		if deviceTag == "" {
			return nil, fmt.Errorf("--device-csv needs --device")
		}
		f, err := os.Open(deviceCSV)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		dc, err := config.LoadDeviceCSV(f, deviceTag)
		if err != nil {
			return nil, err
		}
		dc.Steepness = cfg.Device.Steepness
		cfg.Device = dc
	}

	if speciesCSV != "" {
		f, err := os.Open(speciesCSV)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rows, err := config.LoadSpeciesCSV(f)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			rows, err = config.FindSpecies(rows, tags...)
			if err != nil {
				return nil, err
			}
		}
		cfg.Species = rows
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("steps-per-period") {
		cfg.Run.StepsPerPeriod = stepsPerPeriod
	}
	if flags.Changed("margin") {
		cfg.Run.Margin = margin
	}
	if flags.Changed("steps") {
		cfg.Run.Steps = steps
	}
	if flags.Changed("count") {
		for i := range cfg.Species {
			cfg.Species[i].Count = count
		}
	}
	if flags.Changed("hard-switch") {
		cfg.Run.HardSwitch = hardSwitch
	}
	if flags.Changed("no-history") {
		cfg.Run.SkipHistory = noHistory
	}
	return cfg, nil
}

func nameFor() string {
	switch {
	case runName != "":
		return runName
	case configFile != "":
		return strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	default:
		return preset
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func saveRun(exp *experiment.Experiment, name string, results []*sim.Result) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	setup := exp.Setup()
	return st.Save(storage.Run{
		Name:       name,
		Integrator: setup.Integrator,
		Seed:       setup.Run.Seed,
		Device:     exp.Device(),
		Results:    results,
	})
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	name := nameFor()
	fmt.Printf("running %s: %d species through %d zones...\n", name, len(exp.Setup().Species), exp.Device().Zones())
	start := time.Now()

	results, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := saveRun(exp, name, results)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n\n", runID)
	fmt.Println(viz.SummaryTable(results))
	for _, res := range results {
		fmt.Printf("\n%s (%d timepoints, h = %.3g s):\n", res.Tag, res.Plan.Steps, res.Plan.H)
		for _, m := range sortedKeys(res.Metrics) {
			fmt.Printf("  %s: %.6g\n", m, res.Metrics[m])
		}
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	spTags := make([]string, len(exp.Setup().Species))
	for i, sp := range exp.Setup().Species {
		spTags[i] = sp.Tag
	}
	name := nameFor()
	p := tea.NewProgram(viz.NewModel(name, spTags, exp.Setup().Drive.Radius, cancel))
	exp.GetSimulator().AddObserver(viz.Reporter(p.Send, 0))

	go func() {
		results, err := exp.Run(ctx)
		p.Send(viz.DoneMsg{Results: results, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	m := final.(viz.Model)
	if !m.Done() {
		fmt.Println("run cancelled")
		return nil
	}
	results, err := m.Results()
	if err != nil {
		return err
	}
	runID, err := saveRun(exp, name, results)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDEVICE\tINTEG\tTRANSMISSION")

	for _, run := range runs {
		parts := make([]string, len(run.Species))
		for i, sp := range run.Species {
			parts[i] = fmt.Sprintf("%s %.0f%%", sp.Tag, 100*sp.Transmission)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Device.Tag,
			run.Integrator,
			strings.Join(parts, ", "),
		)
	}

	return w.Flush()
}
