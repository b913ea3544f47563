package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/forcelayout/internal/automation"
	"github.com/san-kum/forcelayout/internal/config"
	"github.com/san-kum/forcelayout/internal/cooling"
	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/engine"
	"github.com/san-kum/forcelayout/internal/export"
	"github.com/san-kum/forcelayout/internal/graphio"
	"github.com/san-kum/forcelayout/internal/metrics"
	"github.com/san-kum/forcelayout/internal/optim"
	"github.com/san-kum/forcelayout/internal/storage"
	"github.com/san-kum/forcelayout/internal/storage/sqlite"
	"github.com/san-kum/forcelayout/internal/store"
	"github.com/san-kum/forcelayout/internal/viz"
)

var (
	dataDir     string
	verbose     bool
	configFile  string
	preset      string
	runName     string
	maxTicks    int
	manyBody    string
	seed        int64
	frameRate   int
	perFrame    int
	addr        string
	noWatch     bool
	positionsDB string
	layoutOut   string
	exportOut   string
	presetOut   string
	benchTicks  int
	svgOut      string
	svgTheme    string
	svgWidth    int
	svgHeight   int
	tuneParams  []string
	tuneMetric  string
	tuneWorkers int
	saveScript  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "forcelayout",
		Short:        "force-directed graph layout",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run directory (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	layoutFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml or toml)")
		cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
		cmd.Flags().StringVar(&manyBody, "many-body", "", "many-body mode: exact, approx or off")
		cmd.Flags().Int64Var(&seed, "seed", 0, "placement seed")
	}

	runCmd := &cobra.Command{
		Use:   "run [graph]",
		Short: "lay out a graph until it stabilizes",
		Args:  cobra.ExactArgs(1),
		RunE:  runLayout,
	}
	layoutFlags(runCmd)
	runCmd.Flags().StringVar(&runName, "name", "", "run name")
	runCmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "tick limit")
	runCmd.Flags().StringVar(&positionsDB, "positions-db", "", "sqlite file for warm starts")
	runCmd.Flags().StringVarP(&layoutOut, "output", "o", "", "also write the final layout here")

	liveCmd := &cobra.Command{
		Use:   "live [graph]",
		Short: "watch a layout settle in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	layoutFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 0, "frame rate")
	liveCmd.Flags().IntVar(&perFrame, "ticks-per-frame", 1, "ticks per frame")

	serveCmd := &cobra.Command{
		Use:   "serve [graph]",
		Short: "serve a live layout over http and websocket",
		Args:  cobra.ExactArgs(1),
		RunE:  runServe,
	}
	layoutFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address")
	serveCmd.Flags().IntVar(&frameRate, "fps", 0, "frame rate")
	serveCmd.Flags().IntVar(&perFrame, "ticks-per-frame", 1, "ticks per frame")
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the graph file on change")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot alpha and energy of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&svgOut, "svg", "", "also draw the layout to this svg file")
	exportCmd.Flags().StringVar(&svgTheme, "theme", "cyberpunk", "svg color theme")
	exportCmd.Flags().IntVar(&svgWidth, "width", 800, "svg width")
	exportCmd.Flags().IntVar(&svgHeight, "height", 600, "svg height")

	tuneCmd := &cobra.Command{
		Use:   "tune [graph]",
		Short: "grid search layout parameters",
		Long: "Lay the graph out once per parameter combination and report the one\n" +
			"with the lowest metric. Parameters: " + strings.Join(optim.Tunable(), ", ") + ".\n" +
			"Metrics: " + strings.Join(optim.Metrics(), ", ") + ".",
		Args: cobra.ExactArgs(1),
		RunE: tuneLayout,
	}
	layoutFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "tick limit per combination")
	tuneCmd.Flags().StringArrayVarP(&tuneParams, "param", "p", nil, "swept parameter, name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "link_strain", "metric to minimize")
	tuneCmd.Flags().IntVar(&tuneWorkers, "workers", 0, "parallel evaluations (default NumCPU)")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or write one out",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}
	presetsCmd.Flags().StringVarP(&presetOut, "output", "o", "", "write the preset to this file")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark tick throughput",
		RunE:  benchLayout,
	}
	benchCmd.Flags().IntVar(&benchTicks, "ticks", 100, "ticks per case")

	scriptCmd := &cobra.Command{
		Use:   "script [graph] [scenario]",
		Short: "replay scripted edits against a layout",
		Args:  cobra.ExactArgs(2),
		RunE:  runScript,
	}
	layoutFlags(scriptCmd)
	scriptCmd.Flags().BoolVar(&saveScript, "save", false, "save the final layout as a run")

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, listCmd, plotCmd, exportCmd, presetsCmd, benchCmd, tuneCmd, scriptCmd)
	return rootCmd
}

// resolveConfig picks the preset, the config file or the defaults, in that
// order, then applies flags the user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (have %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
	case configFile != "":
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("many-body") {
		cfg.Forces.ManyBody = manyBody
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = seed
	}
	if flags.Changed("name") {
		cfg.Run.Name = runName
	}
	if flags.Changed("max-ticks") {
		cfg.Run.MaxTicks = maxTicks
	}
	if flags.Changed("fps") {
		cfg.Run.TickRate = frameRate
	}
	if flags.Changed("addr") {
		cfg.Run.Addr = addr
	}
	if flags.Changed("data") {
		cfg.Run.OutputDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runsDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.DefaultOutputDir
}

func newEngine(logger *log.Logger, cfg *config.Config, doc *graphio.Document) (*engine.Engine, error) {
	pipeline, err := config.BuildPipeline(cfg)
	if err != nil {
		return nil, err
	}
	eng := engine.New(engine.WithLogger(logger), engine.WithPipeline(pipeline))
	if err := eng.Initialize(doc.Nodes, doc.Links, cfg.Simulation); err != nil {
		return nil, err
	}
	return eng, nil
}

func graphName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func runLayout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	doc, err := graphio.Load(args[0])
	if err != nil {
		return err
	}
	graph := graphName(args[0])

	var db *sqlite.Positions
	if positionsDB != "" {
		db, err = sqlite.Open(positionsDB)
		if err != nil {
			return err
		}
		defer db.Close()
		pos, err := db.Load(ctx, graph)
		if err != nil {
			return err
		}
		if len(pos) > 0 {
			logger.Info("warm start", "graph", graph, "positions", len(pos))
			doc = graphio.WithPositions(doc, pos)
		}
	}

	eng, err := newEngine(logger, cfg, doc)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(1)
	observed := metrics.Standard()
	eng.OnTick(func(snap dynamo.Snapshot) {
		recorder.Observe(snap)
		for _, m := range observed {
			m.Observe(snap)
		}
	})

	limit := cfg.Run.MaxTicks
	if limit == 0 {
		limit = config.DefaultMaxTicks
	}
	logger.Info("running layout", "graph", graph, "nodes", eng.Len(), "links", len(doc.Links), "maxTicks", limit)
	prog := newProgress(logger)
	start := time.Now()
	ticks := eng.Step(limit)
	elapsed := time.Since(start)
	stabilized := eng.Status() == cooling.Stabilized
	prog.done("layout finished", "ticks", ticks, "stabilized", stabilized, "alpha", eng.Alpha())
	if !stabilized {
		logger.Warn("tick limit reached before stabilization", "maxTicks", limit)
	}

	snap := eng.Export()
	st := storage.New(cfg.Run.OutputDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(&storage.Run{
		Meta: storage.RunMetadata{
			Name:       cfg.Run.Name,
			Graph:      graph,
			Stabilized: stabilized,
			Elapsed:    elapsed,
			Config:     eng.Config(),
			Metrics:    metrics.Values(observed),
		},
		Layout:  snap,
		History: recorder.Samples(),
	})
	if err != nil {
		return err
	}

	if db != nil {
		if err := db.Save(ctx, graph, snap); err != nil {
			return err
		}
	}
	if layoutOut != "" {
		f, err := os.Create(layoutOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := graphio.WriteLayout(f, snap); err != nil {
			return err
		}
	}

	fmt.Printf("run saved: %s\n", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	logger := loggerFromContext(cmd.Context())
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	doc, err := graphio.Load(args[0])
	if err != nil {
		return err
	}
	// Log lines would tear the alternate screen.
	quiet := newLogger(os.Stderr, log.ErrorLevel)
	eng, err := newEngine(quiet, cfg, doc)
	if err != nil {
		return err
	}
	logger.Debug("starting live view", "nodes", eng.Len(), "fps", cfg.Run.TickRate)
	return viz.Run(cmd.Context(), viz.NewModel(eng, graphName(args[0]), cfg.Run.TickRate, perFrame))
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(runsDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGRAPH\tTIME\tNODES\tLINKS\tTICKS\tSTABLE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
			run.ID,
			run.Graph,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Nodes,
			run.Links,
			run.Ticks,
			run.Stabilized,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(runsDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	history, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return errors.New("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("graph: %s\n", meta.Graph)
	fmt.Printf("samples: %d\n\n", len(history))

	alpha := make([]float64, len(history))
	energy := make([]float64, len(history))
	for i, s := range history {
		alpha[i] = s.Alpha
		energy[i] = s.Energy
	}
	for _, series := range []struct {
		caption string
		data    []float64
	}{
		{"alpha", alpha},
		{"kinetic energy", energy},
	} {
		fmt.Println(asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(runsDir())
	run, err := st.LoadRun(args[0])
	if err != nil {
		return err
	}
	logger := loggerFromContext(cmd.Context())
	if svgOut != "" {
		f, err := os.Create(svgOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.LayoutSVG(f, run.Layout, viz.GetTheme(svgTheme), svgWidth, svgHeight); err != nil {
			return err
		}
		logger.Info("drew layout", "run", run.Meta.ID, "path", svgOut)
	}
	if exportOut == "" {
		return store.WriteJSON(os.Stdout, run)
	}
	if err := store.ExportJSON(exportOut, run); err != nil {
		return err
	}
	logger.Info("exported", "run", run.Meta.ID, "path", exportOut)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	doc, err := graphio.Load(args[0])
	if err != nil {
		return err
	}
	scenario, err := automation.LoadScenario(args[1])
	if err != nil {
		return err
	}
	eng, err := newEngine(logger, cfg, doc)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(1)
	eng.OnTick(recorder.Observe)

	logger.Info("running scenario", "name", scenario.Name, "steps", len(scenario.Steps))
	results, runErr := automation.RunScenario(ctx, eng, scenario, logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tACTION\tTICKS\tSTATUS\tALPHA\tNODES")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%.4f\t%d\n", r.Index, r.Action, r.Ticks, r.Status, r.Alpha, r.Nodes)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !saveScript {
		return nil
	}

	observed := metrics.Standard()
	snap := eng.Export()
	for _, m := range observed {
		m.Observe(snap)
	}
	st := storage.New(cfg.Run.OutputDir)
	if err := st.Init(); err != nil {
		return err
	}
	name := scenario.Name
	if name == "" {
		name = cfg.Run.Name
	}
	runID, err := st.Save(&storage.Run{
		Meta: storage.RunMetadata{
			Name:       name,
			Graph:      graphName(args[0]),
			Stabilized: eng.Status() == cooling.Stabilized,
			Config:     eng.Config(),
			Metrics:    metrics.Values(observed),
		},
		Layout:  snap,
		History: recorder.Samples(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("run saved: %s\n", runID)
	return nil
}

func tuneLayout(cmd *cobra.Command, args []string) error {
	logger := loggerFromContext(cmd.Context())
	if len(tuneParams) == 0 {
		return errors.New("at least one --param is required")
	}
	params := make([]optim.Param, 0, len(tuneParams))
	for _, raw := range tuneParams {
		p, err := optim.ParseParam(raw)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	doc, err := graphio.Load(args[0])
	if err != nil {
		return err
	}
	quiet := newLogger(os.Stderr, log.ErrorLevel)
	eval, err := optim.LayoutEval(doc, cfg, tuneMetric, cfg.Run.MaxTicks, quiet)
	if err != nil {
		return err
	}

	grid := optim.NewGridSearch(params).WithWorkers(tuneWorkers)
	logger.Info("tuning", "graph", graphName(args[0]), "combinations", len(grid.Combinations()), "metric", tuneMetric)
	prog := newProgress(logger)
	best, results, err := grid.Search(cmd.Context(), eval)
	if err != nil && !errors.Is(err, optim.ErrNoResult) {
		return err
	}
	prog.done("search finished")

	names := grid.Names()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(tuneMetric))
	for _, r := range results {
		for _, n := range names {
			fmt.Fprintf(w, "%g\t", r.Params[n])
		}
		if r.Err != nil {
			fmt.Fprintf(w, "error: %v\n", r.Err)
			continue
		}
		fmt.Fprintf(w, "%.4f\n", r.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if best.Params == nil {
		return optim.ErrNoResult
	}

	fmt.Printf("\nbest %s=%.4f with", tuneMetric, best.Score)
	for _, n := range names {
		fmt.Printf(" %s=%g", n, best.Params[n])
	}
	fmt.Println()
	return nil
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMANY-BODY\tMAX TICKS\tCOLLIDE")
		for _, name := range config.ListPresets() {
			p := config.GetPreset(name)
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", name, p.Forces.ManyBody, p.Run.MaxTicks, p.Forces.Collision)
		}
		return w.Flush()
	}

	p := config.GetPreset(args[0])
	if p == nil {
		return fmt.Errorf("unknown preset %q", args[0])
	}
	if presetOut == "" {
		fmt.Printf("%s: many_body=%s theta=%.2f max_ticks=%d alpha_decay=%.4f velocity_decay=%.2f\n",
			args[0], p.Forces.ManyBody, p.Forces.Theta, p.Run.MaxTicks,
			p.Simulation.AlphaDecay, p.Simulation.VelocityDecay)
		return nil
	}
	return config.Save(presetOut, p)
}

func benchLayout(cmd *cobra.Command, args []string) error {
	quiet := newLogger(os.Stderr, log.ErrorLevel)
	sizes := []int{100, 500, 1000}
	modes := []string{config.ManyBodyExact, config.ManyBodyApprox}

	fmt.Printf("benchmarking %d ticks per case\n\n", benchTicks)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODES\tLINKS\tMANY-BODY\tTICKS\tTIME\tTICKS/SEC")

	for _, n := range sizes {
		doc := graphio.Random(n, 2*n, 42)
		for _, mode := range modes {
			cfg := config.DefaultConfig()
			cfg.Forces.ManyBody = mode
			// Slow cooling keeps every case running for the full tick count.
			cfg.Simulation.AlphaDecay = 1e-4

			eng, err := newEngine(quiet, cfg, doc)
			if err != nil {
				return err
			}
			start := time.Now()
			ticks := eng.Step(benchTicks)
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%v\t%.0f\n",
				n, len(doc.Links), mode, ticks, elapsed.Round(time.Microsecond),
				float64(ticks)/elapsed.Seconds())
		}
	}
	return w.Flush()
}
