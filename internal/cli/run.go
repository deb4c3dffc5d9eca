package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/beatlink/internal/config"
	"github.com/roach88/beatlink/internal/controller"
	"github.com/roach88/beatlink/internal/metrics"
	"github.com/roach88/beatlink/internal/peer"
	"github.com/roach88/beatlink/internal/session"
	"github.com/roach88/beatlink/internal/status"
	"github.com/roach88/beatlink/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	Tempo      float64
	Quantum    float64
	Sync       bool
	Journal    string
	Metrics    string
	Peers      int
	Restore    bool
	Play       bool
	Interval   time.Duration
	Duration   time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Join a session and print its timeline",
		Long: `Run one session participant and print its state at a fixed interval:
enabled flag, peer count, quantum, start/stop sync, tempo, transport,
beat and a phase bar.

Flags override the config file. With --peers, the participant joins an
in-process session together with that many simulated peers.

Examples:
  linkhut run
  linkhut run --tempo 98 --quantum 3 --play
  linkhut run --config linkhut.toml --journal ./linkhut.db --metrics-addr :9090
  linkhut run --peers 2 --start-stop-sync --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHut(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().Float64Var(&opts.Tempo, "tempo", 0, "initial tempo in bpm")
	cmd.Flags().Float64Var(&opts.Quantum, "quantum", 0, "beats per phase cycle")
	cmd.Flags().BoolVar(&opts.Sync, "start-stop-sync", false, "share transport with peers")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite commit journal")
	cmd.Flags().StringVar(&opts.Metrics, "metrics-addr", "", "serve /metrics and /session on this address")
	cmd.Flags().IntVar(&opts.Peers, "peers", 0, "number of simulated in-process peers")
	cmd.Flags().BoolVar(&opts.Restore, "restore", false, "start from the latest journaled state")
	cmd.Flags().BoolVar(&opts.Play, "play", false, "start transport at beat 0")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 100*time.Millisecond, "status print interval")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")

	return cmd
}

// resolveConfig loads the config file, if any, and applies flags the user
// set explicitly.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("tempo") {
		cfg.Tempo = opts.Tempo
	}
	if flags.Changed("quantum") {
		cfg.Quantum = opts.Quantum
	}
	if flags.Changed("start-stop-sync") {
		cfg.StartStopSync = opts.Sync
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.Journal
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.Metrics
	}

	cfg.Normalize()
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runHut(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions)
	slog.SetDefault(logger)

	if opts.Interval <= 0 {
		return NewExitError(ExitCommandError, "--interval must be positive")
	}
	if opts.Peers < 0 {
		return NewExitError(ExitCommandError, "--peers must not be negative")
	}

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid config", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	m := metrics.New("linkhut")
	ctlOpts := []controller.Option{
		controller.WithMetrics(m),
		controller.WithLogger(logger),
		controller.WithPollInterval(cfg.Poll()),
		controller.WithStartStopSync(cfg.StartStopSync),
	}

	if cfg.Journal != "" {
		journal, err := store.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logger.Error("error closing journal", "error", err)
			}
		}()
		ctlOpts = append(ctlOpts, controller.WithJournal(journal))
		if opts.Restore {
			ctlOpts = append(ctlOpts, controller.WithRestore())
		}
		logger.Info("journal ready", "path", cfg.Journal)
	}

	var sim *simulation
	if opts.Peers > 0 {
		sim = newSimulation(logger)
		defer sim.close()
		ctlOpts = append(ctlOpts, controller.WithEngine(sim.bus.Join(cfg.PeerName)))
	}

	ctl, err := controller.New(cfg.Tempo, ctlOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create controller", err)
	}
	defer func() {
		if err := ctl.Close(); err != nil {
			logger.Error("error closing controller", "error", err)
		}
	}()

	ctl.SetPeerCountCallback(func(n int) { logger.Info("peers changed", "peers", n) })
	ctl.SetTempoCallback(func(bpm float64) { logger.Info("tempo changed", "bpm", bpm) })
	ctl.SetTransportCallback(func(playing bool) { logger.Info("transport changed", "playing", playing) })

	if sim != nil {
		if err := sim.join(opts.Peers, cfg); err != nil {
			return WrapExitError(ExitFailure, "failed to start simulated peers", err)
		}
	}
	if err := ctl.Enable(cfg.Enabled); err != nil {
		return WrapExitError(ExitFailure, "failed to enable peer sync", err)
	}

	if opts.Play {
		now := ctl.Clock().Micros()
		ctl.WithAppSessionState(func(st *session.State) {
			st.SetIsPlayingAndRequestBeatAtTime(true, now, 0, cfg.Quantum)
		})
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           status.NewRouter(ctl, m, cfg.Quantum, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("status server listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("status server shutdown", "error", err)
			}
		}()
	}

	logger.Info("linkhut running", "tempo", cfg.Tempo, "quantum", cfg.Quantum, "enabled", cfg.Enabled, "peers", opts.Peers)
	if err := hutLoop(ctx, ctl, cfg.Quantum, opts, cmd); err != nil {
		return WrapExitError(ExitFailure, "status output failed", err)
	}

	logger.Info("linkhut stopped")
	return nil
}

// hutLoop prints a status line every interval until ctx ends.
func hutLoop(ctx context.Context, ctl *controller.Controller, quantum float64, opts *RunOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		line := readHutLine(ctl, ctl.Clock().Micros(), quantum)
		if err := writeHutLine(w, opts.Format, line); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// simulation is an in-process session with simulated peers.
type simulation struct {
	bus    *peer.Bus
	peers  []*controller.Controller
	logger *slog.Logger
}

// newSimulation starts a bus. It outlives the run context so that peers
// can leave it cleanly during shutdown.
func newSimulation(logger *slog.Logger) *simulation {
	bus := peer.NewBus(peer.WithBusLogger(logger))
	go func() {
		if err := bus.Run(context.Background()); err != nil {
			logger.Error("peer bus stopped", "error", err)
		}
	}()
	return &simulation{bus: bus, logger: logger}
}

// join starts n simulated peers, each enabled in the bus session.
func (s *simulation) join(n int, cfg config.Config) error {
	plog := s.logger.With("simulated", true)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("%s-peer-%d", cfg.PeerName, i)
		p, err := controller.New(cfg.Tempo,
			controller.WithEngine(s.bus.Join(name)),
			controller.WithLogger(plog),
			controller.WithPollInterval(cfg.Poll()),
			controller.WithStartStopSync(cfg.StartStopSync),
		)
		if err != nil {
			return err
		}
		s.peers = append(s.peers, p)
		if err := p.Enable(true); err != nil {
			return err
		}
	}
	return nil
}

// close stops the simulated peers, then the bus.
func (s *simulation) close() {
	for _, p := range s.peers {
		if err := p.Close(); err != nil {
			s.logger.Error("error closing simulated peer", "error", err)
		}
	}
	s.bus.Stop()
	<-s.bus.Done()
}
