package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/shelepuginivan/panel"
	"github.com/shelepuginivan/panel/config"
	"github.com/shelepuginivan/panel/sni"
	"github.com/shelepuginivan/panel/widget"
)

var (
	configPath string
	display    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "panel",
	Short: "Status panel and system tray for X11",
	Long: `Panel draws a row of status widgets (mail, network, CPU, battery, clock)
and hosts system tray icons in a small window meant to be swallowed by a dock.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd.ErrOrStderr(), verbose)

		cfg, err := loadConfig(cmd)
		if err != nil {
			logger.Error("panel: failed to load config", "err", err)
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("panel: exiting", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	rootCmd.Flags().StringVarP(&display, "display", "d", "", "X display to connect to")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")

	rootCmd.AddCommand(versionCmd)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("display") {
		cfg.Display = display
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = os.Getenv("MAIL")
	}

	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	conn, err := panel.Dial(cfg.Display)
	if err != nil {
		return err
	}
	defer conn.Close()

	window, err := conn.CreatePanel(uint16(cfg.Height))
	if err != nil {
		return err
	}

	pixels, pixmap, err := conn.NewSharedBuffer(window, uint16(cfg.Width), uint16(cfg.Height))
	if err != nil {
		return err
	}

	surface := panel.NewSurface(conn, window, pixmap, pixels, cfg.Width, cfg.Height, cfg.Height)

	tray := panel.NewTray(conn, panel.TrayOptions{
		Window:     window,
		Root:       conn.Root(),
		Screen:     conn.ScreenIndex(),
		IconSize:   cfg.Height,
		Background: conn.BlackPixel(),
		Redraw:     surface.Present,
		Logger:     logger,
	})

	if err := tray.Init(); err != nil {
		return err
	}

	producers, closeWidgets, err := newProducers(cfg, logger)
	if err != nil {
		return err
	}
	defer closeWidgets()

	timer, err := panel.NewTimer(cfg.Interval)
	if err != nil {
		return err
	}
	defer timer.Stop()

	loop := panel.NewLoop(panel.LoopOptions{
		Conn:      conn,
		Tray:      tray,
		Surface:   surface,
		Producers: producers,
		Ticks:     timer.C,
		Clock:     panel.NewClock(cfg.Interval),
		Logger:    logger,
	})

	logger.Info("panel: running", "widgets", cfg.Widgets, "interval", timer.Period())

	return loop.Run(ctx)
}

// newProducers builds the widgets listed in cfg, in order. The returned
// function releases the resources they hold.
func newProducers(cfg *config.Config, logger *slog.Logger) ([]panel.Producer, func(), error) {
	var (
		producers []panel.Producer
		closers   []io.Closer
	)

	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for _, name := range cfg.Widgets {
		switch name {
		case config.WidgetStatusNotifier:
			sn, err := newStatusNotifierHost(logger)
			if err != nil {
				logger.Warn("panel: status notifier disabled", "err", err)
				continue
			}
			closers = append(closers, sn)
			producers = append(producers, widget.NewStatusNotifier(sn.host))

		case config.WidgetMailbox:
			mailbox, err := widget.NewMailbox(cfg.Mailbox, logger)
			if err != nil {
				logger.Warn("panel: mailbox disabled", "err", err)
				continue
			}
			closers = append(closers, mailbox)
			producers = append(producers, mailbox)

		case config.WidgetNetLoad:
			producers = append(producers, widget.NewNetLoad(widget.ProcNetDev))

		case config.WidgetCPULoad:
			producers = append(producers, widget.NewCPULoad(widget.ProcStat))

		case config.WidgetBattery:
			producers = append(producers, widget.NewBattery(cfg.Battery))

		case config.WidgetClock:
			producers = append(producers, widget.NewClock())

		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown widget %q", name)
		}
	}

	return producers, closeAll, nil
}

// statusNotifier is the session bus side of the status notifier widget.
type statusNotifier struct {
	host *sni.Host

	// Released in reverse order by Close.
	closers []io.Closer
}

// newStatusNotifierHost connects to the session bus and registers a host.
// A watcher is started unless the session already has one.
func newStatusNotifierHost(logger *slog.Logger) (*statusNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	sn := &statusNotifier{closers: []io.Closer{conn}}

	watcher := sni.NewWatcher(conn)
	ownWatcher := true
	if err := watcher.Listen(); err != nil {
		logger.Debug("panel: using existing status notifier watcher", "err", err)
		ownWatcher = false
	} else {
		sn.closers = append(sn.closers, watcher)
	}

	host := sni.NewHost(conn, os.Getpid())
	if err := host.Listen(); err != nil {
		sn.Close()
		return nil, err
	}
	sn.host = host
	sn.closers = append(sn.closers, host)

	logger.Info("panel: status notifier host registered", "name", host.Name(), "own_watcher", ownWatcher)

	return sn, nil
}

// Close unregisters the host and the watcher, then closes the connection.
func (sn *statusNotifier) Close() error {
	var errs []error
	for i := len(sn.closers) - 1; i >= 0; i-- {
		errs = append(errs, sn.closers[i].Close())
	}
	return errors.Join(errs...)
}
