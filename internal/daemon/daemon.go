package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harun/copydesk/internal/config"
	"github.com/harun/copydesk/internal/logger"
	"github.com/harun/copydesk/internal/observability"
	"github.com/harun/copydesk/internal/telegram"
	"github.com/harun/copydesk/internal/tracing"
	"github.com/harun/copydesk/pkg/commandqueue"
	"github.com/harun/copydesk/pkg/completion"
	"github.com/harun/copydesk/pkg/models"
	"github.com/harun/copydesk/pkg/session"
	"github.com/harun/copydesk/pkg/workflow"
)

// Daemon represents the copydesk bot service
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	queue      *commandqueue.CommandQueue
	store      *session.Store
	completer  models.Completer
	policy     *models.Policy
	controller *workflow.Controller

	// Telegram
	telegramBot     *telegram.Bot
	telegramCmd     *telegram.Commands
	telegramHandler *telegram.Handler

	// Metrics endpoint, nil when disabled
	metricsServer   *http.Server
	metricsListener net.Listener

	// Internal
	eventLoop *EventLoop
	router    *Router

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status describes whether the daemon is running and for how long
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}

var newTelegramBot = func(cfg *config.TelegramConfig, log *logger.Logger) (*telegram.Bot, error) {
	return telegram.New(cfg, log)
}

var newCompleter = func(cfg *config.Config, log *logger.Logger) (models.Completer, error) {
	return completion.NewClient(cfg.CompletionOptions(), log.GetZerolog())
}

// New creates a new daemon instance from a validated config
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()

	d := &Daemon{
		config: cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		} else {
			d.tracingEnabled = true
			log.Info().Msg("Tracing initialized successfully")
		}
	}

	if err := d.initializeCoreModules(); err != nil {
		d.abort()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	if err := d.initializeTelegram(); err != nil {
		d.abort()
		return nil, fmt.Errorf("failed to initialize telegram: %w", err)
	}

	eventLoop, err := NewEventLoop(d)
	if err != nil {
		d.abort()
		return nil, err
	}
	d.eventLoop = eventLoop

	return d, nil
}

func (d *Daemon) abort() {
	d.cancel()
	if d.queue != nil {
		_ = d.queue.Close()
	}
	if d.tracingEnabled {
		_ = tracing.ShutdownOpenTelemetry(context.Background())
		d.tracingEnabled = false
	}
}

// initializeCoreModules creates the queue, store, completion client and
// workflow controller
func (d *Daemon) initializeCoreModules() error {
	d.queue = commandqueue.New()
	d.logger.Info().Msg("Command queue initialized")

	d.store = session.NewStore()
	d.logger.Info().Msg("Session store initialized")

	policy, err := d.config.ModelPolicy()
	if err != nil {
		return fmt.Errorf("failed to build model policy: %w", err)
	}
	d.policy = policy

	completer, err := newCompleter(d.config, d.logger)
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}
	d.completer = completer
	d.logger.Info().
		Str("provider", d.config.Completion.Provider).
		Strs("draft_models", policy.Candidates(models.TaskDraft)).
		Strs("revise_models", policy.Candidates(models.TaskRevise)).
		Msg("Completion client initialized")

	controller, err := workflow.New(workflow.Config{
		Store:     d.store,
		Policy:    d.policy,
		Completer: d.completer,
		Logger:    d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create workflow controller: %w", err)
	}
	d.controller = controller

	return nil
}

// initializeTelegram connects the bot and routes its commands and text
// messages into the workflow
func (d *Daemon) initializeTelegram() error {
	bot, err := newTelegramBot(&d.config.Telegram, d.logger)
	if err != nil {
		return err
	}
	d.telegramBot = bot
	d.telegramCmd = telegram.NewCommands(bot)
	d.telegramHandler = telegram.NewHandler(bot)

	d.router = NewRouter(RouterConfig{
		Controller: d.controller,
		Queue:      d.queue,
		Replier:    bot,
		Logger:     d.logger.GetZerolog(),
		WarnAfter:  time.Duration(d.config.Queue.WarnAfterMs) * time.Millisecond,
	})
	d.router.RegisterCommands(d.telegramCmd)
	d.telegramHandler.SetOnMessage(d.router.HandleText)

	bot.SetCommandHandler(d.telegramCmd)
	bot.SetMessageHandler(d.telegramHandler)

	return nil
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Starting copydesk daemon")

	if err := d.startMetricsServer(); err != nil {
		d.setStopped()
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// Failing to publish the menu does not stop the bot from working
	if err := d.telegramCmd.PublishCommands(commandOrder...); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish bot commands")
	}

	if err := d.telegramBot.Start(d.ctx); err != nil {
		d.stopMetricsServer()
		d.setStopped()
		return fmt.Errorf("failed to start telegram bot: %w", err)
	}
	logger.Info().Msg("Telegram bot started")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.eventLoop.Run(d.ctx)
	}()

	logger.Info().Msg("Daemon started successfully")

	return nil
}

func (d *Daemon) setStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func (d *Daemon) startMetricsServer() error {
	if d.config.Metrics.Addr == "" {
		return nil
	}

	listener, err := net.Listen("tcp", d.config.Metrics.Addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !d.telegramBot.IsRunning() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("telegram polling stopped"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	d.metricsListener = listener
	d.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	d.logger.Info().Str("addr", listener.Addr().String()).Msg("Metrics server listening")
	return nil
}

func (d *Daemon) stopMetricsServer() {
	if d.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.metricsServer.Shutdown(ctx); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop metrics server")
	}
	d.metricsServer = nil
}

// MetricsAddr returns the address the metrics server listens on, if any
func (d *Daemon) MetricsAddr() string {
	if d.metricsListener == nil {
		return ""
	}
	return d.metricsListener.Addr().String()
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping copydesk daemon")

	// No new updates after this point
	if err := d.telegramBot.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop telegram bot")
	}

	d.eventLoop.HandleShutdown()

	// Cancels in-flight completions and rejects queued commands
	if err := d.queue.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close command queue")
	}
	logger.Info().Msg("Command queue stopped")

	d.stopMetricsServer()

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	if d.tracingEnabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
		cancel()
		d.tracingEnabled = false
	}

	logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetQueue returns the command queue
func (d *Daemon) GetQueue() *commandqueue.CommandQueue {
	return d.queue
}

// GetSessionStore returns the session store
func (d *Daemon) GetSessionStore() *session.Store {
	return d.store
}

// GetController returns the workflow controller
func (d *Daemon) GetController() *workflow.Controller {
	return d.controller
}

// GetRouter returns the command router
func (d *Daemon) GetRouter() *Router {
	return d.router
}

// GetTelegramBot returns the Telegram bot
func (d *Daemon) GetTelegramBot() *telegram.Bot {
	return d.telegramBot
}
