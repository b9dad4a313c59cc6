package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	domaindetect "modelgate-server-go/internal/domain/detect"
	domainimage "modelgate-server-go/internal/domain/image"
	domainrun "modelgate-server-go/internal/domain/run"
	platformconfig "modelgate-server-go/internal/platform/config"
	platformerrors "modelgate-server-go/internal/platform/errors"
	platformlogging "modelgate-server-go/internal/platform/logging"
	platformobservability "modelgate-server-go/internal/platform/observability"
	"modelgate-server-go/internal/providers/openaicompat"
	"modelgate-server-go/internal/providers/workersai"
	httptransport "modelgate-server-go/internal/transport/http"
	httpmodelrun "modelgate-server-go/internal/transport/http/modelrun"
	httppersondetect "modelgate-server-go/internal/transport/http/persondetect"
	httpstatus "modelgate-server-go/internal/transport/http/status"

	"golang.org/x/sync/errgroup"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Execute   stepFn
}

type appState struct {
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	runner                domainrun.Runner
	invoker               *domainrun.Invoker
}

// Run drives the whole service lifecycle: configuration, dependency wiring,
// the HTTP server, and graceful shutdown on SIGINT/SIGTERM.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(platformerrors.CodeRunException, "config/logger not initialised")
	}

	logBootstrapGraph(steps, logger)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag("Bootstrap", "observability shutdown failed: %v", err)
			}
		}()
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("Bootstrap", "service stopped")
	logger.Close()
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "ai:init-runner",
			Title:     "Initialise model runner",
			DependsOn: []string{"logging:init-provider"},
			Execute:   initRunnerStep,
		},
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(platformerrors.CodeRunException, "nil bootstrap state")
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.CodeRunException,
					fmt.Sprintf("%s: dependency %s not satisfied", step.ID, dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.CodeRunException,
				fmt.Sprintf("%s: missing execute function", step.ID),
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.AiRunError
			if errors.As(err, &typed) {
				return err
			}
			return platformerrors.Wrap(
				platformerrors.CodeRunException,
				fmt.Sprintf("%s: bootstrap step failed", step.ID),
				err,
			)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("Bootstrap", "initialisation overview")
	for _, step := range steps {
		logger.InfoTag("Bootstrap", step.Title)
	}
	logger.InfoTag("Bootstrap", "starting services")
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.CodeRunException, "config:load: failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(platformerrors.CodeRunException, "logging:init-provider: config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.CodeRunException, "logging:init-provider: failed to initialise logging", err)
	}

	state.logger = logger
	logger.InfoTag("Bootstrap", "logging ready [%s] %s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.logger == nil || state.config == nil {
		return platformerrors.New(platformerrors.CodeRunException, "observability:setup-hooks: config/logger not initialised")
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.CodeRunException, "observability:setup-hooks: failed to setup observability", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initRunnerStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(platformerrors.CodeRunException, "ai:init-runner: missing config/logger")
	}

	runner, err := buildRunner(state.config, state.logger)
	if err != nil {
		return err
	}
	state.runner = runner

	invoker, err := domainrun.NewInvoker(runner, state.logger)
	if err != nil {
		return err
	}
	state.invoker = invoker

	state.logger.InfoTag("Bootstrap", "model runner ready, provider %s", state.config.AI.Provider)
	return nil
}

func buildRunner(config *platformconfig.Config, logger *platformlogging.Logger) (domainrun.Runner, error) {
	switch strings.ToLower(strings.TrimSpace(config.AI.Provider)) {
	case "", "workersai":
		return workersai.New(workersai.Config{
			BaseURL:   config.AI.BaseURL,
			AccountID: config.AI.AccountID,
			APIToken:  config.AI.APIToken,
		}, logger)
	case "openai":
		return openaicompat.New(openaicompat.Config{
			BaseURL: config.AI.BaseURL,
			APIKey:  config.AI.APIToken,
		}, logger)
	default:
		return nil, platformerrors.New(
			platformerrors.CodeRunException,
			fmt.Sprintf("ai:init-runner: unknown provider %q", config.AI.Provider),
		)
	}
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:         config,
		Logger:         logger,
		AuthMiddleware: httptransport.APIKeyAuth(config.Server.APIKey, logger),
		StaticRoot:     config.Web.StaticDir,
	})
	if err != nil {
		return nil, err
	}

	ingestor := domainimage.NewIngestor(
		logger,
		time.Duration(config.Detection.FetchTimeoutMs)*time.Millisecond,
	)

	detector, err := domaindetect.NewService(
		state.invoker,
		config.Detection,
		time.Duration(config.AI.TimeoutMs)*time.Millisecond,
		logger,
	)
	if err != nil {
		return nil, err
	}

	runService, err := httpmodelrun.NewService(config, state.invoker, logger)
	if err != nil {
		logger.ErrorTag("HTTP", "model-run service init failed: %v", err)
		return nil, err
	}

	detectService, err := httppersondetect.NewService(config, detector, ingestor, logger)
	if err != nil {
		logger.ErrorTag("HTTP", "person-detection service init failed: %v", err)
		return nil, err
	}

	statusService, err := httpstatus.NewService(config, logger)
	if err != nil {
		logger.ErrorTag("HTTP", "status service init failed: %v", err)
		return nil, err
	}

	runService.Register(httpRouter.Secured)
	detectService.Register(httpRouter.Secured)
	statusService.Register(httpRouter.Secured)

	httpServer := &http.Server{
		Addr:    config.Server.IP + ":" + strconv.Itoa(config.Server.Port),
		Handler: httpRouter.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "gin server listening on http://localhost:%d", config.Server.Port)
		logger.InfoTag("HTTP", "model run endpoint: http://localhost:%d/api/ai/run", config.Server.Port)
		logger.InfoTag("HTTP", "person detection endpoint: http://localhost:%d/api/ai/detect-person", config.Server.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server stopped gracefully")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("Bootstrap", "received signal %v, cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("Bootstrap", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("Bootstrap", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("Bootstrap", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
