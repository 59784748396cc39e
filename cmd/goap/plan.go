package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gxo-labs/goap/internal/engine"
	"github.com/gxo-labs/goap/internal/events"
	"github.com/gxo-labs/goap/internal/logger"
	intMetrics "github.com/gxo-labs/goap/internal/metrics"
	"github.com/gxo-labs/goap/internal/scenario"
	"github.com/gxo-labs/goap/internal/tracing"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goapevents "github.com/gxo-labs/goap/pkg/goap/v1/events"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
)

type planOptions struct {
	file          string
	agents        []string
	logLevel      string
	logFormat     string
	workers       int
	retryAttempts int
	retryDelay    time.Duration
	dotDir        string
	output        string
	metricsAddr   string
}

func newPlanCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan -f <scenario>",
		Short: "Plan every agent of a scenario",
		Long: `Loads the scenario, plans all of its agents concurrently and prints the
chosen goal and action sequence of each. Exits 1 when any agent ends up
without a plan.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.file == "" {
				return usageError("-f/--file is required")
			}
			if opts.workers <= 0 {
				return usageError("--workers must be positive, got %d", opts.workers)
			}
			if !validOutput(opts.output) {
				return usageError("--output must be one of text, json, yaml, got '%s'", opts.output)
			}
			if opts.retryAttempts < 0 {
				return usageError("--retry-attempts cannot be negative, got %d", opts.retryAttempts)
			}
			code := runPlan(opts, cmd.Flags().Changed, stdout, stderr)
			if code != ExitSuccess {
				return &exitError{code: code}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "Path to the scenario YAML file (required)")
	f.StringSliceVar(&opts.agents, "agent", nil, "Plan only the named agents (repeatable)")
	f.StringVar(&opts.logLevel, "log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", DefaultLogFmt, "Log format (text, json)")
	f.IntVar(&opts.workers, "workers", runtime.NumCPU(), "Number of agents planned concurrently")
	f.IntVar(&opts.retryAttempts, "retry-attempts", 1, "Planning attempts per agent, overriding the scenario's retry block")
	f.DurationVar(&opts.retryDelay, "retry-delay", 0, "Delay between attempts (default: the scenario's, else the largest goal error delay)")
	f.StringVar(&opts.dotDir, "dot", "", "Write each agent's search graph as <agent>.dot into this directory")
	f.StringVarP(&opts.output, "output", "o", DefaultOutput, "Output format (text, json, yaml)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address until interrupted")
	return cmd
}

func runPlan(opts *planOptions, changed func(string) bool, stdout, stderr io.Writer) int {
	log := logger.NewLogger(opts.logLevel, opts.logFormat, stderr)
	log.Infof("Loading scenario: %s", opts.file)

	s, built, err := loadAndBuild(log, opts.file)
	if err != nil {
		return ExitFailure
	}
	agents, err := selectAgents(built, opts.agents)
	if err != nil {
		log.Errorf("%v", err)
		return ExitUsageError
	}

	settings := s.Settings()
	if opts.dotDir != "" {
		settings.DebugPlan = true
	}
	retryCfg := s.RetrySettings()
	if changed("retry-attempts") {
		retryCfg.Attempts = max(opts.retryAttempts, 1)
	}
	if changed("retry-delay") {
		retryCfg.Delay = opts.retryDelay
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	tracerProvider, err := tracing.NewProviderFromEnv(runCtx, log)
	if err != nil {
		log.Errorf("Failed to initialize tracing: %v", err)
		return ExitFailure
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if shutdownErr := tracerProvider.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Warnf("Error shutting down tracer provider: %v", shutdownErr)
		}
	}()

	metricsProvider := intMetrics.NewProcessRegistryProvider()
	goalsRejected, err := events.NewGoalsRejectedCounter(metricsProvider.Registry())
	if err != nil {
		log.Errorf("Failed to register metrics: %v", err)
		return ExitFailure
	}
	searchesFailed, err := events.NewSearchesFailedCounter(metricsProvider.Registry())
	if err != nil {
		log.Errorf("Failed to register metrics: %v", err)
		return ExitFailure
	}

	eventBus := events.NewChannelEventBus(DefaultEventBusSize, log)
	listener := events.NewMetricsEventListener(eventBus, goalsRejected, searchesFailed, log)
	listener.OnEvent(func(ev goapevents.Event) { logEvent(log, ev) })
	var listenerDone sync.WaitGroup
	listenerDone.Add(1)
	go func() {
		defer listenerDone.Done()
		listener.Start(runCtx)
	}()

	pool, err := engine.NewPool[string, any](opts.workers, log,
		goapv1.WithSettings(settings),
		goapv1.WithEventBus(eventBus),
		goapv1.WithMetricsRegistryProvider(metricsProvider),
		goapv1.WithTracerProvider(tracerProvider),
	)
	if err != nil {
		log.Errorf("Failed to create planner pool: %v", err)
		eventBus.Close()
		listenerDone.Wait()
		return ExitFailure
	}

	var server *http.Server
	if opts.metricsAddr != "" {
		server, err = serveMetrics(opts.metricsAddr, metricsProvider, log)
		if err != nil {
			log.Errorf("Failed to start metrics server: %v", err)
			eventBus.Close()
			listenerDone.Wait()
			return ExitFailure
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var receivedSignal os.Signal
	var sigMu sync.Mutex
	var sigWG sync.WaitGroup
	sigWG.Add(1)
	go func() {
		defer sigWG.Done()
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
			sigMu.Lock()
			receivedSignal = sig
			sigMu.Unlock()
			cancelRun()
		case <-runCtx.Done():
			log.Debugf("Signal handler exiting because run context is done.")
		}
	}()
	defer sigWG.Wait()
	defer cancelRun()

	log.Infof("Planning %d agent(s) with %d worker(s)...", len(agents), opts.workers)
	plannerAgents := scenario.AsPlannerAgents(agents)
	var results []engine.Result[string, any]
	var planErr error
	if retryCfg.Attempts > 1 {
		results, planErr = pool.PlanAllWithRetry(runCtx, plannerAgents, retryCfg)
	} else {
		results, planErr = pool.PlanAll(runCtx, plannerAgents)
	}
	eventBus.Close()
	listenerDone.Wait()

	if opts.dotDir != "" {
		if err := writeDebugGraphs(opts.dotDir, results); err != nil {
			log.Errorf("Failed to write search graphs: %v", err)
		}
	}

	exitCode := ExitSuccess
	if err := writeReports(stdout, opts.output, buildReports(results)); err != nil {
		log.Errorf("Failed to write report: %v", err)
		exitCode = ExitFailure
	}
	for _, res := range results {
		if res.Err != nil {
			exitCode = ExitFailure
		}
	}
	if dropped := eventBus.Dropped(); dropped > 0 {
		log.Warnf("%d planner event(s) were dropped.", dropped)
	}

	if server != nil && planErr == nil {
		log.Infof("Planning finished. Serving metrics on %s until interrupted.", opts.metricsAddr)
		<-runCtx.Done()
	}
	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Error shutting down metrics server: %v", err)
		}
	}

	sigMu.Lock()
	finalSignal := receivedSignal
	sigMu.Unlock()
	return determineExitCode(exitCode, planErr, finalSignal, server != nil, log)
}

func determineExitCode(exitCode int, planErr error, sig os.Signal, serving bool, log goaplog.Logger) int {
	if planErr == nil {
		if exitCode == ExitSuccess {
			log.Infof("All agents planned successfully.")
		} else {
			log.Warnf("Some agents could not be planned.")
		}
		if serving {
			// an interrupt is the normal way to stop serving metrics
			return exitCode
		}
		if sig == nil {
			return exitCode
		}
	}
	if errors.Is(planErr, context.Canceled) || sig != nil {
		switch sig {
		case syscall.SIGINT:
			log.Warnf("Planning interrupted by signal: SIGINT")
			return ExitSigInt
		case syscall.SIGTERM:
			log.Warnf("Planning terminated by signal: SIGTERM")
			return ExitSigTerm
		}
	}
	log.Errorf("Planning stopped: %v", planErr)
	return ExitFailure
}

// selectAgents keeps the agents named in only, in scenario order. An empty
// filter keeps every agent.
func selectAgents(agents []*scenario.Agent, only []string) ([]*scenario.Agent, error) {
	if len(only) == 0 {
		return agents, nil
	}
	var selected []*scenario.Agent
	for _, agent := range agents {
		if slices.Contains(only, agent.Name()) {
			selected = append(selected, agent)
		}
	}
	for _, name := range only {
		if !slices.ContainsFunc(selected, func(a *scenario.Agent) bool { return a.Name() == name }) {
			return nil, fmt.Errorf("agent '%s' not found in scenario", name)
		}
	}
	return selected, nil
}

func logEvent(log goaplog.Logger, ev goapevents.Event) {
	switch ev.Type {
	case goapevents.GoalSelected:
		log.Debugf("[%s] agent '%s' selected goal '%s'", ev.PlanID, ev.AgentName, ev.GoalName)
	case goapevents.GoalRejected:
		log.Debugf("[%s] agent '%s' rejected goal '%s': %v", ev.PlanID, ev.AgentName, ev.GoalName, ev.Payload["reason"])
	case goapevents.AStarFailed:
		log.Debugf("[%s] agent '%s' found no path to goal '%s' after %v iteration(s)", ev.PlanID, ev.AgentName, ev.GoalName, ev.Payload["iterations"])
	}
}

func writeDebugGraphs(dir string, results []engine.Result[string, any]) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, res := range results {
		if res.Agent == nil || res.DebugGraph == "" {
			continue
		}
		path := filepath.Join(dir, dotFileName(res.Agent.Name()))
		if err := os.WriteFile(path, []byte(res.DebugGraph), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func dotFileName(agent string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, agent)
	return name + ".dot"
}

func serveMetrics(addr string, provider *intMetrics.PrometheusRegistryProvider, log goaplog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
	log.Infof("Serving metrics on http://%s/metrics", ln.Addr())
	return server, nil
}
