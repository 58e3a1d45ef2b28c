package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/mchmarny/chefskiss/pkg/logging"
	"github.com/mchmarny/chefskiss/pkg/runtime"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
)

const (
	flagPort    = "port"
	flagAddress = "address"
	flagOrigin  = "origin"
)

func newServerCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start the scoring HTTP API",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    flagPort,
				Usage:   "Port on which the server will listen (default: from config, 8000)",
				Sources: cli.EnvVars(envPrefix + "PORT"),
			},
			&cli.StringFlag{
				Name:    flagAddress,
				Usage:   "Address on which the server will listen (default: from config, 0.0.0.0)",
				Sources: cli.EnvVars(envPrefix + "ADDRESS"),
			},
			&cli.StringSliceFlag{
				Name:    flagOrigin,
				Usage:   "Allowed CORS origin, can be specified multiple times (default: *)",
				Sources: cli.EnvVars(envPrefix + "ORIGINS"),
			},
		},
	}
}

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	port := cfg.Port
	if cmd.IsSet(flagPort) {
		port = cmd.Int(flagPort)
	}
	host := cfg.Address
	if cmd.IsSet(flagAddress) {
		host = cmd.String(flagAddress)
	}
	origins := cfg.Origins
	if cmd.IsSet(flagOrigin) {
		origins = cmd.StringSlice(flagOrigin)
	}

	slog.SetDefault(logging.NewServerLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	address := net.JoinHostPort(host, strconv.Itoa(port))
	gate := &runtime.Gate{}

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(gate, origins),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(done)

	failed := make(chan error, 2)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- fmt.Errorf("error starting server: %w", err)
		}
	}()

	slog.Info("server started", "address", fmt.Sprintf("http://%s", address))

	loadCtx, cancelLoad := context.WithCancel(ctx)
	defer cancelLoad()

	go func() {
		rt, err := runtime.Load(loadCtx, runtimeSources(cfg))
		if err != nil {
			failed <- fmt.Errorf("error loading model and data: %w", err)
			return
		}
		gate.Set(rt)
		slog.Info("startup complete",
			"locations", rt.Store.Len(),
			"cities", rt.Resolver.Len(),
			"subtypes", len(feature.Subtypes()),
			"explainer", rt.ExplainerAvailable())
	}()

	var runErr error
	select {
	case <-done:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server")
	case runErr = <-failed:
		slog.Error("server stopping", "error", runErr)
	}
	cancelLoad()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return runErr
}

func makeRouter(gate *runtime.Gate, origins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", healthHandler(gate))
	mux.HandleFunc("POST /predict", predictHandler(gate))
	mux.HandleFunc("GET /cities", citiesHandler(gate))
	mux.HandleFunc("GET /subtypes", subtypesHandler())
	mux.HandleFunc("GET /zip-codes", zipCodesHandler(gate))

	return withRequestID(withAccessLog(withCORS(origins, mux)))
}
