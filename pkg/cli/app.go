package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mchmarny/chefskiss/pkg/config"
	"github.com/mchmarny/chefskiss/pkg/logging"
	"github.com/mchmarny/chefskiss/pkg/net"
	"github.com/mchmarny/chefskiss/pkg/runtime"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "chefskiss"
	appConfigKey = "app-config"
	envPrefix    = "CHEFSKISS_"
	envFileName  = ".env"

	formatJSON = "json"
	formatYAML = "yaml"

	flagDebug   = "debug"
	flagConfig  = "config"
	flagModel   = "model"
	flagData    = "data"
	flagCities  = "cities"
	flagWorkers = "workers"
	flagFormat  = "format"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	// command output, swapped in tests
	stdout io.Writer = os.Stdout

	// directory holding the default config file, swapped in tests
	configDir = getHomeDir
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)
	loadEnvFile(envFileName)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	*config.Config
	Debug bool
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

// globalFlags returns new flag values on every call; urfave flags keep
// their parsed state so they cannot be shared between runs.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Usage:   "Prints verbose logs (optional, default: false)",
			Sources: cli.EnvVars(envPrefix + "DEBUG"),
		},
		&cli.StringFlag{
			Name:    flagConfig,
			Usage:   "Path to the YAML config file (optional, default: ~/.chefskiss/config.yaml)",
			Sources: cli.EnvVars(envPrefix + "CONFIG"),
		},
		&cli.StringFlag{
			Name:    flagModel,
			Usage:   "Model artifact path or http(s) URL",
			Sources: cli.EnvVars(envPrefix + "MODEL"),
		},
		&cli.StringFlag{
			Name:    flagData,
			Usage:   "Dataset source: CSV file, SQLite snapshot, postgres:// DSN or http(s) URL",
			Sources: cli.EnvVars(envPrefix + "DATA"),
		},
		&cli.StringFlag{
			Name:    flagCities,
			Usage:   "Optional zip_code,city,state mapping (same source forms as --data)",
			Sources: cli.EnvVars(envPrefix + "CITIES"),
		},
		&cli.IntFlag{
			Name:    flagWorkers,
			Usage:   "Number of locations scored concurrently (default: number of CPUs)",
			Sources: cli.EnvVars(envPrefix + "WORKERS"),
		},
		&cli.StringFlag{
			Name:    flagFormat,
			Usage:   "Output format [json, yaml]",
			Value:   formatJSON,
			Sources: cli.EnvVars(envPrefix + "FORMAT"),
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Restaurant location opportunity scoring",
		Metadata:              map[string]any{},
		Flags:                 globalFlags(),
		Commands: []*cli.Command{
			newServerCmd(),
			newScoreCmd(),
			newCitiesCmd(),
			newImportCmd(),
			newVerifyCmd(),
			newAuthCmd(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			debug := cmd.Bool(flagDebug)
			if debug {
				initLogging(true)
			}

			outputFormat = formatJSON
			f := cmd.String(flagFormat)
			if f == formatYAML || f == "yml" {
				outputFormat = formatYAML
			}

			cfg, err := resolveConfig(cmd)
			if err != nil {
				return ctx, err
			}
			if debug {
				cfg.LogLevel = "debug"
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Config: cfg,
				Debug:  debug,
			}
			return ctx, nil
		},
	}
}

// resolveConfig layers flags and env vars over the config file. Without
// --config the file in the app home dir is used, created with defaults on
// first run.
func resolveConfig(cmd *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if p := cmd.String(flagConfig); p != "" {
		cfg, err = config.Load(p)
	} else {
		cfg, err = config.ReadOrCreate(configDir())
	}
	if err != nil {
		return nil, err
	}

	if cmd.IsSet(flagModel) {
		cfg.Model = cmd.String(flagModel)
	}
	if cmd.IsSet(flagData) {
		cfg.Data = cmd.String(flagData)
	}
	if cmd.IsSet(flagCities) {
		cfg.Cities = cmd.String(flagCities)
	}
	if cmd.IsSet(flagWorkers) {
		cfg.Workers = cmd.Int(flagWorkers)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid workers: %d", cfg.Workers)
	}
	return cfg, nil
}

// runtimeSources maps the config onto runtime sources. The stored token is
// only looked up when an artifact is remote.
func runtimeSources(cfg *appConfig) runtime.Sources {
	src := runtime.Sources{
		Model:    cfg.Model,
		Data:     cfg.Data,
		Cities:   cfg.Cities,
		Workers:  cfg.Workers,
		CacheDir: cfg.CacheDir,
	}
	if net.IsRemote(src.Model) || net.IsRemote(src.Data) || net.IsRemote(src.Cities) {
		src.Token = getArtifactToken()
	}
	return src
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)
}

// loadEnvFile exports the variables in path when it exists. Variables
// already set in the environment win.
func loadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("error loading env file", "path", path, "error", err)
		}
		return
	}
	slog.Debug("env file loaded", "path", path)
}

func getHomeDir() string {
	dir, created, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	if created {
		slog.Debug("created app dir", "path", dir)
	}
	return dir
}

func encode(v any) error {
	if outputFormat == formatYAML {
		return yaml.NewEncoder(stdout).Encode(v)
	}
	e := json.NewEncoder(stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
