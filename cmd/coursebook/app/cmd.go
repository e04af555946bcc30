// Package app implements the coursebook command line.
package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coursebook/internal/config"
	"coursebook/internal/logger"
	"coursebook/internal/notify"
	"coursebook/internal/provider"
	"coursebook/internal/repository/sqlite"
	"coursebook/internal/service"
)

// Version is overridden at build time with -ldflags "-X ..."
var Version = "dev"

// Options are the persistent flags shared by every command
type Options struct {
	configPath string
	dbPath     string
	logLevel   string
}

// Env is everything a command needs to talk to the course store
type Env struct {
	Config   *config.Config
	Log      *zap.Logger
	Resolver *notify.Resolver
	Provider *provider.Provider
	Service  *service.CourseService
}

// Close releases the store and flushes the logger
func (e *Env) Close() error {
	err := e.Provider.Close()
	_ = e.Log.Sync()
	return err
}

// LoadConfig reads the config file and applies flag overrides
func (o *Options) LoadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, _, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// Setup loads config and wires logger, store, resolver, provider and
// service. The database itself opens lazily on first use.
func (o *Options) Setup() (*Env, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	store := sqlite.New(sqlite.Options{
		Path:          cfg.Database.Path,
		SchemaVersion: cfg.Database.SchemaVersion,
		BusyTimeout:   cfg.Database.BusyTimeout.Duration(),
		Logger:        log.Named("sqlite"),
	})
	resolver := notify.NewResolver(log.Named("notify"))
	p := provider.New(store, resolver, log.Named("provider"))

	return &Env{
		Config:   cfg,
		Log:      log,
		Resolver: resolver,
		Provider: p,
		Service:  service.NewCourseService(p, log.Named("service")),
	}, nil
}

// New builds the root command
func New() *cobra.Command {
	opts := &Options{}

	maincmd := &cobra.Command{
		Use:   "coursebook <cmd> <args> <options>",
		Short: "keep a personal course schedule",
		Long: `
coursebook stores course entries (name, room, teacher, time, day) in a
local SQLite database. Use the subcommands to list and edit entries, or
"serve" to expose them over HTTP with a live change stream.
`,
		SilenceUsage: true,
	}

	flags := maincmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default: search "+config.EnvConfigPath+", ./"+config.ConfigFileName+", XDG, /etc)")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	maincmd.AddCommand(NewServe(opts))
	maincmd.AddCommand(NewList(opts))
	maincmd.AddCommand(NewShow(opts))
	maincmd.AddCommand(NewAdd(opts))
	maincmd.AddCommand(NewEdit(opts))
	maincmd.AddCommand(NewDelete(opts))
	maincmd.AddCommand(NewClear(opts))
	maincmd.AddCommand(NewExport(opts))
	maincmd.AddCommand(NewImport(opts))
	maincmd.AddCommand(NewWatch(opts))
	maincmd.AddCommand(NewVersion())
	return maincmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid course id %q", arg)
	}
	return id, nil
}
