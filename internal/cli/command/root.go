package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bookcache/internal/cli/connection"
	"github.com/yndnr/bookcache/internal/cli/output"
	"github.com/yndnr/bookcache/internal/core/service"
	"github.com/yndnr/bookcache/internal/infra/buildinfo"
	"github.com/yndnr/bookcache/internal/server/bootstrap"
)

// Cache is the set of operations the commands run against.
// *service.StorageManager and *connection.RemoteCache implement it.
type Cache interface {
	Store(ctx context.Context, key string, data any, dataType string, opts ...service.StoreOption) service.StoreResult
	Retrieve(ctx context.Context, key, expectedDataType string) service.RetrieveResult
	Remove(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) (service.Stats, error)
	PurgeExpired(ctx context.Context) (service.PurgeReport, error)
}

const (
	metaCache  = "cache"
	metaCloser = "closer"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "bookcache-cli",
		Usage:   "Inspect and manage a bookcache store",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			PutCommand(),
			GetCommand(),
			RemoveCommand(),
			ClearCommand(),
			StatsCommand(),
			PurgeCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
		After: closeCache,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file used to open the tiers locally",
			EnvVars: []string{"BOOKCACHE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "bookcache-server address (e.g. localhost:5080); overrides --config",
			EnvVars: []string{"BOOKCACHE_SERVER"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log storage activity to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Server  string
	Output  output.Format
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Config:  c.String("config"),
		Server:  c.String("server"),
		Output:  format,
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// openCache returns the cache for this invocation, opening it on first use.
func openCache(c *cli.Context) (Cache, error) {
	if cache, ok := c.App.Metadata[metaCache].(Cache); ok {
		return cache, nil
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}

	flags := ParseGlobalFlags(c)
	if flags.Server != "" {
		cache := connection.NewRemoteCache(connection.NewHTTPClient(flags.Server))
		c.App.Metadata[metaCache] = cache
		return cache, nil
	}

	cache, closer, err := openLocal(c.Context, flags, c.App.ErrWriter)
	if err != nil {
		return nil, err
	}
	c.App.Metadata[metaCache] = cache
	c.App.Metadata[metaCloser] = closer
	return cache, nil
}

func openLocal(ctx context.Context, flags *GlobalFlags, errOut io.Writer) (Cache, io.Closer, error) {
	logFlags := map[string]any{"log.level": "error", "log.format": "text"}
	if flags.Verbose {
		logFlags["log.level"] = "debug"
	}

	cfg, err := bootstrap.LoadConfig(flags.Config, logFlags)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, slogger, err := bootstrap.NewLogger(cfg.Log, errOut)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	slogger = slogger.With(slog.String("component", "cli"))

	tiers, err := bootstrap.OpenTiers(ctx, cfg.Storage, slogger, nil)
	if err != nil {
		return nil, nil, err
	}
	return bootstrap.NewManager(cfg.Storage, tiers, log, nil), tiers, nil
}

// closeCache releases a locally opened tier set.
func closeCache(c *cli.Context) error {
	closer, ok := c.App.Metadata[metaCloser].(io.Closer)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, metaCloser)
	delete(c.App.Metadata, metaCache)
	return closer.Close()
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}
