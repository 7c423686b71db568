package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bookcache/internal/cli/output"
	"github.com/yndnr/bookcache/internal/infra/buildinfo"
)

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show usage and entry counts per tier",
		Action: showStats,
	}
}

func showStats(c *cli.Context) error {
	cache, err := openCache(c)
	if err != nil {
		return err
	}

	stats, err := cache.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	if ParseGlobalFlags(c).Output == output.FormatTable {
		return render(c, statsView(stats))
	}
	return render(c, stats)
}

// PurgeCommand returns the purge command.
func PurgeCommand() *cli.Command {
	return &cli.Command{
		Name:   "purge",
		Usage:  "Remove expired and corrupt entries from both tiers",
		Action: purgeExpired,
	}
}

func purgeExpired(c *cli.Context) error {
	cache, err := openCache(c)
	if err != nil {
		return err
	}

	report, purgeErr := cache.PurgeExpired(c.Context)
	view := purgeView(report)

	if ParseGlobalFlags(c).Output == output.FormatTable {
		if err := render(c, view); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "removed %d entries\n", view.summary().Removed)
	} else if err := render(c, view.summary()); err != nil {
		return err
	}

	if purgeErr != nil {
		return fmt.Errorf("purge: %w", purgeErr)
	}
	return nil
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return render(c, buildinfo.Get())
		},
	}
}
