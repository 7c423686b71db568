package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bookcache/internal/core/service"
)

// PutCommand returns the put command.
func PutCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Aliases:   []string{"set"},
		Usage:     "Store a JSON value under a key",
		ArgsUsage: "KEY [JSON]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Data type label checked on read",
			},
			&cli.DurationFlag{
				Name:    "expiry",
				Aliases: []string{"e"},
				Usage:   "Entry lifetime (default from configuration)",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Write attempts per tier when it is full (default from configuration)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read the value from a file, or - for stdin",
			},
			&cli.BoolFlag{
				Name:  "string",
				Usage: "Store the argument as a JSON string instead of parsing it",
			},
		},
		Action: putEntry,
	}
}

func putEntry(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return errors.New("put: KEY is required")
	}

	value, err := readValue(c)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	var opts []service.StoreOption
	if d := c.Duration("expiry"); d != 0 {
		if d < 0 {
			return fmt.Errorf("put %s: expiry must be positive", key)
		}
		opts = append(opts, service.WithExpiry(d))
	}
	if c.IsSet("retries") {
		n := c.Int("retries")
		if n <= 0 {
			return fmt.Errorf("put %s: retries must be positive", key)
		}
		opts = append(opts, service.WithRetryAttempts(n))
	}

	cache, err := openCache(c)
	if err != nil {
		return err
	}

	res := cache.Store(c.Context, key, value, c.String("type"), opts...)
	if !res.Success {
		return fmt.Errorf("put %s: %s", key, res.Error)
	}

	return render(c, entryView{Key: key, Type: c.String("type"), Sources: res.Sources})
}

// readValue returns the payload from --file or the second argument.
func readValue(c *cli.Context) (json.RawMessage, error) {
	var raw []byte
	switch path := c.String("file"); {
	case path == "-":
		b, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = b
	case c.NArg() >= 2:
		raw = []byte(c.Args().Get(1))
	default:
		return nil, errors.New("a value argument or --file is required")
	}

	if c.Bool("string") {
		b, err := json.Marshal(string(raw))
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("value is not valid JSON (use --string to store text)")
	}
	return json.RawMessage(raw), nil
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read the value stored under a key",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Expected data type",
			},
		},
		Action: getEntry,
	}
}

func getEntry(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return errors.New("get: KEY is required")
	}

	cache, err := openCache(c)
	if err != nil {
		return err
	}

	res := cache.Retrieve(c.Context, key, c.String("type"))
	if !res.Success {
		return fmt.Errorf("get %s: %s", key, res.Error)
	}

	return render(c, entryView{
		Key:       key,
		Type:      c.String("type"),
		Source:    res.Source,
		Recovered: res.Recovered,
		Data:      res.Data,
	})
}

// RemoveCommand returns the rm command.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Aliases:   []string{"del"},
		Usage:     "Remove keys from every tier",
		ArgsUsage: "KEY [KEY...]",
		Action:    removeEntries,
	}
}

func removeEntries(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("rm: at least one KEY is required")
	}

	cache, err := openCache(c)
	if err != nil {
		return err
	}

	var errs []error
	for _, key := range c.Args().Slice() {
		if err := cache.Remove(c.Context, key); err != nil {
			errs = append(errs, fmt.Errorf("rm %s: %w", key, err))
			continue
		}
		fmt.Fprintf(c.App.Writer, "removed %s\n", key)
	}
	return errors.Join(errs...)
}

// ClearCommand returns the clear command.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every entry from both tiers",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Confirm the clear",
			},
		},
		Action: clearEntries,
	}
}

func clearEntries(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("clear: refusing to remove every entry without --yes")
	}

	cache, err := openCache(c)
	if err != nil {
		return err
	}
	if err := cache.ClearAll(c.Context); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	fmt.Fprintln(c.App.Writer, "cleared all tiers")
	return nil
}
