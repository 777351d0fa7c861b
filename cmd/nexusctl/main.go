// nexusctl is a command-line client for a remote time-series storage
// broker: it lists origin contents, streams points, manipulates source
// tags and bulk-dumps streams to files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/INLOpen/nexusctl/broker"
	"github.com/INLOpen/nexusctl/compress"
	"github.com/INLOpen/nexusctl/config"
	"github.com/INLOpen/nexusctl/core"
	"github.com/INLOpen/nexusctl/fetch"
	"github.com/INLOpen/nexusctl/output"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(os.Args[2:])
	case "read":
		err = runRead(os.Args[2:])
	case "add-tags":
		err = runAddTags(os.Args[2:])
	case "remove-tags":
		err = runRemoveTags(os.Args[2:])
	case "fetch":
		err = runFetch(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, broker.ErrTimeout) {
			fmt.Fprintf(os.Stderr, "nexusctl: broker timeout: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "nexusctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: nexusctl <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  list        - Enumerate an origin's addresses and source tags")
	fmt.Println("  read        - Stream points for an address over a time range")
	fmt.Println("  add-tags    - Merge tags into an address's source dictionary")
	fmt.Println("  remove-tags - Remove tag keys from an address")
	fmt.Println("  fetch       - Dump point streams for many addresses to files")
	fmt.Println("\nUse 'nexusctl <command> -h' for more information on a specific command.")
}

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	configPath string
	addr       string
	origin     string
	username   string
	format     string
}

func registerGlobal(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", "nexusctl.yaml", "Path to the YAML configuration file.")
	fs.StringVar(&g.addr, "addr", "", "Broker address, overriding the configuration.")
	fs.StringVar(&g.origin, "origin", "", "Origin to operate on, overriding the configuration.")
	fs.StringVar(&g.username, "username", "", "Username for authentication.")
	fs.StringVar(&g.format, "format", "", "Output format: text or json.")
	return g
}

// app bundles the pieces every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	out    *output.Writer
}

func setup(g *globalFlags) (*app, error) {
	cfg, err := config.LoadFile(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.addr != "" {
		cfg.Broker.Address = g.addr
	}
	if g.origin != "" {
		cfg.Broker.Origin = g.origin
	}
	if g.username != "" {
		cfg.Broker.Username = g.username
		cfg.Broker.Password = "" // A username from the flag always prompts.
	}
	if g.format != "" {
		cfg.Output.Format = g.format
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	logger, closer, err := createLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		closer: closer,
		out:    output.NewWriter(os.Stdout, format),
	}, nil
}

func (a *app) close() {
	if a.closer != nil {
		a.closer.Close()
	}
}

// createLogger creates a slog.Logger based on the logging configuration.
func createLogger(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var out io.Writer
	var closer io.Closer
	switch strings.ToLower(cfg.Output) {
	case "stderr", "":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	case "file":
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("log output is 'file' but no file path is specified")
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		out = file
		closer = file
	case "none":
		out = io.Discard
	default:
		return nil, nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

func (a *app) dial(ctx context.Context) (*broker.Client, error) {
	timeout, err := a.cfg.DialTimeout()
	if err != nil {
		return nil, err
	}

	if err := a.resolvePassword(); err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return broker.Dial(dialCtx, broker.Options{
		Address:  a.cfg.Broker.Address,
		Username: a.cfg.Broker.Username,
		Password: a.cfg.Broker.Password,
		Logger:   a.logger,
	})
}

// resolvePassword prompts for a password when a username is set but no
// password is configured. Must run before any concurrent dials.
func (a *app) resolvePassword() error {
	if a.cfg.Broker.Username == "" || a.cfg.Broker.Password != "" {
		return nil
	}
	password, err := promptPassword(a.cfg.Broker.Username)
	if err != nil {
		return err
	}
	a.cfg.Broker.Password = password
	return nil
}

func promptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func (a *app) requireOrigin() (string, error) {
	if a.cfg.Broker.Origin == "" {
		return "", fmt.Errorf("an origin is required (set -origin or broker.origin in the config)")
	}
	return a.cfg.Broker.Origin, nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	g := registerGlobal(fs)
	fs.Parse(args)

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.close()

	origin, err := a.requireOrigin()
	if err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(ctx, broker.ContentsListRequest{Origin: origin}); err != nil {
		return err
	}
	for {
		resp, err := conn.Receive(ctx)
		if err != nil {
			return err
		}
		if _, done := resp.(broker.EndOfContents); done {
			return nil
		}
		if err := a.out.Response(resp); err != nil {
			return err
		}
	}
}

func runRead(args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	g := registerGlobal(fs)
	addrStr := fs.String("address", "", "Address to read, in hexadecimal.")
	start := fs.Int64("start", 0, "Start of the time range in nanoseconds (inclusive).")
	end := fs.Int64("end", time.Now().UnixNano(), "End of the time range in nanoseconds (exclusive).")
	extended := fs.Bool("extended", false, "Request the extended point format.")
	fs.Parse(args)

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.close()

	origin, err := a.requireOrigin()
	if err != nil {
		return err
	}
	addr, err := core.ParseAddress(*addrStr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var req broker.Request
	if *extended {
		req = broker.ExtendedReadRequest{Origin: origin, Address: addr, Start: *start, End: *end}
	} else {
		req = broker.SimpleReadRequest{Origin: origin, Address: addr, Start: *start, End: *end}
	}
	if err := conn.Send(ctx, req); err != nil {
		return err
	}
	for {
		resp, err := conn.Receive(ctx)
		if err != nil {
			return err
		}
		if _, done := resp.(broker.EndOfStream); done {
			return nil
		}
		if err := a.out.Response(resp); err != nil {
			return err
		}
	}
}

func runAddTags(args []string) error {
	fs := flag.NewFlagSet("add-tags", flag.ExitOnError)
	g := registerGlobal(fs)
	addrStr := fs.String("address", "", "Address to tag, in hexadecimal.")
	tagsStr := fs.String("tags", "", "Tags to merge, as 'key1:value1,key2:value2'.")
	fs.Parse(args)

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.close()

	origin, err := a.requireOrigin()
	if err != nil {
		return err
	}
	addr, err := core.ParseAddress(*addrStr)
	if err != nil {
		return err
	}
	tags, err := core.ParseSourceDict(*tagsStr)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		return fmt.Errorf("-tags is required")
	}

	return a.manipulate(broker.UpdateTagsRequest{Origin: origin, Address: addr, Tags: tags})
}

func runRemoveTags(args []string) error {
	fs := flag.NewFlagSet("remove-tags", flag.ExitOnError)
	g := registerGlobal(fs)
	addrStr := fs.String("address", "", "Address to untag, in hexadecimal.")
	keysStr := fs.String("keys", "", "Comma-separated tag keys to remove.")
	fs.Parse(args)

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.close()

	origin, err := a.requireOrigin()
	if err != nil {
		return err
	}
	addr, err := core.ParseAddress(*addrStr)
	if err != nil {
		return err
	}
	if *keysStr == "" {
		return fmt.Errorf("-keys is required")
	}
	keys := strings.Split(*keysStr, ",")

	return a.manipulate(broker.RemoveTagsRequest{Origin: origin, Address: addr, Keys: keys})
}

// manipulate sends one tag-manipulation request and prints its ack.
func (a *app) manipulate(req broker.Request) error {
	ctx := context.Background()
	conn, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(ctx, req); err != nil {
		return err
	}
	resp, err := conn.Receive(ctx)
	if err != nil {
		return err
	}
	if _, ok := resp.(broker.Ack); !ok {
		return fmt.Errorf("unexpected response type %T", resp)
	}
	return a.out.Response(resp)
}

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	g := registerGlobal(fs)
	addrsStr := fs.String("addresses", "", "Comma-separated hexadecimal addresses to fetch.")
	start := fs.Int64("start", 0, "Start of the time range in nanoseconds (inclusive).")
	end := fs.Int64("end", time.Now().UnixNano(), "End of the time range in nanoseconds (exclusive).")
	dir := fs.String("dir", "", "Output directory, overriding the configuration.")
	compression := fs.String("compress", "", "Compression codec: none, snappy, lz4 or zstd.")
	workers := fs.Int("workers", 0, "Number of addresses to fetch concurrently.")
	fs.Parse(args)

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.close()

	origin, err := a.requireOrigin()
	if err != nil {
		return err
	}
	if *addrsStr == "" {
		return fmt.Errorf("-addresses is required")
	}
	var addrs []core.Address
	for _, s := range strings.Split(*addrsStr, ",") {
		addr, err := core.ParseAddress(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		addrs = append(addrs, addr)
	}

	if *dir == "" {
		*dir = a.cfg.Fetch.Dir
	}
	if *compression == "" {
		*compression = a.cfg.Fetch.Compression
	}
	if *workers == 0 {
		*workers = a.cfg.Fetch.Workers
	}
	codec, err := compress.ForName(*compression)
	if err != nil {
		return err
	}
	if err := a.resolvePassword(); err != nil {
		return err
	}

	ctx := context.Background()
	return fetch.Run(ctx, fetch.Options{
		Origin:    origin,
		Addresses: addrs,
		Start:     *start,
		End:       *end,
		Dir:       *dir,
		Codec:     codec,
		Workers:   *workers,
		Logger:    a.logger,
		Open: func(ctx context.Context, _ string) (broker.Conn, error) {
			return a.dial(ctx)
		},
	})
}
