package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/danmuck/stsctl/internal/config"
	"github.com/danmuck/stsctl/internal/logging"
	"github.com/danmuck/stsctl/internal/protocol"
	"github.com/danmuck/stsctl/internal/protocol/frame"
	"github.com/danmuck/stsctl/internal/protocol/session"
	"github.com/danmuck/stsctl/internal/spectrum"
	"github.com/rs/zerolog"
)

type options struct {
	configPath string
	host       string
	port       int
	values     bool
	list       bool
	repl       bool
	wait       time.Duration
	readTO     time.Duration
	set        map[string]bool
}

var errUsage = errors.New("usage: stsctl [flags] <command> [parameter]")

func main() {
	opts, args, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	lc := logging.DefaultConfig(logging.ProfileRuntime)
	lc.App = "stsctl"
	lc.Level = zerolog.WarnLevel
	logging.Apply(lc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "stsctl: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(argv []string, stderr io.Writer) (options, []string, error) {
	var opts options
	fs := flag.NewFlagSet("stsctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "TOML config file ([daemon] section is used)")
	fs.StringVar(&opts.host, "host", session.DefaultHost, "daemon host")
	fs.IntVar(&opts.port, "port", session.DefaultPort, "daemon port")
	fs.BoolVar(&opts.values, "values", false, "parse the reply as whitespace separated numbers")
	fs.BoolVar(&opts.list, "list", false, "list known commands and exit")
	fs.BoolVar(&opts.repl, "repl", false, "interactive console")
	fs.DurationVar(&opts.readTO, "read-timeout", time.Second, "idle time that ends a reply")
	fs.DurationVar(&opts.wait, "wait", 0, "poll get_version until the daemon answers or this long passes")
	fs.Usage = func() {
		fmt.Fprintln(stderr, errUsage.Error())
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return options{}, nil, err
	}
	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, fs.Args(), nil
}

// daemonConfig layers explicit flags over the config file over defaults.
func daemonConfig(opts options) (session.Config, error) {
	cfg := session.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return session.Config{}, err
		}
		cfg = loaded.Daemon
	}
	if opts.set["host"] {
		cfg.Host = opts.host
	}
	if opts.set["port"] {
		cfg.Port = opts.port
	}
	if opts.set["read-timeout"] {
		cfg.ReadTimeout = opts.readTO
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts options, args []string, out io.Writer) error {
	cfg, err := daemonConfig(opts)
	if err != nil {
		return err
	}
	client := protocol.NewClient(cfg)

	if opts.list {
		return printCommands(client, out)
	}
	if opts.wait > 0 {
		if err := waitForDaemon(ctx, client, opts.wait, out); err != nil {
			return err
		}
		if len(args) == 0 && !opts.repl {
			return nil
		}
	}
	if opts.repl {
		return runREPL(ctx, client, NewLineEditor(), out)
	}
	if len(args) == 0 {
		return errUsage
	}
	return execute(ctx, client, args, opts.values, out)
}

func waitForDaemon(ctx context.Context, client *protocol.Client, wait time.Duration, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	err := session.Poll(ctx, session.DefaultBackoff(), 0, func(attempt int) error {
		return client.Ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("daemon at %s not ready: %w", client.Config().Address(), err)
	}
	fmt.Fprintf(out, "daemon at %s is ready\n", client.Config().Address())
	return nil
}

func printCommands(client *protocol.Client, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPCODE\tNAME\tGROUP")
	for _, cmd := range client.Registry().All() {
		fmt.Fprintf(tw, "0x%02X\t%s\t%s\n", cmd.Opcode, cmd.Name, cmd.Group)
	}
	return tw.Flush()
}

// execute runs args[0] with the rest joined as its parameter.
func execute(ctx context.Context, client *protocol.Client, args []string, values bool, out io.Writer) error {
	p := frame.NoParam
	if len(args) > 1 {
		p = frame.Param(strings.Join(args[1:], " "))
	}
	reply, err := client.Execute(ctx, args[0], p)
	if err != nil {
		return err
	}
	switch {
	case !reply.Awaited:
		fmt.Fprintf(out, "sent %s\n", reply.Command)
	case reply.Silent():
		fmt.Fprintln(out, "(no response)")
	case values:
		nums, err := spectrum.ParseValues(reply.Payload)
		if err != nil {
			return err
		}
		for _, v := range nums {
			fmt.Fprintln(out, v)
		}
	default:
		fmt.Fprintln(out, strings.TrimRight(string(reply.Payload), "\r\n\x00"))
	}
	return nil
}
