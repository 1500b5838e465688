// showcasectl administers a showcase catalog directly through its store
// backend, using the same environment configuration as the server. It is
// meant for first-time setup, credential recovery and backups.
//
// Usage:
//
//	showcasectl init
//	showcasectl rotate [--username NAME] [--new-username NAME]
//	showcasectl export [--pretty]
//	showcasectl events [--q TEXT] [--date DD-MM-YYYY] [--when upcoming|past]
//	showcasectl delete-all --yes
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/iliyamo/event-showcase/internal/codec"
	"github.com/iliyamo/event-showcase/internal/config"
	"github.com/iliyamo/event-showcase/internal/credential"
	"github.com/iliyamo/event-showcase/internal/logging"
	"github.com/iliyamo/event-showcase/internal/middleware"
	"github.com/iliyamo/event-showcase/internal/queue"
	"github.com/iliyamo/event-showcase/internal/repository"
	"github.com/iliyamo/event-showcase/internal/service"
	"github.com/iliyamo/event-showcase/internal/store"
)

func main() {
	_ = godotenv.Load(".env")
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

var commands = map[string]command{
	"init":       {"write the default catalog and bootstrap the admin credential", runInit},
	"rotate":     {"replace the admin username and/or password", runRotate},
	"export":     {"print the catalog as JSON", runExport},
	"events":     {"list events", runEvents},
	"delete-all": {"remove every event", runDeleteAll},
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(os.Stderr)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.close()
	return cmd.run(ctx, env, args[1:])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: showcasectl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range []string{"init", "rotate", "export", "events", "delete-all"} {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].summary)
	}
	tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The store backend is selected by the same environment variables as the server.")
}

// environment is the opened backend plus the components built on it.
type environment struct {
	cfg    config.Config
	logger *slog.Logger
	rdb    *redis.Client
	kv     repository.KV
	store  *store.Store
	creds  *credential.Store
	pub    *queue.Publisher
}

func openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, getLevel(cfg.LogLevel), cfg.LogFormat)

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warn("redis unavailable", "error", err)
		rdb = nil
	}
	kv, err := repository.Open(ctx, repository.Options{
		Backend:     cfg.Store.Backend,
		Dir:         cfg.Store.Dir,
		SQLitePath:  cfg.Store.SQLitePath,
		PostgresDSN: cfg.Store.PostgresDSN,
		MySQL:       cfg.Store.MySQL,
	}, rdb, logger)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	cd, err := codec.ByName(cfg.Store.Codec)
	if err != nil {
		kv.Close()
		return nil, err
	}
	defaults := store.Defaults()
	if cfg.DefaultsFile != "" {
		if defaults, err = store.LoadDefaults(cfg.DefaultsFile); err != nil {
			kv.Close()
			return nil, err
		}
	}

	env := &environment{cfg: cfg, logger: logger, rdb: rdb, kv: kv}
	env.store = store.New(kv, store.Options{
		Namespace:  cfg.Store.Namespace,
		Codec:      cd,
		MaxRetries: cfg.Store.MaxRetries,
		Defaults:   &defaults,
		Logger:     logger,
	})
	env.creds = credential.New(kv, credential.Options{
		Namespace:         cfg.Store.Namespace,
		BootstrapUser:     cfg.Admin.BootstrapUser,
		BootstrapPassword: cfg.Admin.BootstrapPassword,
		Scheme:            cfg.Admin.Scheme,
		BcryptCost:        cfg.Admin.BcryptCost,
		Codec:             cd,
		Logger:            logger,
	})

	// Running servers learn about CLI writes the same way they learn
	// about each other's: a cache purge plus a change announcement.
	cache := middleware.NewResponseCache(config.LoadCacheConfig(cfg.Store.Namespace), rdb, logger)
	env.store.OnCatalogChanged(cache.Observe)
	if cfg.RabbitURL != "" {
		env.pub = queue.NewPublisher(cfg.RabbitURL, "showcasectl-"+uuid.NewString(), logger)
		env.store.OnCatalogChanged(env.pub.Observe)
	}
	return env, nil
}

// getLevel keeps the CLI quiet unless LOG_LEVEL asks for more.
func getLevel(configured string) string {
	if os.Getenv("LOG_LEVEL") == "" {
		return "warn"
	}
	return configured
}

func (e *environment) close() {
	if e.pub != nil {
		e.pub.Close()
	}
	e.kv.Close()
	if e.rdb != nil {
		e.rdb.Close()
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("showcasectl "+name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func parseNoArgs(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return nil
}

func runInit(ctx context.Context, env *environment, args []string) error {
	if err := parseNoArgs(newFlagSet("init"), args); err != nil {
		return err
	}
	if err := env.store.InitializeDefaults(ctx); err != nil {
		return err
	}
	cred, err := env.creds.Bootstrap(ctx)
	if err != nil {
		return err
	}
	cat, err := env.store.Read(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("catalog %s at version %d, admin user %q\n", env.store.Key(), cat.Version, cred.Username)
	return nil
}

func runRotate(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet("rotate")
	username := fs.String("username", "", "current admin username (default: the stored one)")
	newUsername := fs.String("new-username", "", "replacement username (default: keep)")
	keepPassword := fs.Bool("keep-password", false, "only change the username")
	if err := parseNoArgs(fs, args); err != nil {
		return err
	}
	if *keepPassword && *newUsername == "" {
		return fmt.Errorf("--keep-password needs --new-username")
	}

	current := *username
	if current == "" {
		u, err := env.creds.Username(ctx)
		if err != nil {
			return err
		}
		current = u
	}

	in := bufio.NewReader(os.Stdin)
	currentPassword, err := readSecret(in, fmt.Sprintf("Current password for %s: ", current))
	if err != nil {
		return err
	}
	var newPassword string
	if !*keepPassword {
		if newPassword, err = readSecret(in, "New password: "); err != nil {
			return err
		}
		confirm, err := readSecret(in, "Repeat new password: ")
		if err != nil {
			return err
		}
		if confirm != newPassword {
			return fmt.Errorf("passwords do not match")
		}
		if newPassword == "" {
			return fmt.Errorf("new password must not be empty")
		}
	}

	cred, err := env.creds.Rotate(ctx, credential.Rotation{
		CurrentUsername: current,
		CurrentPassword: currentPassword,
		NewUsername:     *newUsername,
		NewPassword:     newPassword,
	})
	if err != nil {
		return err
	}
	fmt.Printf("credential rotated, admin user %q\n", cred.Username)
	return nil
}

// readSecret prompts on a terminal with echo off and otherwise reads one
// line from in, so rotate also works in scripts.
func readSecret(in *bufio.Reader, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runExport(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet("export")
	pretty := fs.Bool("pretty", false, "indent the output")
	if err := parseNoArgs(fs, args); err != nil {
		return err
	}
	cat, err := env.store.Read(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(cat)
}

func runEvents(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet("events")
	q := fs.String("q", "", "only events whose text fields contain this")
	date := fs.String("date", "", "only events on this DD-MM-YYYY date")
	when := fs.String("when", "", "upcoming, past or any")
	if err := parseNoArgs(fs, args); err != nil {
		return err
	}
	events, err := service.NewEvents(env.store).List(ctx, service.Filter{Text: *q, Date: *date, When: *when})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tVIEWS\tLIKES\tCHAT")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", e.ID, e.Date, e.Title, e.Views, e.Likes(), len(e.Chat))
	}
	return tw.Flush()
}

func runDeleteAll(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet("delete-all")
	yes := fs.Bool("yes", false, "confirm the deletion")
	if err := parseNoArgs(fs, args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("refusing to delete every event without --yes")
	}
	n, err := service.NewEvents(env.store).DeleteAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d events\n", n)
	return nil
}
