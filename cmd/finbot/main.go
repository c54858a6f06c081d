// Package main is the finbot CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/cli"
	"github.com/hyperjump/finbot/internal/config"
	"github.com/hyperjump/finbot/internal/indexer"
	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/internal/server"
	"github.com/hyperjump/finbot/internal/watcher"
	"github.com/hyperjump/finbot/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/finbot/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists; when neither exists, built-in defaults and
// environment overrides are used. Returns the config and the path actually loaded
// (empty when running on defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			cfg := config.Default()
			if err := config.LoadEnvFile(".env"); err != nil {
				return nil, "", err
			}
			config.ApplyEnv(cfg)
			if err := cfg.Validate(); err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	command, args := os.Args[1], os.Args[2:]
	var err error
	switch command {
	case "server":
		err = runServer(args)
	case "ingest":
		err = runIngest(args, os.Stdout)
	case "ask":
		err = runAsk(args, os.Stdout)
	case "clear":
		err = runClear(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "watch":
		err = runWatch(args, os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("finbot version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them. The flag package stops at
// the first non-flag argument, so "finbot ask how much to save --server x" would
// otherwise treat --server as part of the question.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// openComponents loads config, builds a logger and initializes every service.
func openComponents(ctx context.Context, configPath string, debug bool) (*Components, *config.Config, *zap.Logger, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return components, cfg, logger, nil
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("vector_backend", cfg.Vector.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []server.Option{}
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		// Serve health and 503s until restarted with working dependencies.
		logger.Error("core services unavailable", zap.Error(err))
	} else {
		defer components.Close()
		watchSvc := watcher.NewWatcher(components.Indexer, cfg.Watch.Directories,
			watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer watchSvc.Stop()
		go watchSvc.SyncExistingFiles()

		opts = append(opts,
			server.WithResponder(components.Responder),
			server.WithIngester(components.Indexer),
			server.WithAdmin(components.Admin),
			server.WithWatch(watchSvc, resolvedConfigPath),
		)
	}

	srv := server.NewServer(&cfg.Server, logger, opts...)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runIngest(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	userID := fs.String("user", "admin", "uploader recorded on every chunk")
	skipKnown := fs.Bool("skip-known", false, "skip files whose content was ingested before")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(args))

	if fs.NArg() < 1 {
		return errors.New("usage: finbot ingest [flags] <file-or-directory>...")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}

	ctx := context.Background()
	components, _, logger, err := openComponents(ctx, *configPath, false)
	if err != nil {
		return err
	}
	defer components.Close()
	defer func() { _ = logger.Sync() }()

	return ingestPaths(ctx, components.Indexer, fs.Args(), *userID, *skipKnown, format, out)
}

func ingestPaths(ctx context.Context, idx *indexer.Indexer, paths []string, userID string, skipKnown bool, format cli.OutputFormat, out io.Writer) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat path: %w", err)
		}
		var res *models.UploadResult
		if info.IsDir() {
			res, err = idx.IngestDirectory(ctx, path, userID, models.SourceCLI)
		} else {
			res, err = idx.IngestPath(ctx, path, userID, models.SourceCLI, skipKnown)
		}
		if errors.Is(err, indexer.ErrAlreadyIngested) {
			fmt.Fprintf(out, "Skipped (already ingested): %s\n", path)
			continue
		}
		if err != nil {
			return fmt.Errorf("ingesting %s failed: %w", path, err)
		}
		if err := cli.WriteUploadResult(out, res, format); err != nil {
			return err
		}
	}
	return nil
}

func runAsk(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = answer in-process)")
	userID := fs.String("user", models.DefaultUserID, "user id sent with the question")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(args))

	question := buildQuestion(fs.Args())
	if question == "" {
		return errors.New("usage: finbot ask [flags] <question>")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}

	var resp *models.ChatResponse
	if *serverURL != "" {
		resp, err = newAPIClient(*serverURL).chat(question, *userID)
	} else {
		ctx := context.Background()
		components, _, logger, openErr := openComponents(ctx, *configPath, false)
		if openErr != nil {
			return openErr
		}
		defer components.Close()
		defer func() { _ = logger.Sync() }()
		resp, err = components.Responder.Answer(ctx, question, *userID)
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	return cli.WriteChatResponse(out, resp, format)
}

func runClear(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = clear in-process)")
	adminKey := fs.String("admin-key", os.Getenv(config.EnvAdminKey), "admin key")
	_ = fs.Parse(args)

	if *adminKey == "" {
		return errors.New("--admin-key is required")
	}
	var (
		resp *models.ClearResponse
		err  error
	)
	if *serverURL != "" {
		resp, err = newAPIClient(*serverURL).clearAll(*adminKey)
	} else {
		ctx := context.Background()
		components, _, logger, openErr := openComponents(ctx, *configPath, false)
		if openErr != nil {
			return openErr
		}
		defer components.Close()
		defer func() { _ = logger.Sync() }()
		resp, err = components.Admin.ClearAll(ctx, *adminKey)
	}
	if err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Fprintln(out, resp.Message)
	return nil
}

func runStatus(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read stores directly)")
	adminKey := fs.String("admin-key", os.Getenv(config.EnvAdminKey), "admin key (server mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	var status *models.StatusResponse
	if *serverURL != "" {
		status, err = newAPIClient(*serverURL).status(*adminKey)
	} else {
		ctx := context.Background()
		components, _, logger, openErr := openComponents(ctx, *configPath, false)
		if openErr != nil {
			return openErr
		}
		defer components.Close()
		defer func() { _ = logger.Sync() }()
		status, err = components.Admin.Status(ctx)
	}
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	return cli.WriteStatus(out, status, format)
}

func runWatch(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New("usage: finbot watch <add|remove|list> [flags] [path]")
	}
	sub := args[0]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	adminKey := fs.String("admin-key", os.Getenv(config.EnvAdminKey), "admin key")
	syncExisting := fs.Bool("sync", true, "ingest files already in the directory (add only)")
	_ = fs.Parse(argsReorder(args[1:]))

	client := newAPIClient(*serverURL)
	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: finbot watch %s <path>", sub)
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			return err
		}
		if sub == "add" {
			if err := client.watchAdd(*adminKey, path, *syncExisting); err != nil {
				return fmt.Errorf("add failed: %w", err)
			}
			fmt.Fprintf(out, "Added: %s\n", path)
			return nil
		}
		if err := client.watchRemove(*adminKey, path); err != nil {
			return fmt.Errorf("remove failed: %w", err)
		}
		fmt.Fprintf(out, "Removed: %s\n", path)
		return nil
	case "list":
		dirs, err := client.watchList(*adminKey)
		if err != nil {
			return fmt.Errorf("list failed: %w", err)
		}
		for _, d := range dirs {
			fmt.Fprintln(out, d)
		}
		return nil
	default:
		return fmt.Errorf("unknown watch subcommand: %s", sub)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `finbot - Financial literacy chatbot backend

Usage:
  finbot server [flags]                      Start the HTTP server
  finbot ingest [flags] <file|dir>...        Ingest PDF, DOCX and XLSX documents
  finbot ask [flags] <question>              Ask a question
  finbot clear --admin-key KEY               Delete every stored chunk
  finbot status [flags]                      Show vector store and ledger status
  finbot watch <add|remove|list> [flags]     Manage inbox directories on a running server
  finbot version                             Show version
  finbot help                                Show this help

Common Flags:
  --config string     Config file path (default: /usr/local/etc/finbot/config.yaml, or ./config.yaml)
  --server string     Server URL (default: http://localhost:8000). Use --server "" to run in-process.
  --admin-key string  Admin key (default: $FINBOT_ADMIN_KEY)
  --output string     Output format: text or json (default: text)

Ingest Flags:
  --user string       Uploader recorded on chunks (default: admin)
  --skip-known        Skip files whose content was already ingested

Examples:
  finbot server --debug
  finbot ingest ./docs/budgeting.pdf ./docs/savings
  finbot ask "How much of my income should I save?"
  finbot ask --server "" --output json "What is an emergency fund?"
  finbot clear --admin-key admin123
  finbot status --admin-key admin123
  finbot watch add ./inbox --admin-key admin123`)
}
