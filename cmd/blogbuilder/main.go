package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/server"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
)

var version = "dev"

// Global carries state shared with Run.
type Global struct {
	Logger *slog.Logger
}

// CLI is the command line of blogbuilder.
type CLI struct {
	SrcDir      string           `short:"s" name:"src-dir" help:"Your site's source directory (default is current directory)" default:"." placeholder:"DIR"`
	Serve       bool             `help:"Serve built site via HTTP w/ refresh"`
	NoDelete    bool             `name:"no-delete" help:"When putting new files in the output dir, don't delete existing files (but still overwrite specific files)"`
	Verbose     bool             `short:"v" help:"Be verbose"`
	VeryVerbose bool             `name:"vv" aliases:"veryverbose" help:"Be extra verbose"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Port   int    `arg:"" optional:"" name:"PORT" default:"8080" help:"TCP port to use"`
	IPAddr string `arg:"" optional:"" name:"IP_ADDR" default:"127.0.0.1" help:"IP address to bind to. 0.0.0.0 binds to all network interfaces, please be careful!"`
}

// logLevel maps the verbosity flags to a slog level.
func (c *CLI) logLevel() slog.Level {
	switch {
	case c.VeryVerbose:
		return slog.LevelDebug
	case c.Verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("blogbuilder"),
		kong.Description("Compile a directory of posts and templates into a static site."),
		kong.Vars{"version": version},
	)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cli.logLevel()}))
	slog.SetDefault(logger)

	err := kctx.Run(&Global{Logger: logger})
	errors.NewCLIErrorAdapter(cli.VeryVerbose, logger).HandleError(err)
}

// Run builds the site once and, with --serve, serves and rebuilds it until interrupted.
func (c *CLI) Run(g *Global) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := c.sourceDir()
	if err != nil {
		return err
	}

	var (
		recorder metrics.Recorder = metrics.NoopRecorder{}
		registry *prom.Registry
	)
	if c.Serve {
		registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
		fmt.Println("Running an initial build")
	}

	writer := site.NewWriter(site.Options{
		SourceDir:      src,
		KeepExtraneous: c.NoDelete,
		Logger:         g.Logger,
		Recorder:       recorder,
	})
	res, err := writer.Build(ctx)
	if err != nil {
		return err
	}
	if !c.Serve {
		return nil
	}

	srv := server.New(server.Options{
		Root:     res.OutputDir,
		SitePath: res.SitePath,
		Registry: registry,
		Logger:   g.Logger,
	})
	if err := srv.Start(ctx, net.JoinHostPort(c.IPAddr, strconv.Itoa(c.Port))); err != nil {
		return err
	}
	fmt.Printf("Server started on %s ...\n", srv.Addr())

	watchErr := site.NewWatcher(writer, site.DefaultWatchInterval).Run(ctx)

	fmt.Println("\nshutting down webserver...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		g.Logger.Warn("HTTP server shutdown error", "error", err)
	}
	return watchErr
}

// sourceDir resolves --src-dir and checks it holds a configuration file.
func (c *CLI) sourceDir() (string, error) {
	src, err := filepath.Abs(c.SrcDir)
	if err != nil {
		return "", errors.ConfigError("invalid source dir").WithCause(err).WithContext("path", c.SrcDir).Build()
	}
	if info, statErr := os.Stat(src); statErr != nil || !info.IsDir() {
		return "", errors.ConfigError("source dir does not exist").WithContext("path", src).Build()
	}
	if _, err := config.Find(src); err != nil {
		return "", err
	}
	return src, nil
}
