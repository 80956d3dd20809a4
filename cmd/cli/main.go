// Package main provides the webacquire CLI.
// Uses Cobra for command parsing. Cobra is the standard Go CLI framework
// (used by kubectl, docker, hugo, and many others).
//
// Run with: go run ./cmd/cli fetch https://example.com --context "pricing"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/app"
	"github.com/fleveque/webacquire/internal/config"
	"github.com/fleveque/webacquire/internal/mcpserver"
	"github.com/fleveque/webacquire/internal/model"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// errCallFailed signals that the envelope was already printed and reported
// success:false; main only needs to set the exit code.
var errCallFailed = errors.New("call failed")

func main() {
	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errCallFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// rootCmd creates the root command. Cobra builds a tree of commands:
// webacquire search "golang generics" --num 20
// webacquire fetch https://a.example https://b.example
func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "webacquire",
		Short:         "Search, fetch and extract web content through the proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("WEBACQUIRE_CONFIG_PATH"), "Path to config.yaml")

	open := func() (*session, error) { return newSession(configPath) }

	root.AddCommand(searchCmd(open), fetchCmd(open), downloadImageCmd(open), mcpCmd(open), statsCmd(open))
	return root
}

// session is what every subcommand needs once config is loaded.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func newSession(configPath string) (*session, error) {
	// A .env file is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, eris.Wrap(err, "loading config")
	}

	// Always development mode for the CLI. It writes to stderr, which keeps
	// stdout clean for the JSON envelope and the MCP protocol.
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, eris.Wrap(err, "creating logger")
	}

	a, err := app.Build(cfg, logger, false)
	if err != nil {
		return nil, eris.Wrap(err, "building pipeline")
	}
	return &session{cfg: cfg, logger: logger, app: a}, nil
}

func (s *session) close() {
	_ = s.app.Close()
	_ = s.logger.Sync()
}

// signalContext is cancelled on Ctrl+C so in-flight fan-outs stop early.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// execute runs one request and prints the envelope.
func execute(open func() (*session, error), req model.Request, out io.Writer) error {
	rt, err := open()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := signalContext()
	defer cancel()

	env := rt.app.Service.Execute(ctx, req, rt.cfg.Settings())
	if err := printJSON(out, env); err != nil {
		return err
	}
	if !env.Success {
		return errCallFailed
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func searchCmd(open func() (*session, error)) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query> [query...]",
		Short: "Run one or more searches through the SERP zone",
		Args:  cobra.MinimumNArgs(1),
		// RunE returns an error (vs Run which doesn't). Cobra prints the error automatically.
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.numSet = cmd.Flags().Changed("num")
			opts.startSet = cmd.Flags().Changed("start")
			return execute(open, opts.request(args), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.country, "country", "", "Two-letter country code (gl)")
	f.StringVar(&opts.language, "language", "", "Two-letter language code (hl)")
	f.IntVar(&opts.num, "num", 10, "Results per page: 10, 20, ... 100")
	f.IntVar(&opts.start, "start", 0, "Result offset")
	f.StringVar(&opts.searchType, "type", "", "web, news, images, videos, shopping or scholar")
	f.StringVar(&opts.timeRange, "time-range", "", "hour, day, week, month, year or a raw tbs value")
	f.StringVar(&opts.udm, "udm", "", "Raw udm vertical override")
	f.StringVar(&opts.context, "context", "", "What you are looking for; steers extraction")
	return cmd
}

func fetchCmd(open func() (*session, error)) *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch <url> [url...]",
		Short: "Fetch pages through the unlocker zone",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(open, opts.request(args), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.context, "context", "", "What you need from the page; steers extraction")
	cmd.Flags().BoolVar(&opts.markdown, "markdown", false, "Ask the unblocker for markdown")
	return cmd
}

func downloadImageCmd(open func() (*session, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "download-image <url>",
		Short: "Download one image and print it base64-encoded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := model.Request{
				Action: model.ActionDownloadImage,
				Image:  &model.ImageRequest{URL: args[0]},
			}
			return execute(open, req, cmd.OutOrStdout())
		},
	}
}

func mcpCmd(open func() (*session, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the acquire tools over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			srv := mcpserver.New(rt.app.Service, rt.cfg.Settings(), version, rt.logger)
			rt.logger.Info("serving MCP over stdio")
			return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func statsCmd(open func() (*session, error)) *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the call ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			total, err := rt.app.Calls.Count(ctx)
			if err != nil {
				return eris.Wrap(err, "counting calls")
			}
			breakdown, err := rt.app.Calls.Stats(ctx, time.Now().Add(-window))
			if err != nil {
				return eris.Wrap(err, "aggregating calls")
			}

			return printJSON(cmd.OutOrStdout(), map[string]any{
				"total":     total,
				"window":    window.String(),
				"breakdown": breakdown,
			})
		},
	}

	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "How far back the breakdown looks")
	return cmd
}
