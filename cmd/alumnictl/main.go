package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"alumnihub.com/alumni-feed/cache"
	"alumnihub.com/alumni-feed/config"
	"alumnihub.com/alumni-feed/feed"
	"alumnihub.com/alumni-feed/services"
)

var envFile string

// app is the wiring shared by the feed commands.
type app struct {
	log    *logrus.Logger
	cache  *cache.Cache
	loader *cache.Loader
	feed   *feed.Feed
}

func newApp() (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger()

	var session services.Session
	if cfg.APIToken != "" {
		session, err = services.ParseSession(cfg.APIToken)
		if err != nil {
			return nil, err
		}
		if session.Expired(time.Now()) {
			log.WithFields(logrus.Fields{
				"component":  "session",
				"expires_at": session.ExpiresAt,
			}).Warn("bearer token has expired")
		}
	}

	client, err := services.NewClient(cfg.APIURL,
		services.WithToken(cfg.APIToken),
		services.WithRequestTimeout(cfg.RequestTimeout),
		services.WithClientLogger(log.WithField("component", "api")),
	)
	if err != nil {
		return nil, err
	}

	c := cache.New(cache.WithLogger(log.WithField("component", "cache")))
	loader := cache.NewLoader(c,
		cache.WithRefetchTimeout(cfg.RefetchTimeout),
		cache.WithLoaderLogger(log.WithField("component", "loader")),
	)

	return &app{
		log:    log,
		cache:  c,
		loader: loader,
		feed: feed.New(client, c,
			feed.WithSession(session),
			feed.WithLoader(loader),
			feed.WithLogger(log.WithField("component", "feed")),
		),
	}, nil
}

func (a *app) Close() {
	a.loader.Close()
}

// runFeed builds the app for one command invocation and tears it down afterwards.
func runFeed(fn func(ctx context.Context, a *app, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(cmd.Context(), a, cmd.OutOrStdout())
	}
}

func printJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "alumnictl",
		Short:         "Browse and edit the alumni feed from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with ALUMNI_* settings")

	root.AddCommand(newPostsCmd(), newCommentsCmd(), newDevServerCmd())

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "alumnictl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
