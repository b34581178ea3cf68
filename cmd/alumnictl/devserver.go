package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"alumnihub.com/alumni-feed/fakebackend"
	"alumnihub.com/alumni-feed/models"
)

var (
	demoAuthor = models.Author{UserID: "demo", Username: "demo", DisplayName: "Demo Alumnus"}
	devLog     = logrus.WithField("component", "devserver")
)

func newDevServerCmd() *cobra.Command {
	var addr, secret string
	var tokenTTL time.Duration

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Serve an in-memory feed backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := fakebackend.NewStore()
			auth := fakebackend.NewAuthenticator(secret)
			seedDemo(store)

			token, err := auth.IssueToken(demoAuthor, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ALUMNI_API_URL=http://%s\nALUMNI_API_TOKEN=%s\n", addr, token)

			return serve(cmd.Context(), addr, fakebackend.NewHandler(store, auth))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8088", "listen address")
	cmd.Flags().StringVar(&secret, "secret", "alumni-dev-secret", "HS256 token secret")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed demo token")

	return cmd
}

func seedDemo(store *fakebackend.Store) {
	welcome := store.SeedPost(models.Post{
		Title:        "Welcome back, class of 2016",
		Content:      "Share where you are now.",
		PostType:     "announcement",
		AuthorUserID: demoAuthor.UserID,
	})
	first, err := store.SeedComment(welcome.ID, "", demoAuthor, "Still in Lisbon!")
	if err != nil {
		devLog.WithError(err).Warn("seed comment failed")
		return
	}
	if _, err := store.SeedComment(welcome.ID, first.ID, demoAuthor, "Replying to myself."); err != nil {
		devLog.WithError(err).Warn("seed reply failed")
	}
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		devLog.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		devLog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
