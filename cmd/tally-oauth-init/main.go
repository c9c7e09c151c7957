// Command tally-oauth-init runs the installed-app OAuth flow once and saves
// a refreshable token for CATALOG_SOURCE=sheets with GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"

	"tally/internal/catalog/google"
	"tally/internal/config"
	"tally/internal/log"
)

const authTimeout = 5 * time.Minute

func main() {
	port := flag.String("port", "8085", "Local port for the OAuth redirect (http://localhost:PORT/callback)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := log.New(log.Config{Format: "text", Component: log.ComponentCatalog, Output: os.Stderr})

	out := cfg.GoogleOAuthTokenFile
	if out == "" {
		out = "token.json"
	}
	if err := authorize(cfg, *port, out); err != nil {
		logger.Error("Authorization failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Saved token", "path", out)
}

func authorize(cfg *config.Config, port, out string) error {
	conf, err := google.OAuthConfig(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return err
	}
	conf.RedirectURL = "http://localhost:" + port + "/callback"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if e := r.URL.Query().Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			send(errCh, fmt.Errorf("oauth error: %s", e))
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		send(codeCh, r.URL.Query().Get("code"))
	})
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			send(errCh, err)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", conf.AuthCodeURL("tally", oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		tok, err := conf.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		return google.SaveToken(out, tok)
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("authorization aborted: %w", ctx.Err())
	}
}

// send drops v when a result is already pending.
func send[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
