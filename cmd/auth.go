package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/pagewalk/internal/server"
	"github.com/desertthunder/pagewalk/internal/services"
	"github.com/desertthunder/pagewalk/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the OAuth2 authorization code flow with a temporary local callback server and saves the
// issued token to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds, err := r.oauthCredentials()
	if err != nil {
		return err
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(creds.Config(), state)

	router := server.NewBasicRouter()
	router.Use(server.RecoverMiddleware(r.logger), server.LoggingMiddleware(r.logger))
	router.Handler(handler)

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	ready := make(chan string, 1)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(srvCtx, addr, router, r.logger, ready)
	}()

	select {
	case <-ready:
	case err := <-serveErr:
		return fmt.Errorf("failed to start callback server: %w", err)
	}

	r.logger.Info("waiting for authorization callback", "addr", addr)
	r.authorize(r.output, creds.AuthCodeURL(state))

	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
		}
		creds.SetToken(result.Token)
		r.creds = creds
		if err := r.saveTokens(result.Token); err != nil {
			return err
		}
	case <-time.After(cmd.Duration("timeout")):
		return fmt.Errorf("%w: timed out waiting for the authorization callback", shared.ErrAuthFailed)
	case <-ctx.Done():
		return ctx.Err()
	}

	stop()
	if err := <-serveErr; err != nil {
		r.logger.Warn("callback server stopped with error", "err", err)
	}

	r.logger.Info("authentication successful")
	return r.writePlain("✓ Authentication successful\nToken saved to: %s\n", r.configPath)
}

// AuthStatus reports whether a usable access token is stored, optionally refreshing it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds, err := r.oauthCredentials()
	if err != nil {
		return err
	}

	if cmd.Bool("refresh") {
		r.logger.Info("refreshing access token")
		if _, err := creds.Refresh(ctx); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
		}
	}

	oauth := r.config.Credentials.OAuth
	r.writePlainHeader("Authentication")
	r.writePlain("Client ID: %s\n", oauth.ClientID)

	cred, ok := creds.Current()
	switch {
	case ok:
		r.writePlain("Access token: ✓ Valid\n")
	case cred.AccessToken == "":
		r.writePlain("Access token: ✗ Not authenticated (run 'pagewalk auth login')\n")
	default:
		r.writePlain("Access token: ✗ Expired\n")
	}

	if !cred.ExpiresAt.IsZero() {
		r.writePlain("Expires: %s (skew %s)\n", cred.ExpiresAt.Format(time.RFC3339), services.ExpirySkew)
	}
	if cred.RefreshToken != "" {
		r.writePlain("Refresh token: ✓ Stored\n")
	} else {
		r.writePlain("Refresh token: ✗ None\n")
	}
	return nil
}
