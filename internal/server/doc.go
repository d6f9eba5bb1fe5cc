// Package server holds the small HTTP surface pagewalk runs locally.
//
// # Routing
//
// [BasicRouter] registers [http.ServeMux] method patterns behind a [Middleware] stack; the first middleware
// added is the outermost. [NewRouter] installs [RecoverMiddleware] and [LoggingMiddleware] and serves
// [HealthHandler] and [MetricsHandler]. [Serve] runs any handler until its context is done.
//
// # Authorization Callback
//
// `pagewalk auth login` listens on the configured host and port with an [OAuthHandler] mounted at /callback.
// The first callback wins. Its code is exchanged for a token only when the state matches, and the outcome is
// published once on [OAuthHandler.Result]. Replays get a 400 page.
//
// # Metrics
//
// With --metrics-addr every command serves /metrics and /healthz for its lifetime.
package server
