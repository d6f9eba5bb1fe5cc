package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

var (
	ErrInvalidState        = errors.New("invalid state parameter")
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrCallbackReplayed    = errors.New("callback already processed")
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .box { text-align: center; background: white; padding: 2rem;
               border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        .ok { color: #ff5500; }
        .failed { color: #cc3333; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="box">
        <h1 class="{{.Class}}">{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type pageData struct {
	Title   string
	Message string
	Class   string
}

// OAuthResult is the outcome of one authorization code callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the redirect target of the authorization code flow.
//
// The first request to /callback decides the result: it is checked against the expected state, its code is
// exchanged through the oauth2 config, and the outcome is published once on [OAuthHandler.Result]. Any later
// request is rejected.
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	once    sync.Once
	hit     atomic.Bool
}

// NewOAuthHandler creates a handler expecting state, which should be random per login attempt.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.hit.CompareAndSwap(false, true) {
		h.fail(w, http.StatusBadRequest, ErrCallbackReplayed)
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, ErrInvalidState)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest,
			fmt.Errorf("%w: %s %s", ErrAuthorizationDenied, query.Get("error"), query.Get("error_description")))
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, fmt.Errorf("token exchange failed: %w", err))
		return
	}

	h.Send(OAuthResult{Token: token})
	render(w, http.StatusOK, pageData{
		Title:   "✓ Authorization Successful",
		Message: "You can close this window and return to the terminal.",
		Class:   "ok",
	})
}

// fail publishes err, except for replays, and renders an error page.
func (h *OAuthHandler) fail(w http.ResponseWriter, status int, err error) {
	if !errors.Is(err, ErrCallbackReplayed) {
		h.Send(OAuthResult{err: err})
	}
	render(w, status, pageData{
		Title:   "✗ Authorization Failed",
		Message: err.Error(),
		Class:   "failed",
	})
}

func render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, data)
}

// Send publishes result. Only the first call has any effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns a channel that yields exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
