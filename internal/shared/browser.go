package shared

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

var startCommand = func(cmd *exec.Cmd) error { return cmd.Start() }

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := startCommand(cmd); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

// PromptAuthorization tries to open url and always prints it to w so headless sessions can copy it.
// It reports whether the browser was launched.
func PromptAuthorization(w io.Writer, url string) bool {
	opened := OpenBrowser(url) == nil
	if opened {
		fmt.Fprintf(w, "Opened your browser to authorize pagewalk.\nIf nothing happened, visit:\n\n  %s\n\n", url)
	} else {
		fmt.Fprintf(w, "Visit this URL to authorize pagewalk:\n\n  %s\n\n", url)
	}
	return opened
}
