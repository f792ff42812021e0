package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"pcsync/internal/config"
	"pcsync/internal/tokenstore"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCredentials verifies that an account is configured for login.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Account"
	if cfg == nil || !cfg.HasCredentials() {
		return Result{Name: name, Detail: "missing username or password (set PC_USERNAME and PC_PASSWORD)"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Account.Username}
}

// CheckStoredToken reports whether the token database holds a credential.
// A missing or expired token passes because the next run logs in again.
func CheckStoredToken(ctx context.Context, dbPath string) Result {
	const name = "Stored token"
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: "none (login on next run)"}
	}
	store, err := tokenstore.Open(dbPath)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	defer store.Close()

	cred, err := store.Load(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	switch {
	case !cred.Present():
		return Result{Name: name, Passed: true, Detail: "none (login on next run)"}
	case !cred.Valid(time.Now()):
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("expired %s (login on next run)", cred.ExpiresAt.Local().Format(time.DateTime))}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("valid until %s", cred.ExpiresAt.Local().Format(time.DateTime))}
	}
}

// CheckEndpoint verifies that the host serving rawURL answers HTTP. Any
// response status counts as reachable.
func CheckEndpoint(ctx context.Context, name, rawURL string) Result {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q", rawURL)}
	}
	base := parsed.Scheme + "://" + parsed.Host + "/"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	resp.Body.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%d)", parsed.Host, resp.StatusCode)}
}
