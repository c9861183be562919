// Package repo resolves a repository reference — a local directory or a
// remote git URL — into a local checkout the chunker can walk. Remote
// repositories are shallow-cloned once into a cache directory; an existing
// checkout for the same URL is reused rather than re-cloned.
package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docweaver/docweaver-go/internal/logging"
)

// DefaultCacheDir returns the directory remote clones are cached under,
// resolving to ~/.docweaver/repos.
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("repo: could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".docweaver", "repos"), nil
}

// Resolver turns repository references into local paths.
type Resolver struct {
	// cacheDir is where remote clones are stored.
	cacheDir string
}

// NewResolver constructs a Resolver with the given clone cache directory.
// Pass "" to use DefaultCacheDir.
func NewResolver(cacheDir string) (*Resolver, error) {
	if cacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return nil, err
		}
		cacheDir = dir
	}
	return &Resolver{cacheDir: cacheDir}, nil
}

// IsRemote reports whether ref looks like a remote git URL rather than a
// local path.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "git@") ||
		strings.HasPrefix(ref, "ssh://")
}

// Resolve returns a local directory for ref. Local paths are validated and
// returned as-is; remote URLs are shallow-cloned into the cache (or reused
// when a previous clone for the same URL exists).
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if !IsRemote(ref) {
		info, err := os.Stat(ref)
		if err != nil {
			return "", fmt.Errorf("repo: local path %s: %w", ref, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("repo: local path %s is not a directory", ref)
		}
		return ref, nil
	}
	return r.clone(ctx, ref)
}

// clone performs a depth-1 clone of url into the cache, keyed by a hash of
// the URL so the same repository maps to the same checkout across runs.
func (r *Resolver) clone(ctx context.Context, url string) (string, error) {
	log := logging.FromContext(ctx)

	dest := filepath.Join(r.cacheDir, cloneKey(url))
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		log.Info("repo: reusing existing clone",
			slog.String("url", url),
			slog.String("path", dest),
		)
		return dest, nil
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("repo: create cache dir %s: %w", r.cacheDir, err)
	}
	// A partial clone from an interrupted run would make git refuse the
	// destination; clear it before retrying.
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("repo: clear stale clone %s: %w", dest, err)
	}

	log.Info("repo: cloning", slog.String("url", url), slog.String("path", dest))

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--single-branch", url, dest)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("repo: git clone %s: %w: %s", url, err, strings.TrimSpace(string(out)))
	}
	return dest, nil
}

// cloneKey derives a stable directory name from a repository URL: the last
// path segment for readability plus a short URL hash for uniqueness.
func cloneKey(url string) string {
	base := strings.TrimSuffix(filepath.Base(strings.TrimSuffix(url, "/")), ".git")
	if base == "" || base == "." {
		base = "repo"
	}
	sum := sha256.Sum256([]byte(url))
	return base + "-" + hex.EncodeToString(sum[:6])
}
