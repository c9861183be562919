package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_IsRemote(t *testing.T) {
	t.Parallel()
	cases := []struct {
		ref  string
		want bool
	}{
		{"https://github.com/acme/widgets.git", true},
		{"http://git.internal/acme/widgets", true},
		{"git@github.com:acme/widgets.git", true},
		{"ssh://git@git.internal/widgets.git", true},
		{"/home/dev/widgets", false},
		{"./widgets", false},
		{"widgets", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsRemote(tc.ref); got != tc.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tc.ref, got, tc.want)
		}
	}
}

func Test_Resolve_LocalDirPassthrough(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	r, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	got, err := r.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != dir {
		t.Errorf("Resolve(%q) = %q, want passthrough", dir, got)
	}
}

func Test_Resolve_LocalPathMustExist(t *testing.T) {
	t.Parallel()
	r, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if _, err := r.Resolve(context.Background(), "/nonexistent/widgets"); err == nil {
		t.Error("want error for missing local path")
	}
}

func Test_Resolve_LocalFileRejected(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "README.md")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if _, err := r.Resolve(context.Background(), file); err == nil {
		t.Error("want error for non-directory path")
	}
}

func Test_Resolve_ReusesExistingClone(t *testing.T) {
	t.Parallel()
	cache := t.TempDir()
	url := "https://github.com/acme/widgets.git"

	// Seed the cache with a fake prior checkout; .git marks it complete.
	dest := filepath.Join(cache, cloneKey(url))
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := NewResolver(cache)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	got, err := r.Resolve(context.Background(), url)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != dest {
		t.Errorf("Resolve = %q, want cached clone %q", got, dest)
	}
}

func Test_CloneKey(t *testing.T) {
	t.Parallel()

	url := "https://github.com/acme/widgets.git"
	key := cloneKey(url)

	if !strings.HasPrefix(key, "widgets-") {
		t.Errorf("key %q must keep the repo name for readability", key)
	}
	if key != cloneKey(url) {
		t.Error("cloneKey must be stable across calls")
	}
	if key == cloneKey("https://github.com/other/widgets.git") {
		t.Error("same repo name under different owners must not collide")
	}
	if !strings.HasPrefix(cloneKey("https://github.com/acme/widgets.git/"), "widgets-") {
		t.Error("trailing slash must not change the readable prefix")
	}
}
