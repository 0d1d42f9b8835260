package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestXDGDirs(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		env  string
		fn   func() (string, error)
		set  string
		want string
	}{
		{"cache default", "XDG_CACHE_HOME", cacheDir, "", filepath.Join(home, ".cache", appName)},
		{"cache xdg", "XDG_CACHE_HOME", cacheDir, "/tmp/xdg-cache", filepath.Join("/tmp/xdg-cache", appName)},
		{"data default", "XDG_DATA_HOME", dataDir, "", filepath.Join(home, ".local", "share", appName)},
		{"data xdg", "XDG_DATA_HOME", dataDir, "/tmp/xdg-data", filepath.Join("/tmp/xdg-data", appName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.set)
			got, err := tt.fn()
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if got != tt.want {
				t.Errorf("dir = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfiguredPaths(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	c := New(io.Discard, LogInfo)

	if dir, _ := c.cacheDir(); dir != filepath.Join("/tmp/xdg-cache", appName) {
		t.Errorf("cacheDir() = %q", dir)
	}
	if got := c.historyPath(); got != filepath.Join("/tmp/xdg-data", appName, "history.db") {
		t.Errorf("historyPath() = %q", got)
	}

	c.Config.Cache.Dir = "/srv/recompose/cache"
	c.Config.History.Path = "/srv/recompose/history.db"
	if dir, _ := c.cacheDir(); dir != "/srv/recompose/cache" {
		t.Errorf("configured cacheDir() = %q", dir)
	}
	if got := c.historyPath(); got != "/srv/recompose/history.db" {
		t.Errorf("configured historyPath() = %q", got)
	}
}
