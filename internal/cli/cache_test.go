package cli

import (
	"path/filepath"
	"testing"

	"github.com/matzehuels/depotview/pkg/config"
)

func TestCacheDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name string
		cfg  config.Cache
		want string
	}{
		{"configured", config.Cache{Dir: "/var/cache/dv"}, "/var/cache/dv"},
		{"default under home", config.Cache{}, filepath.Join(home, ".cache", "depotview")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cacheDir(tt.cfg)
			if err != nil {
				t.Fatalf("cacheDir() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenCache(t *testing.T) {
	c, err := openCache(config.Cache{Backend: config.CacheNone})
	if err != nil || c != nil {
		t.Errorf("openCache(none) = %v, %v, want nil, nil", c, err)
	}

	dir := t.TempDir()
	c, err = openCache(config.Cache{Backend: config.CacheFile, Dir: dir})
	if err != nil {
		t.Fatalf("openCache(file) error: %v", err)
	}
	if c == nil {
		t.Fatal("openCache(file) = nil")
	}
	c.Close()

	if _, err := openCache(config.Cache{Backend: "memcached"}); err == nil {
		t.Error("openCache(memcached) = nil error, want CONFIG_ERROR")
	}
}
