// Package config loads the depotview configuration file.
//
// The file is TOML. Loading applies, in order: built-in defaults, the
// file, [Config.Normalize] and [Config.Validate]. Command-line flags are
// applied by the caller on top of the loaded value, which must then be
// validated again.
//
//	depot = "7"
//
//	[grid]
//	size = 10
//	divisions = 10
//
//	[provider]
//	kind = "http"
//	base_url = "https://warehouse.example.com/api"
//	api_key = "..."
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "5m"
//
// A leading ~ in provider.path and cache.dir is the home directory.
// Validation failures are CONFIG_ERROR.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"

	"github.com/matzehuels/depotview/pkg/camera"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/geom"
	"github.com/matzehuels/depotview/pkg/loop"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Provider kinds.
const (
	ProviderFile  = "file"
	ProviderHTTP  = "http"
	ProviderMongo = "mongo"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Duration is a time.Duration written as a string ("5m", "30s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete configuration.
type Config struct {
	Depot       string           `toml:"depot"`
	Grid        scene.GridConfig `toml:"grid"`
	Viewport    Viewport         `toml:"viewport"`
	Camera      Camera           `toml:"camera"`
	Provider    Provider         `toml:"provider"`
	Cache       Cache            `toml:"cache"`
	Server      Server           `toml:"server"`
	Interaction Interaction      `toml:"interaction"`
	Log         Log              `toml:"log"`
}

// Viewport is the default host surface size in pixels.
type Viewport struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Camera holds the initial camera placement.
type Camera struct {
	FOV      float64   `toml:"fov"`
	Near     float64   `toml:"near"`
	Far      float64   `toml:"far"`
	Position geom.Vec3 `toml:"position"`
	Target   geom.Vec3 `toml:"target"`
}

// Build returns the camera for a viewport of the given aspect ratio.
func (c Camera) Build(aspect float64) *camera.Camera {
	cam := camera.New(aspect)
	cam.FOV, cam.Near, cam.Far = c.FOV, c.Near, c.Far
	cam.Position, cam.Target = c.Position, c.Target
	return cam
}

// Provider selects and configures the data provider.
type Provider struct {
	Kind            string            `toml:"kind"`
	Path            string            `toml:"path"`
	BaseURL         string            `toml:"base_url"`
	APIKey          string            `toml:"api_key"`
	FunctionKeys    map[string]string `toml:"function_keys"`
	MongoURI        string            `toml:"mongo_uri"`
	Database        string            `toml:"database"`
	Collection      string            `toml:"collection"`
	Timeout         Duration          `toml:"timeout"`
	RefreshInterval Duration          `toml:"refresh_interval"`
}

// Cache configures the response cache in front of the provider.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	Prefix        string   `toml:"prefix"`
	TTL           Duration `toml:"ttl"`
}

// Server configures `depotview serve`.
type Server struct {
	Addr           string   `toml:"addr"`
	FPS            int      `toml:"fps"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SessionTTL     Duration `toml:"session_ttl"`
}

// Interaction configures the action menu.
type Interaction struct {
	EnableMutations bool              `toml:"enable_mutations"`
	ProductID       string            `toml:"product_id"`
	OperationTypes  map[string]string `toml:"operation_types"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Grid:     scene.DefaultGrid,
		Viewport: Viewport{Width: 1280, Height: 720},
		Camera: Camera{
			FOV:      camera.DefaultFOV,
			Near:     camera.DefaultNear,
			Far:      camera.DefaultFar,
			Position: camera.DefaultPosition,
		},
		Provider: Provider{
			Kind:    ProviderFile,
			Timeout: Duration{10 * time.Second},
		},
		Cache: Cache{
			Backend: CacheNone,
			TTL:     Duration{5 * time.Minute},
		},
		Server: Server{
			Addr:       ":8080",
			FPS:        30,
			SessionTTL: Duration{30 * time.Minute},
		},
		Log: Log{Level: "info"},
	}
}

// DefaultPath returns ~/.config/depotview/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "depotview", "config.toml"), nil
}

// Load reads the configuration at path. An empty path loads the default
// file if it exists and the built-in defaults otherwise; defaults are
// returned normalized but not validated, since flags usually complete them.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		def, err := DefaultPath()
		if err != nil {
			cfg.Normalize()
			return cfg, nil
		}
		if _, err := os.Stat(def); err != nil {
			cfg.Normalize()
			return cfg, nil
		}
		path = def
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return cfg, errors.Wrap(errors.ErrCodeConfig, err, "%s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.Config("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeConfig, err, "%s", path)
	}
	return cfg, nil
}

// Normalize trims and lowercases enumerations and fills derived defaults.
func (c *Config) Normalize() {
	c.Depot = strings.TrimSpace(c.Depot)
	c.Provider.Kind = strings.ToLower(strings.TrimSpace(c.Provider.Kind))
	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	c.Provider.Path = expandHome(strings.TrimSpace(c.Provider.Path))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Cache.Dir = expandHome(strings.TrimSpace(c.Cache.Dir))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Provider.Kind == "" {
		c.Provider.Kind = ProviderFile
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheNone
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Camera.Position == c.Camera.Target {
		c.Camera.Position = camera.DefaultPosition
		c.Camera.Target = geom.Zero
	}
	for i, o := range c.Server.AllowedOrigins {
		c.Server.AllowedOrigins[i] = strings.TrimSpace(o)
	}
}

// expandHome resolves a leading ~ to the home directory. Paths it cannot
// expand are kept as written.
func expandHome(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Depot != "" {
		if err := errors.ValidateDepotID(c.Depot); err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "depot")
		}
	}
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if !(c.Viewport.Width > 0) || !(c.Viewport.Height > 0) {
		return errors.Config("viewport must be positive, got %vx%v", c.Viewport.Width, c.Viewport.Height)
	}
	if err := c.Camera.Build(c.Viewport.Width / c.Viewport.Height).Validate(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if c.Server.FPS <= 0 || c.Server.FPS > loop.MaxFPS {
		return errors.Config("server fps must be in [1, %d], got %d", loop.MaxFPS, c.Server.FPS)
	}
	if c.Server.SessionTTL.Duration <= 0 {
		return errors.Config("server session_ttl must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Config("unknown log level %q", c.Log.Level)
	}
	return nil
}

func (c *Config) validateProvider() error {
	p := c.Provider
	if p.Timeout.Duration < 0 || p.RefreshInterval.Duration < 0 {
		return errors.Config("provider durations must not be negative")
	}
	switch p.Kind {
	case ProviderFile:
		if p.Path == "" {
			return errors.Config("provider kind file needs a path")
		}
	case ProviderHTTP:
		if err := errors.ValidateURL(p.BaseURL); err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "provider base_url")
		}
	case ProviderMongo:
		if p.MongoURI == "" {
			return errors.Config("provider kind mongo needs a mongo_uri")
		}
	default:
		return errors.Config("unknown provider kind %q (want file, http or mongo)", p.Kind)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.TTL.Duration < 0 {
		return errors.Config("cache ttl must not be negative")
	}
	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.Config("cache backend redis needs a redis_addr")
		}
	default:
		return errors.Config("unknown cache backend %q (want none, file or redis)", c.Cache.Backend)
	}
	return nil
}
