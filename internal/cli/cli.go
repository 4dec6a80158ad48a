// Package cli implements the depotview command-line interface.
package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depotview/pkg/buildinfo"
	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/errors"
)

const appName = "depotview"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Output formats of the render command.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatDOT  = "dot"
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	flags      overrides
}

// overrides are the persistent flags applied on top of the config file.
type overrides struct {
	provider string
	path     string
	baseURL  string
	apiKey   string
	mongoURI string
	cache    string
	noCache  bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "depotview shows warehouse stock as an interactive 3D scene",
		Long: `depotview fetches the storage locations of a depot, turns their stock
into a field of colored boxes and lets you explore them: export the scene,
serve it to browsers, or inspect it right in the terminal.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "config file (default ~/.config/depotview/config.toml)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&c.flags.provider, "provider", "", "data provider: file, http or mongo")
	pf.StringVar(&c.flags.path, "path", "", "record file or directory (file provider)")
	pf.StringVar(&c.flags.baseURL, "base-url", "", "warehouse API root (http provider)")
	pf.StringVar(&c.flags.apiKey, "api-key", "", "warehouse API function key (http provider)")
	pf.StringVar(&c.flags.mongoURI, "mongo-uri", "", "MongoDB connection string (mongo provider)")
	pf.StringVar(&c.flags.cache, "cache", "", "response cache: none, file or redis")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable the response cache")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.statesCommand())
	root.AddCommand(c.depotsCommand())
	root.AddCommand(c.categoriesCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and applies the flags.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	f := c.flags
	if f.provider != "" {
		cfg.Provider.Kind = f.provider
	}
	if f.path != "" {
		cfg.Provider.Path = f.path
		if f.provider == "" {
			cfg.Provider.Kind = config.ProviderFile
		}
	}
	if f.baseURL != "" {
		cfg.Provider.BaseURL = f.baseURL
		if f.provider == "" && f.path == "" {
			cfg.Provider.Kind = config.ProviderHTTP
		}
	}
	if f.apiKey != "" {
		cfg.Provider.APIKey = f.apiKey
	}
	if f.mongoURI != "" {
		cfg.Provider.MongoURI = f.mongoURI
		if f.provider == "" && f.path == "" && f.baseURL == "" {
			cfg.Provider.Kind = config.ProviderMongo
		}
	}
	if f.cache != "" {
		cfg.Cache.Backend = f.cache
	}
	if f.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if !c.verbose && cfg.Log.Level != "" {
		if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
			c.SetLogLevel(lvl)
		}
	}
	return cfg, nil
}

// depotArg returns the depot named on the command line, or the configured
// one.
func depotArg(args []string, cfg config.Config) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], errors.ValidateDepotID(args[0])
	}
	if cfg.Depot == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "no depot given: pass one as argument or set depot in the config")
	}
	return cfg.Depot, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{FormatJSON}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
