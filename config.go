package optimade

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hugr-lab/optimade-go/catalog"
	"github.com/hugr-lab/optimade-go/filter"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. OPTIMADE_PAGE_LIMIT or OPTIMADE_PROVIDER_PREFIX.
const EnvPrefix = "OPTIMADE"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
)

// Standard errors returned by optimade package.
var (
	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
)

// ProviderConfig describes the database provider.
type ProviderConfig struct {
	Prefix       string `mapstructure:"prefix"`
	Name         string `mapstructure:"name"`
	Description  string `mapstructure:"description"`
	Homepage     string `mapstructure:"homepage"`
	IndexBaseURL string `mapstructure:"index_base_url"`
}

// ProviderFieldConfig declares one provider-specific property.
type ProviderFieldConfig struct {
	// Name without the provider prefix.
	Name string `mapstructure:"name"`

	// Alias is the storage name. OPTIONAL: defaults to the prefixed name.
	Alias string `mapstructure:"alias"`

	// Type is a ParseFieldType name. OPTIONAL: defaults to string.
	Type string `mapstructure:"type"`

	Description string `mapstructure:"description"`
	Sortable    bool   `mapstructure:"sortable"`
}

// TokenConfig maps a bearer token to the identity it authenticates.
type TokenConfig struct {
	Token    string `mapstructure:"token"`
	Identity string `mapstructure:"identity"`
}

// ServerConfig contains configuration for the OPTIMADE server.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	// OPTIONAL: defaults to ":5000".
	Listen string `mapstructure:"listen"`

	// BaseURL prefixes links in responses.
	// OPTIONAL: if empty, derived from each request.
	BaseURL string `mapstructure:"base_url"`

	// APIVersion is the reported API version, also used for URL prefixes.
	APIVersion string `mapstructure:"api_version"`

	// GrammarVersion selects the filter grammar.
	GrammarVersion string `mapstructure:"grammar_version"`

	// PageLimit is the default page size; PageLimitMax the largest a client may request.
	PageLimit    int `mapstructure:"page_limit"`
	PageLimitMax int `mapstructure:"page_limit_max"`

	// QueryTimeout bounds the store calls of one request.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`

	// DefaultDB names the database holding the entry tables. With the duckdb
	// backend tables are named <default_db>_<endpoint>.
	DefaultDB string `mapstructure:"default_db"`

	// Index serves an index meta-database: only the links endpoint, with
	// DefaultDB as the default child database reported by /info.
	Index bool `mapstructure:"index"`

	// Backend is the document store: "memory" or "duckdb".
	Backend string `mapstructure:"backend"`

	DuckDB struct {
		// Path of the database file. OPTIONAL: empty opens an in-memory database.
		Path string `mapstructure:"path"`
	} `mapstructure:"duckdb"`

	Provider ProviderConfig `mapstructure:"provider"`

	// ProviderFields lists provider-specific properties per endpoint.
	ProviderFields map[string][]ProviderFieldConfig `mapstructure:"provider_fields"`

	// Dataset maps endpoints to seed files (see internal/dataset for formats).
	// OPTIONAL: endpoints without a file start empty.
	Dataset map[string]string `mapstructure:"dataset"`

	Log struct {
		// Level is debug, info, warn or error.
		Level string `mapstructure:"level"`
		// Format is text or json.
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Auth struct {
		// Tokens enables bearer authentication. OPTIONAL: empty disables auth.
		Tokens []TokenConfig `mapstructure:"tokens"`
	} `mapstructure:"auth"`

	// Logger for internal logging.
	// OPTIONAL: if nil, a logger is created from Log.
	Logger *slog.Logger `mapstructure:"-"`
}

// DefaultConfig returns the configuration used when no file or environment overrides are given.
// Environment variables are not consulted, so decoding can only fail on a
// broken default, which panics.
func DefaultConfig() *ServerConfig {
	v := defaultViper()
	var c ServerConfig
	if err := v.Unmarshal(&c); err != nil {
		panic("optimade: default config does not decode: " + err.Error())
	}
	return &c
}

func newViper() *viper.Viper {
	v := defaultViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func defaultViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("listen", ":5000")
	v.SetDefault("base_url", "")
	v.SetDefault("api_version", "0.10.0")
	v.SetDefault("grammar_version", filter.DefaultVersion)
	v.SetDefault("page_limit", 20)
	v.SetDefault("page_limit_max", 500)
	v.SetDefault("query_timeout", "10s")
	v.SetDefault("default_db", "test_server")
	v.SetDefault("index", false)
	v.SetDefault("backend", BackendMemory)
	v.SetDefault("duckdb.path", "")
	v.SetDefault("provider.prefix", "_exmpl_")
	v.SetDefault("provider.name", "Example provider")
	v.SetDefault("provider.description", "Provider used for examples, not to be assigned to a real database")
	v.SetDefault("provider.homepage", "http://example.com")
	v.SetDefault("provider.index_base_url", "http://example.com/optimade/index")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	return v
}

// LoadConfig reads the configuration file at path (JSON, YAML or TOML,
// picked by extension) and applies OPTIMADE_* environment overrides.
// An empty path loads defaults and environment only.
func LoadConfig(path string) (*ServerConfig, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
		}
	}

	var c ServerConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that the configuration is usable.
func (c *ServerConfig) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *ServerConfig) validate() error {
	if c.PageLimit <= 0 {
		return fmt.Errorf("page_limit must be positive, got %d", c.PageLimit)
	}
	if c.PageLimitMax < c.PageLimit {
		return fmt.Errorf("page_limit_max %d is below page_limit %d", c.PageLimitMax, c.PageLimit)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive, got %s", c.QueryTimeout)
	}
	if _, err := filter.LookupGrammar(c.GrammarVersion, filter.DefaultVariant); err != nil {
		return err
	}
	switch c.Backend {
	case BackendMemory, BackendDuckDB:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if p := c.Provider.Prefix; len(p) < 3 || !strings.HasPrefix(p, "_") || !strings.HasSuffix(p, "_") {
		return fmt.Errorf("provider prefix %q must be enclosed in underscores", p)
	}
	for endpoint, fields := range c.ProviderFields {
		for _, f := range fields {
			if f.Name == "" {
				return fmt.Errorf("provider field of %s without a name", endpoint)
			}
			if _, err := ParseFieldType(f.Type); err != nil {
				return fmt.Errorf("provider field %s.%s: %w", endpoint, f.Name, err)
			}
		}
	}
	for i, t := range c.Auth.Tokens {
		if t.Token == "" {
			return fmt.Errorf("auth token %d is empty", i)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// providerFieldDefs converts the configured provider fields to builder definitions.
func (c *ServerConfig) providerFieldDefs() (map[string][]FieldDef, error) {
	out := make(map[string][]FieldDef, len(c.ProviderFields))
	for endpoint, fields := range c.ProviderFields {
		for _, f := range fields {
			dt, err := ParseFieldType(f.Type)
			if err != nil {
				return nil, err
			}
			out[endpoint] = append(out[endpoint], FieldDef{
				Name:        f.Name,
				Alias:       f.Alias,
				Type:        dt,
				Description: f.Description,
				Sortable:    f.Sortable,
			})
		}
	}
	return out, nil
}

// Catalogue builds the field catalogue of the built-in entry types with the
// configured provider fields.
func (c *ServerConfig) Catalogue() (catalog.Catalogue, error) {
	defs, err := c.providerFieldDefs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cat, err := NewCatalogue(c.Provider.Prefix, defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cat, nil
}

// NewLogger creates a logger writing to w with the configured level and format.
func (c *ServerConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
