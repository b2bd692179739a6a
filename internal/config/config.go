package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Layout holds the force and integration settings of a run.
type Layout struct {
	Dim int `yaml:"dim" validate:"oneof=2 3"`

	// force model
	AntiGravity         float64 `yaml:"anti_gravity" validate:"gte=0"`
	LinkStrength        float64 `yaml:"link_strength" validate:"gte=0"`
	CloseRepulsion      bool    `yaml:"close_repulsion"`
	UseRefFreq          bool    `yaml:"use_ref_freq"`
	TransitiveReduction bool    `yaml:"transitive_reduction"`
	ReductionDepth      int     `yaml:"reduction_depth" validate:"gte=0"` // 0 = unbounded
	Theta               float64 `yaml:"theta" validate:"gte=0"`
	Workers             int     `yaml:"workers" validate:"gte=0"` // 0 = GOMAXPROCS

	// integration
	StepSize        float64 `yaml:"step_size" validate:"gt=0"`
	LoadedStepSize  float64 `yaml:"loaded_step_size" validate:"gte=0"` // used once stored positions were loaded
	MaxDisplacement float64 `yaml:"max_displacement" validate:"gte=0"`
	Tolerance       float64 `yaml:"tolerance" validate:"gte=0"`
	MaxIterations   int     `yaml:"max_iterations" validate:"gt=0"`
	AdaptiveStep    bool    `yaml:"adaptive_step"`

	// hierarchy
	MinNodes     int     `yaml:"min_nodes" validate:"gte=0"`
	MinReduction float64 `yaml:"min_reduction" validate:"gte=0,lt=1"`
	MaxLevels    int     `yaml:"max_levels" validate:"gte=0"`
	Jitter       float64 `yaml:"jitter" validate:"gte=0"`

	// placement
	Extent       float64 `yaml:"extent" validate:"gt=0"`
	Seed         int     `yaml:"seed" validate:"gte=0"` // 0 = time based
	FreezeLoaded bool    `yaml:"freeze_loaded"`
}

// Sources names where papers come from and where positions go.
type Sources struct {
	PapersFile     string `yaml:"papers_file"`
	ExtraLinksFile string `yaml:"extra_links_file"`
	MetaTable      string `yaml:"meta_table" validate:"required"`
	CiteTable      string `yaml:"cite_table" validate:"required"`
	PositionsTable string `yaml:"positions_table" validate:"required"`
	RunsTable      string `yaml:"runs_table" validate:"required"`
}

type Config struct {
	Layout  Layout  `yaml:"layout"`
	Sources Sources `yaml:"sources"`

	LogLevel       string        `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	MetricsAddr    string        `yaml:"metrics_addr" validate:"required"` // ops server listen address
	LayoutInterval time.Duration `yaml:"interval" validate:"gt=0"`         // periodic job interval
	CacheMaxMB     int           `yaml:"cache_max_mb" validate:"gte=0"`    // 0 disables the snapshot cache
	CacheTTL       time.Duration `yaml:"cache_ttl" validate:"gte=0"`

	// Connection strings and credentials come from the environment only.
	DatabaseURL       string  `yaml:"-"`
	OTELEnabled       bool    `yaml:"-"`
	OTELEndpoint      string  `yaml:"-"`
	OTELSampleRate    float64 `yaml:"-" validate:"gte=0,lte=1"`
	SentryDSN         string  `yaml:"-"`
	SentryEnvironment string  `yaml:"-"`
	SentryRelease     string  `yaml:"-"`
	SentrySampleRate  float64 `yaml:"-" validate:"gte=0,lte=1"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Layout: Layout{
			Dim:             2,
			AntiGravity:     0.5,
			LinkStrength:    1.1,
			UseRefFreq:      true,
			Theta:           0.8,
			StepSize:        1,
			LoadedStepSize:  0.1,
			MaxDisplacement: 10,
			Tolerance:       1e-3,
			MaxIterations:   500,
			MinNodes:        16,
			MinReduction:    0.05,
			MaxLevels:       32,
			Jitter:          0.5,
			Extent:          100,
		},
		Sources: Sources{
			PositionsTable: "paper_positions",
			RunsTable:      "layout_runs",
			MetaTable:      "meta_data",
			CiteTable:      "pcite",
		},
		LogLevel:       "info",
		MetricsAddr:    ":9090",
		LayoutInterval: time.Hour,
		CacheMaxMB:     64,
		CacheTTL:       30 * time.Minute,
	}
}

var cached *Config

// Load builds the configuration from defaults, then the YAML file named by
// LAYOUT_CONFIG_FILE if set, then environment variables. The result is
// cached for the life of the process.
func Load() (*Config, error) {
	if cached != nil {
		return cached, nil
	}
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("LAYOUT_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cached = &cfg
	return cached, nil
}

func ResetForTest() { cached = nil }

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	l := &c.Layout
	l.Dim = GetEnvAsInt("LAYOUT_DIM", l.Dim)
	l.AntiGravity = GetEnvAsFloat("LAYOUT_ANTI_GRAVITY", l.AntiGravity)
	l.LinkStrength = GetEnvAsFloat("LAYOUT_LINK_STRENGTH", l.LinkStrength)
	l.CloseRepulsion = GetEnvAsBool("LAYOUT_CLOSE_REPULSION", l.CloseRepulsion)
	l.UseRefFreq = GetEnvAsBool("LAYOUT_USE_REF_FREQ", l.UseRefFreq)
	l.TransitiveReduction = GetEnvAsBool("LAYOUT_TRANSITIVE_REDUCTION", l.TransitiveReduction)
	l.ReductionDepth = GetEnvAsInt("LAYOUT_REDUCTION_DEPTH", l.ReductionDepth)
	l.Theta = GetEnvAsFloat("LAYOUT_THETA", l.Theta)
	l.Workers = GetEnvAsInt("LAYOUT_WORKERS", l.Workers)
	l.StepSize = GetEnvAsFloat("LAYOUT_STEP_SIZE", l.StepSize)
	l.LoadedStepSize = GetEnvAsFloat("LAYOUT_LOADED_STEP_SIZE", l.LoadedStepSize)
	l.MaxDisplacement = GetEnvAsFloat("LAYOUT_MAX_DISPLACEMENT", l.MaxDisplacement)
	l.Tolerance = GetEnvAsFloat("LAYOUT_TOLERANCE", l.Tolerance)
	l.MaxIterations = GetEnvAsInt("LAYOUT_MAX_ITERATIONS", l.MaxIterations)
	l.AdaptiveStep = GetEnvAsBool("LAYOUT_ADAPTIVE_STEP", l.AdaptiveStep)
	l.MinNodes = GetEnvAsInt("LAYOUT_MIN_NODES", l.MinNodes)
	l.MinReduction = GetEnvAsFloat("LAYOUT_MIN_REDUCTION", l.MinReduction)
	l.MaxLevels = GetEnvAsInt("LAYOUT_MAX_LEVELS", l.MaxLevels)
	l.Jitter = GetEnvAsFloat("LAYOUT_JITTER", l.Jitter)
	l.Extent = GetEnvAsFloat("LAYOUT_EXTENT", l.Extent)
	l.Seed = GetEnvAsInt("LAYOUT_SEED", l.Seed)
	l.FreezeLoaded = GetEnvAsBool("LAYOUT_FREEZE_LOADED", l.FreezeLoaded)

	s := &c.Sources
	s.PapersFile = GetEnvAsString("PAPERS_FILE", s.PapersFile)
	s.ExtraLinksFile = GetEnvAsString("EXTRA_LINKS_FILE", s.ExtraLinksFile)
	s.MetaTable = GetEnvAsString("META_TABLE", s.MetaTable)
	s.CiteTable = GetEnvAsString("CITE_TABLE", s.CiteTable)
	s.PositionsTable = GetEnvAsString("POSITIONS_TABLE", s.PositionsTable)
	s.RunsTable = GetEnvAsString("RUNS_TABLE", s.RunsTable)

	c.LogLevel = strings.ToLower(GetEnvAsString("LOG_LEVEL", c.LogLevel))
	c.MetricsAddr = GetEnvAsString("METRICS_ADDR", c.MetricsAddr)
	c.LayoutInterval = time.Duration(GetEnvAsInt("LAYOUT_INTERVAL_MIN", int(c.LayoutInterval/time.Minute))) * time.Minute
	c.CacheMaxMB = GetEnvAsInt("CACHE_MAX_MB", c.CacheMaxMB)
	c.CacheTTL = GetEnvAsDuration("CACHE_TTL", c.CacheTTL)

	c.DatabaseURL = GetEnvAsString("DATABASE_URL", "")
	c.OTELEnabled = GetEnvAsBool("OTEL_ENABLED", false)
	c.OTELEndpoint = GetEnvAsString("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	c.OTELSampleRate = GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1)
	c.SentryDSN = GetEnvAsString("SENTRY_DSN", "")
	c.SentryEnvironment = GetEnvAsString("SENTRY_ENVIRONMENT", GetEnvAsString("ENV", "development"))
	c.SentryRelease = GetEnvAsString("SENTRY_RELEASE", "")
	c.SentrySampleRate = GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their YAML key
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate rejects settings the layout engine cannot run with.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// strip the root struct name
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s, got %v", field, rule, fe.Value()))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}
