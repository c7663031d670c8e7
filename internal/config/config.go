package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/typerush-backend/internal/engine"
	"github.com/DoyleJ11/typerush-backend/internal/leaderboard"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	Dev       bool   `yaml:"dev"`
	PromptDir string `yaml:"prompt_dir"`

	Store StoreConfig `yaml:"store"`
	Game  GameConfig  `yaml:"game"`
}

type StoreConfig struct {
	Kind        string `yaml:"kind"`
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

type GameConfig struct {
	Lives        int           `yaml:"lives"`
	TopN         int           `yaml:"top_n"`
	Tick         time.Duration `yaml:"tick"`
	EscalateEach int           `yaml:"escalate_every"`
	SpeedFactor  float64       `yaml:"speed_factor"`
	SpeedFloor   time.Duration `yaml:"speed_floor"`
}

func Default() Config {
	esc := engine.DefaultEscalation()
	rules := engine.DefaultRules()
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Store: StoreConfig{
			Kind: leaderboard.KindFile,
			Path: "data/leaderboard.json",
		},
		Game: GameConfig{
			Lives:        rules.InitialLives,
			TopN:         10,
			Tick:         time.Second,
			EscalateEach: rules.EscalateEvery,
			SpeedFactor:  esc.Factor,
			SpeedFloor:   esc.Floor,
		},
	}
}

// Load layers configuration: defaults, then the YAML file at path (or
// TYPERUSH_CONFIG), then environment variables. A .env file in the working
// directory is read first when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("TYPERUSH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("TYPERUSH_ADDR", &c.Addr)
	str("TYPERUSH_LOG_LEVEL", &c.LogLevel)
	str("TYPERUSH_PROMPT_DIR", &c.PromptDir)
	str("TYPERUSH_STORE", &c.Store.Kind)
	str("TYPERUSH_STORE_PATH", &c.Store.Path)
	str("DATABASE_URL", &c.Store.DatabaseURL)

	var errs []error
	parse := func(key string, set func(string) error) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		if err := set(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	parse("TYPERUSH_DEV", boolInto(&c.Dev))
	parse("TYPERUSH_LIVES", intInto(&c.Game.Lives))
	parse("TYPERUSH_TOP_N", intInto(&c.Game.TopN))
	parse("TYPERUSH_TICK", durationInto(&c.Game.Tick))
	parse("TYPERUSH_ESCALATE_EVERY", intInto(&c.Game.EscalateEach))
	parse("TYPERUSH_ESCALATE_FACTOR", floatInto(&c.Game.SpeedFactor))
	parse("TYPERUSH_ESCALATE_FLOOR", durationInto(&c.Game.SpeedFloor))
	return multierr.Combine(errs...)
}

func boolInto(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func intInto(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func floatInto(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func durationInto(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func (c Config) Validate() error {
	var problems []string
	if c.Game.Lives <= 0 {
		problems = append(problems, "lives must be positive")
	}
	if c.Game.TopN <= 0 {
		problems = append(problems, "top_n must be positive")
	}
	if c.Game.Tick <= 0 {
		problems = append(problems, "tick must be positive")
	}
	if c.Game.EscalateEach < 0 {
		problems = append(problems, "escalate_every cannot be negative")
	}
	if c.Game.SpeedFactor <= 0 || c.Game.SpeedFactor > 1 {
		problems = append(problems, "speed_factor must be in (0, 1]")
	}
	if c.Game.SpeedFloor < 0 {
		problems = append(problems, "speed_floor cannot be negative")
	}
	if c.Game.Tick > 0 && c.Game.SpeedFloor > c.Game.Tick {
		problems = append(problems, "speed_floor cannot exceed tick")
	}
	switch c.Store.Kind {
	case leaderboard.KindMemory:
	case leaderboard.KindFile, leaderboard.KindSQLite:
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for "+c.Store.Kind)
		}
	case leaderboard.KindPostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store kind %q", c.Store.Kind))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) Rules() engine.Rules {
	r := engine.DefaultRules()
	r.InitialLives = c.Game.Lives
	r.EscalateEvery = c.Game.EscalateEach
	return r
}

func (c Config) Escalation() engine.GeometricEscalation {
	return engine.GeometricEscalation{Factor: c.Game.SpeedFactor, Floor: c.Game.SpeedFloor}
}
