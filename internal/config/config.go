package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"
)

const configRelPath = "chess-evalboard/config.yaml"

type EngineConfig struct {
	MoveTimeMS int `yaml:"movetime_ms"`
	Depth      int `yaml:"depth"`
	Nodes      int `yaml:"nodes"`
	Threads    int `yaml:"threads"`
	HashMB     int `yaml:"hash_mb"`
	// Budget names the search budget the board evaluates with. Empty means
	// the limits above.
	Budget string `yaml:"budget"`
}

// BudgetConfig declares an extra named search budget.
type BudgetConfig struct {
	Name       string `yaml:"name"`
	MoveTimeMS int    `yaml:"movetime_ms"`
	Depth      int    `yaml:"depth"`
	Nodes      int    `yaml:"nodes"`
}

type BoardConfig struct {
	Edge          int `yaml:"edge"`
	ClampCP       int `yaml:"clamp_cp"`
	BarHalfHeight int `yaml:"bar_half_height"`
}

type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTLSec   int    `yaml:"ttl_sec"`
	Size     int    `yaml:"size"`
}

type AppConfig struct {
	StockfishPath string         `yaml:"stockfish_path"`
	Engine        EngineConfig   `yaml:"engine"`
	Board         BoardConfig    `yaml:"board"`
	Cache         CacheConfig    `yaml:"cache"`
	Budgets       []BudgetConfig `yaml:"budgets"`
	MessagesDir   string         `yaml:"messages_dir"`

	// Source is the file the values were read from, empty when none was found.
	Source string `yaml:"-"`
}

func Defaults() *AppConfig {
	return &AppConfig{
		StockfishPath: "stockfish",
		Engine: EngineConfig{
			MoveTimeMS: 100,
			Threads:    1,
			HashMB:     16,
		},
		Board: BoardConfig{
			Edge:          800,
			ClampCP:       1000,
			BarHalfHeight: 200,
		},
		Cache: CacheConfig{
			TTLSec: 86400,
			Size:   512,
		},
	}
}

// Load applies defaults, then the YAML file named by EVALBOARD_CONFIG or
// found under the XDG config dirs, then environment overrides.
func Load() (*AppConfig, error) {
	cfg := Defaults()

	path := strings.TrimSpace(os.Getenv("EVALBOARD_CONFIG"))
	if path == "" {
		if found, err := xdg.SearchConfigFile(configRelPath); err == nil {
			path = found
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func (c *AppConfig) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		c.StockfishPath = v
	}
	if v := strings.TrimSpace(os.Getenv("EVAL_CACHE_REDIS_URL")); v != "" {
		c.Cache.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		c.MessagesDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_BUDGET")); v != "" {
		c.Engine.Budget = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ENGINE_MOVETIME_MS", &c.Engine.MoveTimeMS},
		{"ENGINE_DEPTH", &c.Engine.Depth},
		{"ENGINE_NODES", &c.Engine.Nodes},
		{"ENGINE_THREADS", &c.Engine.Threads},
		{"ENGINE_HASH_MB", &c.Engine.HashMB},
		{"BOARD_EDGE", &c.Board.Edge},
		{"EVAL_CLAMP_CP", &c.Board.ClampCP},
		{"EVAL_CACHE_TTL_SEC", &c.Cache.TTLSec},
		{"EVAL_CACHE_SIZE", &c.Cache.Size},
	}
	for _, it := range ints {
		v := strings.TrimSpace(os.Getenv(it.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", it.key, v)
		}
		*it.dst = n
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.StockfishPath) == "" {
		errs = append(errs, errors.New("stockfish_path is required"))
	}
	if c.Engine.MoveTimeMS < 0 || c.Engine.Depth < 0 || c.Engine.Nodes < 0 {
		errs = append(errs, errors.New("engine limits must not be negative"))
	}
	if c.Engine.MoveTimeMS == 0 && c.Engine.Depth == 0 && c.Engine.Nodes == 0 {
		errs = append(errs, errors.New("engine needs a movetime, depth or node limit"))
	}
	seen := make(map[string]bool, len(c.Budgets))
	for i, b := range c.Budgets {
		name := strings.ToLower(strings.TrimSpace(b.Name))
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("budgets[%d]: name is required", i))
		case seen[name]:
			errs = append(errs, fmt.Errorf("budgets[%d]: duplicate name %q", i, b.Name))
		}
		seen[name] = true
		if b.MoveTimeMS < 0 || b.Depth < 0 || b.Nodes < 0 {
			errs = append(errs, fmt.Errorf("budget %q: limits must not be negative", b.Name))
		}
		if b.MoveTimeMS == 0 && b.Depth == 0 && b.Nodes == 0 {
			errs = append(errs, fmt.Errorf("budget %q: needs a movetime, depth or node limit", b.Name))
		}
	}
	if c.Engine.Threads < 0 || c.Engine.HashMB < 0 {
		errs = append(errs, errors.New("engine threads and hash must not be negative"))
	}
	if c.Board.Edge < 64 {
		errs = append(errs, fmt.Errorf("board edge %d too small (min 64)", c.Board.Edge))
	}
	if c.Board.ClampCP <= 0 {
		errs = append(errs, errors.New("clamp_cp must be positive"))
	}
	if c.Board.BarHalfHeight <= 0 {
		errs = append(errs, errors.New("bar_half_height must be positive"))
	}
	if c.Cache.TTLSec < 0 || c.Cache.Size < 0 {
		errs = append(errs, errors.New("cache ttl and size must not be negative"))
	}
	return errors.Join(errs...)
}
