package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

// Config is everything a run can be tuned with. Values come from DefaultConfig, then the YAML
// file passed with -config, then SOLVER_* environment variables (a .env file is loaded first).
type Config struct {
	Store StoreConfig `yaml:"store"`
	// Data is a JSON catalog dump imported when the store holds no targets.
	Data string `yaml:"data"`
	// Addr is the listen address for serve.
	Addr string `yaml:"addr"`
	// CORSOrigins are the origins serve answers cross-origin requests from.
	CORSOrigins []string `yaml:"cors_origins"`
	// Workers caps concurrent solves in solve-all.
	Workers int          `yaml:"workers"`
	Solver  SolverConfig `yaml:"solver"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
}

// SolverConfig mirrors solver.Options.
type SolverConfig struct {
	// Tolerance is the EV one unit of success probability is worth. 0 ranks by strict EV alone.
	Tolerance float64 `yaml:"tolerance"`
	// GoalRanges overrides threshold ranges by goal name.
	GoalRanges      map[string]int `yaml:"goal_ranges"`
	MaxArenaEntries int            `yaml:"max_arena_entries"`
	PrintInterval   time.Duration  `yaml:"print_interval"`
}

// DefaultConfig returns the settings the stored results were produced with.
func DefaultConfig() Config {
	opts := solver.DefaultOptions()
	return Config{
		Store:       StoreConfig{Driver: "sqlite", DSN: "solver.db"},
		Addr:        ":8080",
		CORSOrigins: []string{"*"},
		Workers:     runtime.NumCPU(),
		Solver: SolverConfig{
			Tolerance:       *opts.Tolerance,
			MaxArenaEntries: opts.MaxArenaEntries,
			PrintInterval:   opts.PrintInterval,
		},
	}
}

// LoadConfig layers path (optional) and the environment over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SOLVER_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SOLVER_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("SOLVER_DATA"); v != "" {
		c.Data = v
	}
	if v := os.Getenv("SOLVER_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("SOLVER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SOLVER_WORKERS: %w", err)
		}
		c.Workers = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Store.Driver == "" {
		return fmt.Errorf("store driver is empty")
	}
	if c.Solver.Tolerance < 0 {
		return fmt.Errorf("solver tolerance must not be negative, got %g", c.Solver.Tolerance)
	}
	_, err := c.catalogue()
	return err
}

func (c Config) catalogue() (solver.Catalogue, error) {
	cat := solver.DefaultCatalogue
	for name, n := range c.Solver.GoalRanges {
		g, err := solver.ParseGoal(name)
		if err != nil {
			return cat, fmt.Errorf("goal_ranges: %w", err)
		}
		cat[g] = n
	}
	return cat, cat.Validate()
}

// SolverOptions builds solver options, sending progress to w.
func (c Config) SolverOptions(w io.Writer) (solver.Options, error) {
	cat, err := c.catalogue()
	if err != nil {
		return solver.Options{}, err
	}
	tol := c.Solver.Tolerance
	return solver.Options{
		Tolerance:       &tol,
		Catalogue:       cat,
		MaxArenaEntries: c.Solver.MaxArenaEntries,
		Progress:        w,
		PrintInterval:   c.Solver.PrintInterval,
	}, nil
}

// Verbose controls whether detailed search progress is printed to stderr.
var Verbose bool

func logw() *os.File { return os.Stderr }

// progressw is where solver progress goes: stderr when verbose, nowhere otherwise.
func progressw() io.Writer {
	if Verbose {
		return logw()
	}
	return nil
}
