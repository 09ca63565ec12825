// Package config loads and validates the YAML sweep definition.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"quant-sweep-lab/internal/metrics"
)

// Range describes an inclusive integer window sweep, from..to by step.
type Range struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
	Step int `yaml:"step"`
}

func (r Range) count() int {
	if r.Step <= 0 || r.To < r.From {
		return 0
	}
	return (r.To-r.From)/r.Step + 1
}

// Config holds everything one sweep run needs. LoadConfig reads it from a
// YAML file and then applies environment overrides for credentials.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Data struct {
		// Format selects the bar reader: "csv" or "parquet".
		Format string `yaml:"format"`
		Path   string `yaml:"path"`
		Symbol string `yaml:"symbol"`
	} `yaml:"data"`

	Grid struct {
		Fast Range `yaml:"fast"`
		Slow Range `yaml:"slow"`

		// StopPct/TargetPct are decimals in the file ("0.02") so config
		// round-trips exactly; they reach the strategy as float64.
		StopPct   decimal.Decimal `yaml:"stop_pct"`
		TargetPct decimal.Decimal `yaml:"target_pct"`
	} `yaml:"grid"`

	Funnel struct {
		TopK         int   `yaml:"top_k"`
		Workers      int   `yaml:"workers"`
		OrderQty     int32 `yaml:"order_qty"`
		RetainFills  bool  `yaml:"retain_fills"`
		RetainEquity bool  `yaml:"retain_equity"`
	} `yaml:"funnel"`

	Gate struct {
		MemLimitMB          int     `yaml:"mem_limit_mb"`
		AllowAutoDownsample bool    `yaml:"allow_auto_downsample"`
		MinSubsampleRate    float64 `yaml:"min_subsample_rate"`
	} `yaml:"gate"`

	Costs struct {
		Commission decimal.Decimal `yaml:"commission"`
		Slippage   decimal.Decimal `yaml:"slippage"`
	} `yaml:"costs"`

	Storage struct {
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses a sweep definition file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Data.Format {
	case "csv", "parquet":
	default:
		return fmt.Errorf("unknown data format %q", c.Data.Format)
	}
	if c.Data.Path == "" {
		return fmt.Errorf("data path is required")
	}

	if c.Grid.Fast.count() == 0 {
		return fmt.Errorf("empty fast window range %+v", c.Grid.Fast)
	}
	if c.Grid.Slow.count() == 0 {
		return fmt.Errorf("empty slow window range %+v", c.Grid.Slow)
	}
	if c.Grid.StopPct.IsNegative() || c.Grid.TargetPct.IsNegative() {
		return fmt.Errorf("stop/target offsets must be non-negative")
	}

	if c.Funnel.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Funnel.TopK)
	}

	if c.Gate.MemLimitMB < 0 {
		return fmt.Errorf("mem_limit_mb must be non-negative, got %d", c.Gate.MemLimitMB)
	}
	if r := c.Gate.MinSubsampleRate; r < 0 || r > 1 {
		return fmt.Errorf("min_subsample_rate %g outside [0, 1]", r)
	}

	if c.Costs.Commission.IsNegative() || c.Costs.Slippage.IsNegative() {
		return fmt.Errorf("costs must be non-negative")
	}
	return nil
}

// ExpandGrid enumerates every (fast, slow) pair of the configured ranges as
// a parameter row, fast varying fastest. Pairs with fast >= slow are kept:
// the proxy stage scores them -Inf and they drop out of the ranking.
func (c *Config) ExpandGrid() [][]float64 {
	stop := c.Grid.StopPct.InexactFloat64()
	target := c.Grid.TargetPct.InexactFloat64()
	wide := stop > 0 || target > 0

	grid := make([][]float64, 0, c.Grid.Fast.count()*c.Grid.Slow.count())
	for slow := c.Grid.Slow.From; slow <= c.Grid.Slow.To; slow += c.Grid.Slow.Step {
		for fast := c.Grid.Fast.From; fast <= c.Grid.Fast.To; fast += c.Grid.Fast.Step {
			if wide {
				grid = append(grid, []float64{float64(fast), float64(slow), stop, target})
			} else {
				grid = append(grid, []float64{float64(fast), float64(slow)})
			}
		}
	}
	return grid
}

// TradingCosts converts the decimal cost fields for the metrics layer.
func (c *Config) TradingCosts() metrics.Costs {
	return metrics.Costs{
		Commission: c.Costs.Commission.InexactFloat64(),
		Slippage:   c.Costs.Slippage.InexactFloat64(),
	}
}

// overrideWithEnv replaces credential-bearing fields from the environment
// when set, so DSNs never have to live in the file.
func overrideWithEnv(cfg *Config) {
	if dsn := os.Getenv("QSL_POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if dsn := os.Getenv("QSL_CLICKHOUSE_DSN"); dsn != "" {
		cfg.Storage.ClickhouseDSN = dsn
	}
}
