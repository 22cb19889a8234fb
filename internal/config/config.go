package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"illuminator/internal/model"
)

// Config is the on-disk scenario shape (YAML).
type Config struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`

	OutputDir string `yaml:"output_dir"`

	Realtime RealtimeConfig `yaml:"realtime"`
	Agents   []AgentConfig  `yaml:"agents"`

	// basePath is the directory of the loaded file, used to resolve
	// relative profile paths.
	basePath string
}

type RealtimeConfig struct {
	BuyPrice  float64 `yaml:"buy_price"`
	SellPrice float64 `yaml:"sell_price"`
}

type AgentConfig struct {
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy"`
	Strict   bool   `yaml:"strict"`

	Generators []AssetConfig `yaml:"generators"`
	Demands    []AssetConfig `yaml:"demands"`
	Storages   []AssetConfig `yaml:"storages"`
}

// AssetConfig declares one managed asset. The forecast comes either from
// an inline slot->value profile or from a JSON profile file; if both are
// provided the inline values override the file per slot.
type AssetConfig struct {
	Name         string             `yaml:"name"`
	MarketMetric float64            `yaml:"market_metric"`
	PeerMetric   float64            `yaml:"peer_metric"`
	Profile      map[string]float64 `yaml:"profile"`
	ProfileFile  string             `yaml:"profile_file"`

	// Battery, when set, derives the asset's series as a projected state
	// of charge instead of a profile. Only meaningful for storages.
	Battery *BatteryConfig `yaml:"battery"`
}

type BatteryConfig struct {
	EnergyCapacityKWh   float64 `yaml:"energy_capacity_kwh"`
	PowerCapacityKW     float64 `yaml:"power_capacity_kw"`
	ChargeEfficiency    float64 `yaml:"charge_efficiency"`
	DischargeEfficiency float64 `yaml:"discharge_efficiency"`
	MinSOC              float64 `yaml:"min_soc"`
	MaxSOC              float64 `yaml:"max_soc"`
	InitialSOC          float64 `yaml:"initial_soc"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads a scenario file but does not validate it. Useful for
// debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.basePath = filepath.Dir(path)
	if c.OutputDir == "" {
		c.OutputDir = "Result"
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	start, err := model.ParseSlot(c.Start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := model.ParseSlot(c.End)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if !start.Before(end) {
		return errors.New("start must be before end")
	}
	if len(c.Agents) == 0 {
		return errors.New("at least one agent is required")
	}
	seen := map[string]bool{}
	for _, a := range c.Agents {
		if a.Name == "" {
			return errors.New("agent name is required")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
		for _, asset := range append(append(append([]AssetConfig{}, a.Generators...), a.Demands...), a.Storages...) {
			if asset.Name == "" {
				return fmt.Errorf("agent %s: asset name is required", a.Name)
			}
			if len(asset.Profile) == 0 && asset.ProfileFile == "" && asset.Battery == nil {
				return fmt.Errorf("agent %s asset %s: profile, profile_file or battery is required", a.Name, asset.Name)
			}
			if asset.Battery != nil {
				if err := asset.Battery.validate(); err != nil {
					return fmt.Errorf("agent %s asset %s: %w", a.Name, asset.Name, err)
				}
			}
		}
	}
	return nil
}

func (b *BatteryConfig) validate() error {
	params := b.ToModelParams()
	_, err := model.NewBattery(params, b.InitialSOC)
	return err
}

func (b *BatteryConfig) ToModelParams() model.BatteryParams {
	return model.BatteryParams{
		EnergyCapacityKWh:   b.EnergyCapacityKWh,
		PowerCapacityKW:     b.PowerCapacityKW,
		ChargeEfficiency:    b.ChargeEfficiency,
		DischargeEfficiency: b.DischargeEfficiency,
		MinSOC:              b.MinSOC,
		MaxSOC:              b.MaxSOC,
	}
}

// Horizon returns the parsed simulation window. Call after Validate.
func (c *Config) Horizon() (model.Slot, model.Slot) {
	start, _ := model.ParseSlot(c.Start)
	end, _ := model.ParseSlot(c.End)
	return start, end
}

// ResolvePath interprets a possibly relative path against the config file
// directory, falling back to the path as given.
func (c *Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) || c.basePath == "" {
		return p
	}
	cand := filepath.Join(c.basePath, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}
