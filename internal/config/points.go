package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"example.com/fitproof/internal/points"
)

// LoadPointsConfig merges a TOML overrides file over points.DefaultConfig.
// Each table present in the file replaces the matching default section wholesale.
// An empty path returns the defaults.
func LoadPointsConfig(path string) (points.Config, error) {
	cfg := points.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return points.Config{}, fmt.Errorf("read points config: %w", err)
	}
	return ParsePointsConfig(data)
}

// ParsePointsConfig decodes TOML overrides and merges them over the defaults.
func ParsePointsConfig(data []byte) (points.Config, error) {
	var overrides points.Overrides
	md, err := toml.Decode(string(data), &overrides)
	if err != nil {
		return points.Config{}, fmt.Errorf("decode points config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return points.Config{}, fmt.Errorf("decode points config: unknown key %q", undecoded[0].String())
	}
	return points.DefaultConfig().Merge(overrides), nil
}
