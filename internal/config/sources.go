package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SourceRegistry maps source names to catalog endpoint URLs.
type SourceRegistry struct {
	Sources map[string]string `yaml:"sources"`
}

// LoadSources reads a source registry from a YAML file.
func LoadSources(path string) (*SourceRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources file %s", path)
	}

	var reg SourceRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, eris.Wrapf(err, "config: parse sources file %s", path)
	}
	if len(reg.Sources) == 0 {
		return nil, eris.Errorf("config: no sources defined in %s", path)
	}

	return &reg, nil
}
