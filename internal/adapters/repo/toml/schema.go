package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int       `toml:"version"`
	API     apiSchema `toml:"api"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported settings schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type apiSchema struct {
	Debug bool `toml:"debug"`
	// BaseURL overrides the production API endpoint, honored only when
	// Debug is true.
	BaseURL string `toml:"base_url,omitempty"`
}
