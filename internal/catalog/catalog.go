// Package catalog loads the static reference data of the supervisor: roles,
// default skill configs, the TWTTP questionnaire and the HERCA factor list.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// SkillEntry is one default skill config.
type SkillEntry struct {
	Name        string         `yaml:"name" json:"name"`
	Topic       string         `yaml:"topic" json:"topic"`
	RolePrereqs map[string]int `yaml:"rolePrereqs" json:"rolePrereqs"`
}

// Factor is one HERCA checklist entry.
type Factor struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

// Catalog is the decoded reference data.
type Catalog struct {
	Version      int          `yaml:"version" json:"version"`
	Roles        []string     `yaml:"roles" json:"roles"`
	Skills       []SkillEntry `yaml:"skills" json:"skills"`
	TWTTP        []string     `yaml:"twttp" json:"twttp"`
	TWTTPAnswers []string     `yaml:"twttpAnswers" json:"twttpAnswers"`
	HERCAFactors []Factor     `yaml:"hercaFactors" json:"hercaFactors"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads the catalog at path, falling back to the embedded default when
// path is empty or the file does not exist.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(c.TWTTP) == 0 {
		return nil, errors.New("catalog: twttp questionnaire is empty")
	}
	seen := make(map[string]bool)
	for i, s := range c.Skills {
		key := domain.CanonicalKey(s.Name)
		if key == "" {
			return nil, fmt.Errorf("catalog: skill %d has no name", i)
		}
		if seen[key] {
			return nil, fmt.Errorf("catalog: duplicate skill %q", s.Name)
		}
		seen[key] = true
		for role, lvl := range s.RolePrereqs {
			if lvl < 0 || lvl > domain.MaxSkillLevel {
				return nil, fmt.Errorf("catalog: skill %q role %q: level %d out of range", s.Name, role, lvl)
			}
		}
	}
	return &c, nil
}

// SkillConfigs converts the default skills into tenant-owned configs.
// ID generation is left to the caller.
func (c *Catalog) SkillConfigs(uid string) []domain.SkillConfig {
	out := make([]domain.SkillConfig, 0, len(c.Skills))
	for _, s := range c.Skills {
		prereqs := make(map[string]int, len(s.RolePrereqs))
		for role, lvl := range s.RolePrereqs {
			prereqs[role] = lvl
		}
		cfg := domain.SkillConfig{UID: uid, Name: s.Name, Topic: s.Topic, RolePrereqs: prereqs}
		cfg.Normalize()
		out = append(out, cfg)
	}
	return out
}

// TWTTPTemplate returns an unanswered questionnaire.
func (c *Catalog) TWTTPTemplate() domain.TWTTP {
	out := make(domain.TWTTP, 0, len(c.TWTTP))
	for _, q := range c.TWTTP {
		out = append(out, domain.TWTTPAnswer{Question: q})
	}
	return out
}
