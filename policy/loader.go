package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/* Loader manages repository policies from policy.yaml
 * Provides in-memory lookup for fast access; repositories without an
 * entry fall back to Default
 */

// Config represents the structure of policy.yaml
type Config struct {
	Policies []PolicyConfig `yaml:"policies"`
}

// PolicyConfig represents a single repository entry in the YAML file
type PolicyConfig struct {
	Repository        string  `yaml:"repository"`
	CheckName         string  `yaml:"check_name"`
	ArtifactName      string  `yaml:"artifact_name"`
	ThresholdOverride float64 `yaml:"threshold_override"` // Optional: replaces the artifact's threshold
	OnError           string  `yaml:"on_error"`           // Optional: neutral (default) or failure
}

// Loader holds the loaded policies
type Loader struct {
	policies map[string]*Policy
}

// NewLoader creates an empty loader; every repository gets Default.
func NewLoader() *Loader {
	return &Loader{
		policies: make(map[string]*Policy),
	}
}

// LoadFromFile reads and validates policies from a YAML file
func LoadFromFile(path string) (*Loader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates policies from YAML content
func LoadFromBytes(data []byte) (*Loader, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing policy yaml: %w", err)
	}

	loader := NewLoader()
	for _, pc := range config.Policies {
		policy := fromConfig(pc)
		if err := policy.Validate(); err != nil {
			return nil, fmt.Errorf("validating policy: %w", err)
		}
		if _, exists := loader.policies[policy.Repository]; exists {
			return nil, fmt.Errorf("duplicate policy for repository %s", policy.Repository)
		}
		loader.policies[policy.Repository] = policy
	}
	return loader, nil
}

// Get returns the policy for a repository, falling back to Default.
func (l *Loader) Get(repository string) Policy {
	if p, ok := l.policies[repository]; ok {
		return *p
	}
	return Default(repository)
}

// Len returns the number of explicit policy entries.
func (l *Loader) Len() int {
	return len(l.policies)
}

// fromConfig applies defaults to a YAML entry.
func fromConfig(pc PolicyConfig) *Policy {
	p := &Policy{
		Repository:        pc.Repository,
		CheckName:         pc.CheckName,
		ArtifactName:      pc.ArtifactName,
		ThresholdOverride: pc.ThresholdOverride,
		OnError:           pc.OnError,
	}
	if p.CheckName == "" {
		p.CheckName = DefaultCheckName
	}
	if p.ArtifactName == "" {
		p.ArtifactName = DefaultArtifactName
	}
	if p.OnError == "" {
		p.OnError = Default(p.Repository).OnError
	}
	return p
}
