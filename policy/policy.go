package policy

import (
	"fmt"

	"github.com/evalforge/checkgate/upstream"
)

/* Policy represents check-run settings for one repository
 * Maps owner/repo to the check name, expected artifact, and the
 * conclusion to publish when artifact resolution fails
 */
type Policy struct {
	Repository        string  // owner/repo lookup key
	CheckName         string  // check run name reported to the provider
	ArtifactName      string  // artifact containing the evaluation results
	ThresholdOverride float64 // >0 replaces the threshold from the artifact
	OnError           string  // conclusion when resolution fails: neutral or failure
}

// Defaults used when a repository has no explicit policy entry.
const (
	DefaultCheckName    = "prompt-eval"
	DefaultArtifactName = "eval-results"
)

// Validate checks if the policy configuration is valid
func (p *Policy) Validate() error {
	if p.Repository == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	if p.CheckName == "" {
		return fmt.Errorf("check_name cannot be empty for repository %s", p.Repository)
	}
	if p.ArtifactName == "" {
		return fmt.Errorf("artifact_name cannot be empty for repository %s", p.Repository)
	}
	if p.ThresholdOverride < 0 || p.ThresholdOverride > 1 {
		return fmt.Errorf("threshold_override must be within [0, 1] for repository %s (got %v)", p.Repository, p.ThresholdOverride)
	}
	if p.OnError != upstream.ConclusionNeutral && p.OnError != upstream.ConclusionFailure {
		return fmt.Errorf("on_error must be neutral or failure for repository %s (got %s)", p.Repository, p.OnError)
	}
	return nil
}

// Default returns the policy applied to repositories without an entry.
// Resolution failure publishes neutral: an artifact we cannot find must
// not silently block a merge as a hard failure.
func Default(repository string) Policy {
	return Policy{
		Repository:   repository,
		CheckName:    DefaultCheckName,
		ArtifactName: DefaultArtifactName,
		OnError:      upstream.ConclusionNeutral,
	}
}
