package policy_test

import (
	"testing"

	"github.com/evalforge/checkgate/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes(t *testing.T) {
	t.Run("full entry", func(t *testing.T) {
		loader, err := policy.LoadFromBytes([]byte(`
policies:
  - repository: evalforge/prompt-evals
    check_name: prompt-eval
    artifact_name: eval-results
    threshold_override: 0.25
    on_error: failure
`))
		require.NoError(t, err)
		require.Equal(t, 1, loader.Len())

		p := loader.Get("evalforge/prompt-evals")
		assert.Equal(t, "prompt-eval", p.CheckName)
		assert.Equal(t, "eval-results", p.ArtifactName)
		assert.Equal(t, 0.25, p.ThresholdOverride)
		assert.Equal(t, "failure", p.OnError)
	})

	t.Run("defaults applied to sparse entry", func(t *testing.T) {
		loader, err := policy.LoadFromBytes([]byte(`
policies:
  - repository: evalforge/other
`))
		require.NoError(t, err)

		p := loader.Get("evalforge/other")
		assert.Equal(t, policy.DefaultCheckName, p.CheckName)
		assert.Equal(t, policy.DefaultArtifactName, p.ArtifactName)
		assert.Equal(t, "neutral", p.OnError)
		assert.Zero(t, p.ThresholdOverride)
	})

	t.Run("unknown repository falls back to default policy", func(t *testing.T) {
		loader, err := policy.LoadFromBytes([]byte(`policies: []`))
		require.NoError(t, err)

		p := loader.Get("someone/else")
		assert.Equal(t, "someone/else", p.Repository)
		assert.Equal(t, policy.DefaultCheckName, p.CheckName)
		assert.Equal(t, "neutral", p.OnError)
	})

	t.Run("invalid on_error", func(t *testing.T) {
		_, err := policy.LoadFromBytes([]byte(`
policies:
  - repository: evalforge/x
    on_error: cancelled
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "on_error")
	})

	t.Run("threshold outside range", func(t *testing.T) {
		_, err := policy.LoadFromBytes([]byte(`
policies:
  - repository: evalforge/x
    threshold_override: 1.5
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threshold_override")
	})

	t.Run("duplicate repository", func(t *testing.T) {
		_, err := policy.LoadFromBytes([]byte(`
policies:
  - repository: evalforge/x
  - repository: evalforge/x
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := policy.LoadFromBytes([]byte(`policies: [`))
		require.Error(t, err)
	})
}
