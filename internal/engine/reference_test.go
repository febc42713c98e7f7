package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/d20dist/internal/engine"
	"github.com/cory-johannsen/d20dist/internal/expr"
)

type referenceCase struct {
	Notation string          `yaml:"notation"`
	Odds     map[int]float64 `yaml:"odds"`
}

type referenceFile struct {
	Cases []referenceCase `yaml:"cases"`
}

// TestReferenceOdds verifies full expressions against externally derived odds
// tables, routed through the dispatcher exactly as production requests are.
func TestReferenceOdds(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "reference_odds.yaml"))
	require.NoError(t, err)

	var ref referenceFile
	require.NoError(t, yaml.Unmarshal(raw, &ref))
	require.NotEmpty(t, ref.Cases)

	for _, tc := range ref.Cases {
		t.Run(tc.Notation, func(t *testing.T) {
			node, err := expr.Parse(tc.Notation)
			require.NoError(t, err)
			pool, ok := node.(*expr.Pool)
			require.True(t, ok, "reference cases are single pools")

			d, err := engine.PoolDistribution(pool.Count, pool.Sides, pool.Ops, engine.DefaultLimits())
			require.NoError(t, err)

			assert.InDelta(t, 1.0, d.Total(), 1e-9)
			for outcome, percent := range tc.Odds {
				assert.InDelta(t, percent/100, d.Get(outcome), 1e-6, "P(%d)", outcome)
			}
			// The table is the complete support.
			assert.Len(t, d.Keys(), len(tc.Odds))
		})
	}
}
