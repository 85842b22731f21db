package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipePhys/prediction-markets/internal/adapters/registry"
	"github.com/FilipePhys/prediction-markets/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPairs_YAML(t *testing.T) {
	reg, err := registry.NewFileRegistry("testdata/pairs.yaml")
	require.NoError(t, err)

	pairs, err := reg.LoadPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	p := pairs[0]
	assert.Equal(t, "us-election-2024", p.ID)
	assert.Equal(t, domain.VenueFutuur, p.VenueA)
	assert.Equal(t, "133793", p.MarketA)
	assert.Equal(t, domain.VenueManifold, p.VenueB)
	assert.Equal(t, domain.MatchFuzzy, p.Mode)
	assert.InDelta(t, 0.3, p.Threshold, 1e-12)
	assert.Equal(t, domain.MatchExact, pairs[1].Mode)

	cats, err := reg.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "7", cats[0].FutuurID)
	assert.Equal(t, "BINARY", cats[0].Tag)
}

func TestLoadPairs_TOML(t *testing.T) {
	reg, err := registry.NewFileRegistry("testdata/pairs.toml")
	require.NoError(t, err)

	pairs, err := reg.LoadPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Z9uy9T4q4rAfq4sGzPA0", pairs[0].MarketB)
	assert.Equal(t, domain.MatchFuzzy, pairs[0].Mode)
}

func TestCategories_BeforeLoadPairs(t *testing.T) {
	reg, err := registry.NewFileRegistry("testdata/pairs.toml")
	require.NoError(t, err)

	cats, err := reg.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "politics", cats[0].Name)
}

func TestLoadPairs_RereadsFile(t *testing.T) {
	path := writeFile(t, "pairs.yaml", "pairs: []\n")
	reg, err := registry.NewFileRegistry(path)
	require.NoError(t, err)

	pairs, err := reg.LoadPairs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pairs)

	require.NoError(t, os.WriteFile(path, []byte(`
pairs:
  - {id: p1, venue_a: futuur, market_a: "1", venue_b: manifold, market_b: m1}
`), 0o644))
	pairs, err = reg.LoadPairs(context.Background())
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestLoadPairs_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing id", "pairs:\n  - {venue_a: futuur, market_a: '1', venue_b: manifold, market_b: m}\n", "missing id"},
		{"missing market", "pairs:\n  - {id: x, venue_a: futuur, venue_b: manifold, market_b: m}\n", "venue_a/market_a"},
		{"bad mode", "pairs:\n  - {id: x, venue_a: futuur, market_a: '1', venue_b: manifold, market_b: m, mode: loose}\n", "unknown mode"},
		{"bad threshold", "pairs:\n  - {id: x, venue_a: futuur, market_a: '1', venue_b: manifold, market_b: m, threshold: 2}\n", "threshold"},
		{"duplicate", "pairs:\n  - {id: x, venue_a: futuur, market_a: '1', venue_b: manifold, market_b: m}\n  - {id: x, venue_a: futuur, market_a: '2', venue_b: manifold, market_b: n}\n", "duplicate"},
		{"malformed", "pairs: [\n", "parse yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := registry.NewFileRegistry(writeFile(t, "pairs.yaml", tt.content))
			require.NoError(t, err)
			_, err = reg.LoadPairs(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewFileRegistry_UnsupportedExtension(t *testing.T) {
	_, err := registry.NewFileRegistry("pairs.json")
	assert.Error(t, err)
}

func TestLoadPairs_MissingFile(t *testing.T) {
	reg, err := registry.NewFileRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	_, err = reg.LoadPairs(context.Background())
	assert.Error(t, err)
}
