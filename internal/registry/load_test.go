package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryJSON = `[
  {
    "sme_id": "SME-001",
    "name": "Salinas Logistics",
    "sector": "Logistics",
    "county": "Monterey County",
    "latitude": 36.6777,
    "longitude": -121.6555,
    "delivery_routes": [
      {"origin": "Salinas", "destination": "Monterey",
       "waypoints": [{"lat": 36.6777, "lon": -121.6555}, {"lat": 36.6002, "lon": -121.8947}]}
    ]
  },
  {
    "sme_id": "SME-002",
    "name": "Carmel Valley Growers",
    "sector": "Agriculture",
    "county": "Monterey County",
    "latitude": 36.4799,
    "longitude": -121.7322
  }
]`

const registryYAML = `
- sme_id: SME-001
  name: Salinas Logistics
  sector: Logistics
  county: Monterey County
  latitude: 36.6777
  longitude: -121.6555
  delivery_routes:
    - origin: Salinas
      destination: Monterey
      waypoints:
        - {lat: 36.6777, lon: -121.6555}
        - {lat: 36.6002, lon: -121.8947}
- sme_id: SME-002
  name: Carmel Valley Growers
  sector: Agriculture
  county: Monterey County
  latitude: 36.4799
  longitude: -121.7322
`

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("registry.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("/etc/oact/registry.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("registry.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("registry"))
}

func TestDecode(t *testing.T) {
	t.Run("json and yaml decode to the same entries", func(t *testing.T) {
		fromJSON, err := Decode(strings.NewReader(registryJSON), FormatJSON)
		require.NoError(t, err)
		fromYAML, err := Decode(strings.NewReader(registryYAML), FormatYAML)
		require.NoError(t, err)

		assert.Equal(t, fromJSON, fromYAML)
		require.Len(t, fromJSON, 2)
		assert.Equal(t, "Salinas -> Monterey", fromJSON[0].DeliveryRoutes[0].Label())
	})

	t.Run("top-level object is rejected", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"entries": []}`), FormatJSON)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected a list")
	})

	t.Run("unknown json keys are rejected", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`[{"sme_id":"X","nickname":"y"}]`), FormatJSON)
		assert.Error(t, err)
	})

	t.Run("unknown yaml keys are rejected", func(t *testing.T) {
		_, err := Decode(strings.NewReader("- sme_id: X\n  nickname: y\n"), FormatYAML)
		assert.Error(t, err)
	})

	t.Run("empty yaml document yields no entries", func(t *testing.T) {
		entries, err := Decode(strings.NewReader(""), FormatYAML)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "registry.json")
	yamlPath := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(registryJSON), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte(registryYAML), 0o600))

	fromJSON, err := LoadFile(jsonPath, loadedAt)
	require.NoError(t, err)
	fromYAML, err := LoadFile(yamlPath, loadedAt)
	require.NoError(t, err)

	assert.Equal(t, 2, fromJSON.Len())
	assert.Equal(t, fromJSON.Version(), fromYAML.Version())

	_, err = LoadFile(filepath.Join(dir, "missing.json"), loadedAt)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStaticSource(t *testing.T) {
	snap, err := Load(context.Background(), StaticSource(sampleEntries()), loadedAt)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
}
