package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marktwatch.json5")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadJSON5WithLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marktwatch.json5")

	base := `{
  // where to search from
  postcode: "1011AB",
  distance_km: 15,
  show_bid: false,
  results_file: "found.txt",
}`
	local := `{
  api_key: "from-local",
  distance_km: 25,
}`
	require.NoError(t, os.WriteFile(path, []byte(base), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marktwatch.local.json5"), []byte(local), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "1011AB", cfg.Postcode)
	require.Equal(t, 25, cfg.DistanceKm)
	require.Equal(t, "from-local", cfg.APIKey)
	require.Equal(t, "found.txt", cfg.ResultsFile)
	require.False(t, cfg.ShowBid)
	// untouched fields keep their defaults
	require.Equal(t, 300, cfg.CheckIntervalSeconds)
	require.True(t, cfg.ShowFree)
}

func TestLocalOverrideCanTurnSettingsOff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marktwatch.json5")

	require.NoError(t, os.WriteFile(path, []byte(`{show_free: true, web_enabled: true, request_delay_ms: 800}`), 0o644))
	require.NoError(t, os.WriteFile(LocalPath(path), []byte(`{show_free: false, web_enabled: false, request_delay_ms: 0}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.ShowFree)
	require.False(t, cfg.WebEnabled)
	require.Equal(t, 0, cfg.RequestDelayMs)
	// keys absent from the local file keep the base value
	require.True(t, cfg.ShowBid)
}

func TestHolderUpdateKeepsLocalOverridesOutOfBaseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marktwatch.json5")

	require.NoError(t, os.WriteFile(path, []byte(`{postcode: "1011AB"}`), 0o644))
	require.NoError(t, os.WriteFile(LocalPath(path), []byte(`{api_key: "from-local", distance_km: 25}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	h := NewHolder(cfg, path)

	_, err = h.Update(func(c Config) (Config, error) {
		c.ShowBid = false
		return c, nil
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "from-local")
	require.NotContains(t, string(raw), "distance_km")

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "1011AB", again.Postcode)
	require.False(t, again.ShowBid)
	require.Equal(t, "from-local", again.APIKey)
	require.Equal(t, 25, again.DistanceKm)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marktwatch.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{distance_km: -1}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{distance_km: `), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "conf/marktwatch.local.json5", LocalPath("conf/marktwatch.json5"))
	require.Equal(t, "config.local", LocalPath("config"))
}

func TestToggles(t *testing.T) {
	cfg := Default()
	cfg.ShowSeeDescription = false
	toggles := cfg.Toggles()
	require.True(t, toggles.ShowBid)
	require.True(t, toggles.ShowFree)
	require.False(t, toggles.ShowAmbiguous)
}

func TestHolderUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marktwatch.json5")
	h := NewHolder(Default(), path)

	before := h.Snapshot()
	next, err := h.Update(func(c Config) (Config, error) {
		c.Postcode = "9999ZZ"
		return c, nil
	})
	require.NoError(t, err)
	require.Equal(t, "9999ZZ", next.Postcode)
	require.Equal(t, "9999ZZ", h.Snapshot().Postcode)
	// earlier snapshots are unaffected
	require.Equal(t, "3032SG", before.Postcode)

	persisted, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9999ZZ", persisted.Postcode)

	_, err = h.Update(func(c Config) (Config, error) {
		c.DistanceKm = 0
		return c, nil
	})
	require.Error(t, err)
	require.Equal(t, 8, h.Snapshot().DistanceKm)

	boom := errors.New("boom")
	_, err = h.Update(func(c Config) (Config, error) { return c, boom })
	require.ErrorIs(t, err, boom)
}

func TestHolderConcurrentUpdates(t *testing.T) {
	h := NewHolder(Default(), "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Update(func(c Config) (Config, error) {
				c.DistanceKm++
				return c, nil
			})
			_ = h.Snapshot()
		}()
	}
	wg.Wait()

	require.Equal(t, 58, h.Snapshot().DistanceKm)
}
