package personality

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

var fallback = models.PersonalityProfile{ConfidenceTone: "neutral", RiskProfile: models.RiskBalanced, ResponseStyle: "concise"}

func TestWatcherLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personality.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk_profile: Aggressive\nconfidence_tone: bold\n"), 0o644))

	w, err := NewWatcher(path, fallback, nil)
	require.NoError(t, err)
	p := w.Profile()
	assert.Equal(t, models.RiskAggressive, p.RiskProfile)
	assert.Equal(t, "bold", p.ConfidenceTone)
	assert.Equal(t, "concise", p.ResponseStyle)
}

func TestWatcherRejectsUnknownRisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personality.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk_profile: reckless\n"), 0o644))
	_, err := NewWatcher(path, fallback, nil)
	assert.Error(t, err)

	_, err = NewWatcher("", fallback, nil)
	assert.Error(t, err)
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personality.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk_profile: cautious\n"), 0o644))

	w, err := NewWatcher(path, fallback, nil)
	require.NoError(t, err)
	w.Watch()
	assert.Equal(t, models.RiskCautious, w.Profile().RiskProfile)

	require.NoError(t, os.WriteFile(path, []byte("risk_profile: aggressive\n"), 0o644))
	require.Eventually(t, func() bool {
		return w.Profile().RiskProfile == models.RiskAggressive
	}, 3*time.Second, 20*time.Millisecond)
}

func TestStatic(t *testing.T) {
	assert.Equal(t, fallback, Static(fallback).Profile())
}
