// Package personality loads the personality profile from a file and keeps
// it current while the file changes.
package personality

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	applogger "SignalForge/pkg/logger"
)

// Static always returns the same profile.
type Static models.PersonalityProfile

func (s Static) Profile() models.PersonalityProfile { return models.PersonalityProfile(s) }

// Watcher reads a YAML or JSON profile file. Unset keys fall back to the
// profile passed at construction. A reload that fails keeps the previous
// profile.
type Watcher struct {
	v        *viper.Viper
	fallback models.PersonalityProfile
	current  atomic.Pointer[models.PersonalityProfile]
	version  atomic.Int64
	logger   *applogger.Logger
}

var (
	_ domsvc.PersonalitySource = (*Watcher)(nil)
	_ domsvc.PersonalitySource = Static{}
)

func NewWatcher(path string, fallback models.PersonalityProfile, logger *applogger.Logger) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("personality watcher requires a path")
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read personality file: %w", err)
	}

	w := &Watcher{v: v, fallback: fallback, logger: logger}
	if err := w.reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Watch starts reloading on file changes.
func (w *Watcher) Watch() {
	w.v.OnConfigChange(func(evt fsnotify.Event) {
		if err := w.reload(); err != nil {
			w.logger.Error("personality reload failed", applogger.String("file", evt.Name), applogger.Error(err))
			return
		}
		p := w.Profile()
		w.logger.Info("personality reloaded",
			applogger.String("risk_profile", p.RiskProfile),
			applogger.String("confidence_tone", p.ConfidenceTone))
	})
	w.v.WatchConfig()
}

func (w *Watcher) Profile() models.PersonalityProfile {
	return *w.current.Load()
}

// Version increments on every successful load.
func (w *Watcher) Version() int64 { return w.version.Load() }

func (w *Watcher) reload() error {
	p := w.fallback
	if err := w.v.Unmarshal(&p); err != nil {
		return fmt.Errorf("parse personality file: %w", err)
	}
	p.RiskProfile = strings.ToLower(strings.TrimSpace(p.RiskProfile))
	switch p.RiskProfile {
	case models.RiskAggressive, models.RiskCautious, models.RiskBalanced:
	default:
		return fmt.Errorf("unknown risk_profile %q", p.RiskProfile)
	}
	p.ConfidenceTone = strings.ToLower(strings.TrimSpace(p.ConfidenceTone))
	w.current.Store(&p)
	w.version.Add(1)
	return nil
}
