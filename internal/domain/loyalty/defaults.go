package loyalty

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var embeddedDefaults []byte

type Defaults struct {
	Tiers map[string]int `yaml:"tiers"`
	QR    struct {
		DefaultPoints int `yaml:"default_points"`
	} `yaml:"qr"`
	Referral struct {
		Enabled        bool `yaml:"enabled"`
		ReferrerPoints int  `yaml:"referrer_points"`
		RefereePoints  int  `yaml:"referee_points"`
	} `yaml:"referral"`
	Cache struct {
		ProgramSettingsTTLSeconds int `yaml:"program_settings_ttl_seconds"`
		ABResultsTTLSeconds       int `yaml:"ab_results_ttl_seconds"`
	} `yaml:"cache"`
}

// LoadDefaults parses the embedded defaults and, when path is set, overlays
// the file at path on top of them.
func LoadDefaults(path string) (Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(embeddedDefaults, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse embedded loyalty defaults: %w", err)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, fmt.Errorf("read loyalty defaults %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse loyalty defaults %s: %w", path, err)
	}
	return d, nil
}

// MustDefaults returns the embedded defaults and panics if they do not parse.
func MustDefaults() Defaults {
	d, err := LoadDefaults("")
	if err != nil {
		panic(err)
	}
	return d
}

func (d Defaults) ProgramSettingsTTL() time.Duration {
	return time.Duration(d.Cache.ProgramSettingsTTLSeconds) * time.Second
}

func (d Defaults) ABResultsTTL() time.Duration {
	return time.Duration(d.Cache.ABResultsTTLSeconds) * time.Second
}

// TierThresholds merges program-level overrides onto the defaults.
func (d Defaults) TierThresholds(s Settings) map[string]int {
	out := make(map[string]int, len(d.Tiers)+len(s.Tiers))
	for k, v := range d.Tiers {
		out[k] = v
	}
	for k, v := range s.Tiers {
		out[k] = v
	}
	return out
}

// ReferralFor returns the program's referral config, or the defaults when the
// program has none.
func (d Defaults) ReferralFor(s Settings) ReferralSettings {
	if s.Referral != nil {
		return *s.Referral
	}
	return ReferralSettings{
		Enabled:        d.Referral.Enabled,
		ReferrerPoints: d.Referral.ReferrerPoints,
		RefereePoints:  d.Referral.RefereePoints,
	}
}

func (d Defaults) QRDefaultPoints() int {
	if d.QR.DefaultPoints <= 0 {
		return 10
	}
	return d.QR.DefaultPoints
}
