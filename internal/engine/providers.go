package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider identifies an external job-listing source.
type Provider string

const (
	ProviderUSAJobs Provider = "usajobs"
	ProviderJSearch Provider = "jsearch"
	ProviderAdzuna  Provider = "adzuna"
)

// KnownProviders lists every provider a plan may route to, in fallback order.
var KnownProviders = []Provider{ProviderJSearch, ProviderAdzuna, ProviderUSAJobs}

// DefaultBudgetLimit is the spend ceiling per run.
const DefaultBudgetLimit = 0.20

// UnknownProviderCost is charged per call for a provider missing from the cost table.
const UnknownProviderCost = 0.01

// ParseProvider normalizes planner-supplied source names to a provider id.
func ParseProvider(s string) (Provider, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "usajobs"), strings.Contains(s, "federal"):
		return ProviderUSAJobs, true
	case strings.Contains(s, "jsearch"), strings.Contains(s, "rapidapi"):
		return ProviderJSearch, true
	case strings.Contains(s, "adzuna"):
		return ProviderAdzuna, true
	}
	return Provider(s), false
}

// ProviderSetting is the static cost and rate-limit entry for one provider.
type ProviderSetting struct {
	CostPerCall       float64 `yaml:"cost_per_call"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// ProviderSettings maps provider → setting. Read once at startup.
type ProviderSettings map[Provider]ProviderSetting

// DefaultProviderSettings returns the built-in cost table.
func DefaultProviderSettings() ProviderSettings {
	return ProviderSettings{
		ProviderUSAJobs: {CostPerCall: 0.0, RequestsPerSecond: 2, Burst: 2},
		ProviderJSearch: {CostPerCall: 0.005, RequestsPerSecond: 1, Burst: 1},
		ProviderAdzuna:  {CostPerCall: 0.0, RequestsPerSecond: 2, Burst: 2},
	}
}

// CostPerCall returns the per-call cost for p, or UnknownProviderCost.
func (ps ProviderSettings) CostPerCall(p Provider) float64 {
	if s, ok := ps[p]; ok {
		return s.CostPerCall
	}
	return UnknownProviderCost
}

type providersFile struct {
	Providers map[string]ProviderSetting `yaml:"providers"`
}

// LoadProviderSettings overlays the YAML file at path onto base.
// Entries for providers missing from the file keep their base values.
func LoadProviderSettings(path string, base ProviderSettings) (ProviderSettings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	var f providersFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse providers file %s: %w", path, err)
	}

	out := make(ProviderSettings, len(base)+len(f.Providers))
	for p, s := range base {
		out[p] = s
	}
	for name, s := range f.Providers {
		if s.CostPerCall < 0 {
			return nil, fmt.Errorf("provider %s: cost_per_call must be >= 0", name)
		}
		p, _ := ParseProvider(name)
		out[p] = s
	}
	return out, nil
}
