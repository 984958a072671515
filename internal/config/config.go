package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Environment variables controlling feature flags.
const (
	EnvEvidenceShortcut         = "ENABLE_EVIDENCE_SHORTCUT"
	EnvNegativeGuards           = "ENABLE_NEGATIVE_GUARDS"
	EnvSoftFloors               = "ENABLE_SOFT_FLOORS"
	EnvNegativeEarlyTermination = "ENABLE_NEGATIVE_EARLY_TERMINATION"
	EnvMetricsExporter          = "ENABLE_METRICS_EXPORTER"
)

// Thresholds holds the validation threshold contract.
type Thresholds struct {
	UniversalHardThreshold float64 `json:"universal_hard_threshold"`
	DecisiveNegative       float64 `json:"decisive_negative"`
	EvidenceShortcutMin    float64 `json:"evidence_shortcut_min"`
	ReliabilityShortcutMin float64 `json:"reliability_shortcut_min"`
}

// SoftFloor is a per-rule confidence floor that applies only when the
// rule's evidence score reaches EvidenceMin.
type SoftFloor struct {
	EvidenceMin float64 `json:"evidence_min"`
	Floor       float64 `json:"floor"`
}

// Flags holds runtime feature flags resolved from the environment.
type Flags struct {
	EvidenceShortcut         bool
	NegativeGuards           bool
	SoftFloors               bool
	NegativeEarlyTermination bool
	MetricsExporter          bool
}

// Config is the validation core configuration. It is read-only after Load.
type Config struct {
	Thresholds      Thresholds           `json:"validation_thresholds"`
	SoftFloors      map[string]SoftFloor `json:"confidence_soft_floors"`
	RuleReliability map[string]float64   `json:"rule_reliability"`
	Flags           Flags                `json:"-"`
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			UniversalHardThreshold: 0.35,
			DecisiveNegative:       0.90,
			EvidenceShortcutMin:    0.85,
			ReliabilityShortcutMin: 0.85,
		},
		SoftFloors:      map[string]SoftFloor{},
		RuleReliability: map[string]float64{},
		Flags: Flags{
			EvidenceShortcut:         true,
			NegativeGuards:           true,
			SoftFloors:               true,
			NegativeEarlyTermination: true,
		},
	}
}

// fileThresholds mirrors Thresholds with optional fields so a file that
// omits one of the contract keys can be told apart from one setting it.
type fileThresholds struct {
	UniversalHardThreshold *float64 `json:"universal_hard_threshold"`
	DecisiveNegative       *float64 `json:"decisive_negative"`
	EvidenceShortcutMin    *float64 `json:"evidence_shortcut_min"`
	ReliabilityShortcutMin *float64 `json:"reliability_shortcut_min"`
}

type fileConfig struct {
	Thresholds      *fileThresholds      `json:"validation_thresholds"`
	SoftFloors      map[string]SoftFloor `json:"confidence_soft_floors"`
	RuleReliability map[string]float64   `json:"rule_reliability"`
}

// Load builds the configuration from an optional JSON file plus environment
// overrides. A missing path yields the defaults. A file that is malformed,
// or that supplies validation_thresholds with any contract key missing, is
// an error so the core never runs half-configured.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var file fileConfig
		if err := json.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := file.apply(&cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Flags = loadFlags()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (f fileConfig) apply(cfg *Config) error {
	if f.Thresholds == nil {
		return fmt.Errorf("config file missing validation_thresholds")
	}
	for name, v := range map[string]*float64{
		"universal_hard_threshold": f.Thresholds.UniversalHardThreshold,
		"decisive_negative":        f.Thresholds.DecisiveNegative,
		"evidence_shortcut_min":    f.Thresholds.EvidenceShortcutMin,
		"reliability_shortcut_min": f.Thresholds.ReliabilityShortcutMin,
	} {
		if v == nil {
			return fmt.Errorf("config file missing validation_thresholds.%s", name)
		}
	}

	cfg.Thresholds = Thresholds{
		UniversalHardThreshold: *f.Thresholds.UniversalHardThreshold,
		DecisiveNegative:       *f.Thresholds.DecisiveNegative,
		EvidenceShortcutMin:    *f.Thresholds.EvidenceShortcutMin,
		ReliabilityShortcutMin: *f.Thresholds.ReliabilityShortcutMin,
	}
	if f.SoftFloors != nil {
		cfg.SoftFloors = f.SoftFloors
	}
	if f.RuleReliability != nil {
		cfg.RuleReliability = f.RuleReliability
	}
	return nil
}

// Validate checks every contract key. Any violation aborts startup.
func (c Config) Validate() error {
	t := c.Thresholds
	for name, v := range map[string]float64{
		"universal_hard_threshold": t.UniversalHardThreshold,
		"decisive_negative":        t.DecisiveNegative,
		"evidence_shortcut_min":    t.EvidenceShortcutMin,
		"reliability_shortcut_min": t.ReliabilityShortcutMin,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("validation_thresholds.%s out of range: %v", name, v)
		}
	}

	for ruleID, f := range c.SoftFloors {
		if ruleID == "" {
			return fmt.Errorf("confidence_soft_floors: empty rule id")
		}
		if f.EvidenceMin < 0 || f.EvidenceMin > 1 {
			return fmt.Errorf("confidence_soft_floors.%s.evidence_min out of range: %v", ruleID, f.EvidenceMin)
		}
		if f.Floor < 0 || f.Floor > 1 {
			return fmt.Errorf("confidence_soft_floors.%s.floor out of range: %v", ruleID, f.Floor)
		}
	}

	for ruleID, coeff := range c.RuleReliability {
		if ruleID == "" {
			return fmt.Errorf("rule_reliability: empty rule id")
		}
		if coeff < 0.70 || coeff > 0.98 {
			return fmt.Errorf("rule_reliability.%s out of range [0.70, 0.98]: %v", ruleID, coeff)
		}
	}

	return nil
}

func loadFlags() Flags {
	return Flags{
		EvidenceShortcut:         boolEnv(EnvEvidenceShortcut, true),
		NegativeGuards:           boolEnv(EnvNegativeGuards, true),
		SoftFloors:               boolEnv(EnvSoftFloors, true),
		NegativeEarlyTermination: boolEnv(EnvNegativeEarlyTermination, true),
		MetricsExporter:          boolEnv(EnvMetricsExporter, false),
	}
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}
