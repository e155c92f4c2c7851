// Package config loads the submitter's YAML batch-definition file (the
// sole positional CLI argument) and the ambient environment variables
// that control infrastructure, combining the teacher's env-var helper
// idiom with the original submitter's YAML config shape.
package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
)

// DaMode is the YAML-level DA mode selector, lowercase-serialized.
type DaMode string

const (
	DaModeCalldata DaMode = "calldata"
	DaModeBlob     DaMode = "blob"
)

// ToDomain converts the config-level mode into the domain enum.
func (m DaMode) ToDomain() domain.DaMode {
	switch m {
	case DaModeBlob:
		return domain.DaModeBlob
	default:
		return domain.DaModeCalldata
	}
}

// BlobBinding distinguishes a mocked blob pipeline from one that binds
// through a real opcode-level blob transaction.
type BlobBinding string

const (
	BlobBindingMock   BlobBinding = "mock"
	BlobBindingOpcode BlobBinding = "opcode"
)

// Network describes the chain this submitter commits batches to.
type Network struct {
	RPCURL  string `yaml:"rpc_url"`
	ChainID int64  `yaml:"chain_id"`
}

// Contracts holds addresses for on-chain dependencies.
type Contracts struct {
	Bridge string `yaml:"bridge"`
}

// DaConfig selects and parameterizes the DA strategy.
type DaConfig struct {
	Mode        DaMode      `yaml:"mode"`
	BlobBinding BlobBinding `yaml:"blob_binding"`
	BlobIndex   *uint8      `yaml:"blob_index,omitempty"`
	ArchiverURL string      `yaml:"archiver_url,omitempty"`
}

// BatchConfig describes the single batch this invocation submits.
type BatchConfig struct {
	DataFile          string `yaml:"data_file"`
	NewRoot           string `yaml:"new_root"`
	BlobVersionedHash string `yaml:"blob_versioned_hash,omitempty"`
}

// ProverConfig points at an external prover service; absent means the
// submitter falls back to the in-process mock prover.
type ProverConfig struct {
	URL string `yaml:"url"`
}

// ResilienceConfig is the one optional sub-config from the original's
// YAML shape this port actually wires up (see DESIGN.md Open Question
// 4) — the rest (fees/flow/sequencer/aggregator/simulation) have no
// SPEC_FULL.md consumer and are intentionally left out.
type ResilienceConfig struct {
	MaxRetries              *int `yaml:"max_retries,omitempty"`
	CircuitBreakerThreshold *int `yaml:"circuit_breaker_threshold,omitempty"`
}

// Config is the full YAML document passed as the CLI's positional
// config-path argument.
type Config struct {
	Network    Network            `yaml:"network"`
	Contracts  Contracts          `yaml:"contracts"`
	Da         DaConfig           `yaml:"da"`
	Batch      BatchConfig        `yaml:"batch"`
	Prover     *ProverConfig      `yaml:"prover,omitempty"`
	Resilience *ResilienceConfig  `yaml:"resilience,omitempty"`
}

// Load reads and parses the YAML file at path and validates it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domainerr.Config("read config file %s: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, domainerr.Config("parse config yaml %s: %v", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the same preconditions as the original's
// validate_config: a parseable bridge address, and a required
// blob_versioned_hash in Blob mode (with a warning, not an error, when
// no archiver is configured).
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Contracts.Bridge) {
		return domainerr.Config("invalid bridge address %q", c.Contracts.Bridge)
	}

	if c.Da.Mode == DaModeBlob {
		if c.Batch.BlobVersionedHash == "" {
			return domainerr.Config("blob mode requires batch.blob_versioned_hash in yaml")
		}
		if c.Da.ArchiverURL == "" {
			fmt.Fprintln(os.Stderr, "warning: blob mode selected but no archiver_url provided; blobs will not be archived (data availability risk)")
		}
	}
	return nil
}

// PrivateKey reads SUBMITTER_PRIVATE_KEY from the environment. It is
// never read from the YAML config file — keys in a checked-in config
// file are a standing leak risk the original source explicitly
// refuses to allow.
func PrivateKey() (string, error) {
	key := os.Getenv("SUBMITTER_PRIVATE_KEY")
	if key == "" {
		return "", domainerr.Config("missing env SUBMITTER_PRIVATE_KEY (do not put private keys in yaml)")
	}
	return key, nil
}

// DatabaseURL returns DATABASE_URL, defaulting to a local SQLite file
// when unset, matching startup.rs's backend-selection default.
func DatabaseURL() string {
	return getEnv("DATABASE_URL", "submitter.db")
}

// MetricsAddr returns the address the Prometheus handler listens on.
func MetricsAddr() string {
	return getEnv("METRICS_ADDR", "0.0.0.0:9090")
}

// getEnv mirrors the teacher's pkg/config helper: return the env var
// if set and non-empty, else the default.
func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

