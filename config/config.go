// Package config loads the two tiers of node configuration: the
// consensus-critical genesis parameters (immutable for the chain's
// lifetime) and the soft-tunable node-local settings.
package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// GenesisConfig holds the parameters spec.md's Open Question #1 settles
// as consensus-critical: slot duration d, epoch length E (in slots),
// the principal-representative weight threshold T, and the genesis
// public key. These are loaded once at chain start and never change;
// altering any of them requires a new genesis.
type GenesisConfig struct {
	SlotDuration  time.Duration `yaml:"slot_duration_ms"`
	EpochLength   uint64        `yaml:"epoch_length"`
	Threshold     string        `yaml:"threshold"` // decimal string, parsed into uint256 by callers
	GenesisPubKey string        `yaml:"genesis_pubkey"` // hex-encoded ed25519 public key
}

type genesisFile struct {
	SlotDurationMs int64  `yaml:"slot_duration_ms"`
	EpochLength    uint64 `yaml:"epoch_length"`
	Threshold      string `yaml:"threshold"`
	GenesisPubKey  string `yaml:"genesis_pubkey"`
}

// LoadGenesisConfig reads and parses a genesis.yml file, matching the
// teacher's LoadGenesisConfig shape.
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open genesis file: %w", err)
	}
	defer file.Close()

	var gf genesisFile
	if err := yaml.NewDecoder(file).Decode(&gf); err != nil {
		return nil, fmt.Errorf("config: decode genesis yaml: %w", err)
	}
	if gf.SlotDurationMs <= 0 {
		return nil, fmt.Errorf("config: slot_duration_ms must be positive")
	}
	if gf.EpochLength == 0 {
		return nil, fmt.Errorf("config: epoch_length must be positive")
	}
	return &GenesisConfig{
		SlotDuration:  time.Duration(gf.SlotDurationMs) * time.Millisecond,
		EpochLength:   gf.EpochLength,
		Threshold:     gf.Threshold,
		GenesisPubKey: gf.GenesisPubKey,
	}, nil
}

// LoadEd25519PrivKey loads a hex-encoded ed25519 private key from a file.
func LoadEd25519PrivKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, err
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("config: invalid ed25519 private key length %d", len(key))
	}
	return ed25519.PrivateKey(key), nil
}

// NodeConfig holds soft-tunable, per-network-node settings: the actor
// channel buffer size and the holding-area TTL, matching the teacher's
// PohConfig/MempoolConfig INI-tagged pattern. Log rotation is not set
// here; package logx reads it from environment variables.
type NodeConfig struct {
	ActorChannelBuf  int `ini:"actor_channel_buf"`
	HoldingAreaTTLMs int `ini:"holding_area_ttl_ms"`
}

// LoadNodeConfig reads node.ini for the soft-tunable settings.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load node ini: %w", err)
	}
	nc := &NodeConfig{ActorChannelBuf: 256, HoldingAreaTTLMs: 2000}
	if err := cfg.Section("node").MapTo(nc); err != nil {
		return nil, fmt.Errorf("config: map node ini section: %w", err)
	}
	return nc, nil
}
