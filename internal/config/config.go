// Package config defines FlashDB's runtime configuration: the server-facing
// settings the teacher's JSON file used to carry, plus the EngineConfig
// values that used to live as implicit global state (replica role, cluster
// mode, eviction policy) and are now passed explicitly into the keyspace
// engine's constructor. cmd/flashdb populates a Config from cobra flags and
// viper-bound environment variables; see SPEC_FULL.md §10.1.
package config

import (
	"time"

	"github.com/flashdb/flashdb/internal/keyspace"
)

// Config holds the FlashDB server configuration.
type Config struct {
	// Server settings
	Addr    string
	DataDir string
	WebAddr string
	NoWeb   bool

	// Auth
	RequirePass string
	APIToken    string

	// Logging
	LogLevel string

	// Performance
	MaxClients int
	Timeout    time.Duration

	Engine EngineConfig
}

// EngineConfig carries the parameters the reference implementation keeps as
// global mutable server state (SPEC_FULL.md Design Note 9): replica role,
// cluster membership, and the eviction/recency policy. These are threaded
// explicitly into keyspace.NewKeyspace instead of read from a package-level
// singleton, so a single process could in principle host more than one
// independently-configured Keyspace.
type EngineConfig struct {
	// Role selects "primary", "replica", or "active-replica" (a writable
	// replica participating in active-active MVCC merge).
	Role string

	// ClusterEnabled toggles SlotIndex maintenance and forbids MOVE.
	ClusterEnabled bool

	// EvictionPolicy selects "lru" or "lfu" access-recency tracking,
	// the maxmemory-policy-adjacent knob from the original.
	EvictionPolicy string

	// RandomKeyTries bounds RANDOMKEY's all-volatile retry budget.
	RandomKeyTries int
}

// DefaultConfig returns the configuration used when no flag, environment
// variable, or .env file overrides anything.
func DefaultConfig() *Config {
	return &Config{
		Addr:       ":6379",
		DataDir:    "data",
		WebAddr:    ":8080",
		LogLevel:   "info",
		MaxClients: 10000,
		Timeout:    0,
		Engine: EngineConfig{
			Role:           "primary",
			ClusterEnabled: false,
			EvictionPolicy: "lru",
			RandomKeyTries: 100,
		},
	}
}

// KeyspaceConfig translates the CLI-facing EngineConfig into the
// keyspace.Config the engine constructor expects.
func (c *Config) KeyspaceConfig() keyspace.Config {
	kcfg := keyspace.DefaultConfig()
	switch c.Engine.Role {
	case "replica":
		kcfg.IsReplica = true
	case "active-replica":
		kcfg.IsReplica = true
		kcfg.ActiveReplica = true
	}
	kcfg.ClusterEnabled = c.Engine.ClusterEnabled
	if c.Engine.EvictionPolicy == "lfu" {
		kcfg.Policy = keyspace.PolicyLFU
	}
	if c.Engine.RandomKeyTries > 0 {
		kcfg.RandomKeyTries = c.Engine.RandomKeyTries
	}
	return kcfg
}
