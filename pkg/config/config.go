// Package config loads and validates clashlayout configuration.
//
// A configuration file holds three sections: the layout tunables consumed by
// the engine, the HTTP server settings and the persistence settings. Every
// field has a default, so a file only needs the values it changes.
//
// # Formats
//
// [Load] picks the decoder from the file extension:
//
//   - .toml: github.com/BurntSushi/toml
//   - .yaml, .yml: gopkg.in/yaml.v3
//   - .json: encoding/json
//
// Durations are written as Go duration strings ("250ms", "10m") in every
// format.
//
// # Example
//
//	[layout.mesh]
//	cell_width = 20
//	padding = 20
//
//	[layout.topology]
//	column_gap = 120
//
//	[server]
//	addr = ":8080"
//	cache = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"time"

	"github.com/hrhrng/clash-sub002/pkg/autoscale"
	"github.com/hrhrng/clash-sub002/pkg/collision"
	"github.com/hrhrng/clash-sub002/pkg/gridlayout"
	"github.com/hrhrng/clash-sub002/pkg/mesh"
	"github.com/hrhrng/clash-sub002/pkg/topology"
)

// =============================================================================
// Layout
// =============================================================================

// Layout holds every tunable of the layout engine.
type Layout struct {
	Mesh      mesh.Config       `json:"mesh" toml:"mesh" yaml:"mesh"`
	Collision Collision         `json:"collision" toml:"collision" yaml:"collision"`
	AutoScale autoscale.Options `json:"autoscale" toml:"autoscale" yaml:"autoscale"`
	Topology  Topology          `json:"topology" toml:"topology" yaml:"topology"`
	Grid      Grid              `json:"grid" toml:"grid" yaml:"grid"`
}

// Collision configures chain-reaction resolution.
type Collision struct {
	MaxIterations int  `json:"max_iterations" toml:"max_iterations" yaml:"max_iterations" validate:"gt=0,lte=10000"`
	ExcludeGroups bool `json:"exclude_groups" toml:"exclude_groups" yaml:"exclude_groups"`
}

// Topology configures the dependency layout.
type Topology struct {
	ColumnGap  float64 `json:"column_gap" toml:"column_gap" yaml:"column_gap" validate:"gte=0"`
	RowGap     float64 `json:"row_gap" toml:"row_gap" yaml:"row_gap" validate:"gte=0"`
	Center     bool    `json:"center" toml:"center" yaml:"center"`
	GroupInset float64 `json:"group_inset" toml:"group_inset" yaml:"group_inset" validate:"gte=0"`
}

// Grid configures the tidy relayout.
type Grid struct {
	ColumnGap        float64 `json:"column_gap" toml:"column_gap" yaml:"column_gap" validate:"gte=0"`
	RowGap           float64 `json:"row_gap" toml:"row_gap" yaml:"row_gap" validate:"gte=0"`
	OverlapThreshold float64 `json:"overlap_threshold" toml:"overlap_threshold" yaml:"overlap_threshold" validate:"gt=0,lte=1"`
	Align            string  `json:"align" toml:"align" yaml:"align" validate:"oneof=center start"`
}

// DefaultLayout returns the tunables the engine uses without a config file.
func DefaultLayout() Layout {
	return Layout{
		Mesh: mesh.DefaultConfig(),
		Collision: Collision{
			MaxIterations: collision.DefaultMaxIterations,
		},
		AutoScale: autoscale.DefaultOptions(),
		Topology: Topology{
			ColumnGap:  topology.DefaultColumnGap,
			RowGap:     topology.DefaultRowGap,
			GroupInset: topology.DefaultGroupInset,
		},
		Grid: Grid{
			ColumnGap:        gridlayout.DefaultColumnGap,
			RowGap:           gridlayout.DefaultRowGap,
			OverlapThreshold: gridlayout.DefaultOverlapThreshold,
			Align:            string(gridlayout.AlignCenter),
		},
	}
}

// CollisionOptions returns the resolver options for a run.
func (l Layout) CollisionOptions(anchored bool) collision.Options {
	return collision.Options{
		MaxIterations: l.Collision.MaxIterations,
		ExcludeGroups: l.Collision.ExcludeGroups,
		Anchored:      anchored,
	}
}

// TopologyOptions returns the packing options of the dependency layout.
func (l Layout) TopologyOptions() topology.Options {
	return topology.Options{
		ColumnGap:      l.Topology.ColumnGap,
		RowGap:         l.Topology.RowGap,
		CenterInColumn: l.Topology.Center,
		GroupInset:     l.Topology.GroupInset,
		Order:          topology.ByPosition,
	}
}

// GridOptions returns the options of the tidy relayout.
func (l Layout) GridOptions() gridlayout.Options {
	return gridlayout.Options{
		ColumnGap:        l.Grid.ColumnGap,
		RowGap:           l.Grid.RowGap,
		OverlapThreshold: l.Grid.OverlapThreshold,
		Align:            gridlayout.Align(l.Grid.Align),
	}
}

// =============================================================================
// Server and Persistence
// =============================================================================

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Persistence stores.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreMongo  = "mongo"
)

// Server configures the HTTP API.
type Server struct {
	Addr      string   `json:"addr" toml:"addr" yaml:"addr" validate:"required"`
	Cache     string   `json:"cache" toml:"cache" yaml:"cache" validate:"oneof=none file redis"`
	CacheDir  string   `json:"cache_dir" toml:"cache_dir" yaml:"cache_dir" validate:"required_if=Cache file"`
	RedisAddr string   `json:"redis_addr" toml:"redis_addr" yaml:"redis_addr" validate:"required_if=Cache redis"`
	CacheTTL  Duration `json:"cache_ttl" toml:"cache_ttl" yaml:"cache_ttl" validate:"gte=0"`
	// KeyPrefix namespaces cache keys when several deployments share a backend.
	KeyPrefix string `json:"key_prefix" toml:"key_prefix" yaml:"key_prefix" validate:"max=64"`
	// MaxBodyBytes bounds request documents.
	MaxBodyBytes int64 `json:"max_body_bytes" toml:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`
	Metrics      bool  `json:"metrics" toml:"metrics" yaml:"metrics"`
}

// Persist configures the debounced persistence batcher.
type Persist struct {
	Store      string   `json:"store" toml:"store" yaml:"store" validate:"oneof=none memory file mongo"`
	Debounce   Duration `json:"debounce" toml:"debounce" yaml:"debounce" validate:"gt=0"`
	Path       string   `json:"path" toml:"path" yaml:"path" validate:"required_if=Store file"`
	MongoURI   string   `json:"mongo_uri" toml:"mongo_uri" yaml:"mongo_uri" validate:"required_if=Store mongo"`
	Database   string   `json:"database" toml:"database" yaml:"database" validate:"required_if=Store mongo"`
	Collection string   `json:"collection" toml:"collection" yaml:"collection" validate:"required_if=Store mongo"`
}

// Log configures logging.
type Log struct {
	Level string `json:"level" toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// =============================================================================
// Config
// =============================================================================

// Config is the full configuration file.
type Config struct {
	Layout  Layout  `json:"layout" toml:"layout" yaml:"layout"`
	Server  Server  `json:"server" toml:"server" yaml:"server"`
	Persist Persist `json:"persist" toml:"persist" yaml:"persist"`
	Log     Log     `json:"log" toml:"log" yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Layout: DefaultLayout(),
		Server: Server{
			Addr:         ":8080",
			Cache:        CacheNone,
			CacheTTL:     Duration(10 * time.Minute),
			MaxBodyBytes: 8 << 20,
			Metrics:      true,
		},
		Persist: Persist{
			Store:      StoreNone,
			Debounce:   Duration(500 * time.Millisecond),
			Database:   "clash",
			Collection: "nodes",
		},
		Log: Log{Level: "info"},
	}
}

// =============================================================================
// Duration
// =============================================================================

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
