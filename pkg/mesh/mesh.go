// Package mesh snaps positions to a coarse grid and searches that grid for a
// slot that does not collide with anything already placed.
//
// The search is horizontal first: starting at the snapped target it advances
// one grid column at a time. After [Config.MaxColumns] columns it wraps to
// column 0 of the next row band, where a band is as tall as the placed node's
// own cell height. The search gives up after [MaxAttempts] candidates and
// falls back to a slot below everything it knows about; the fallback is
// always collision free but reported through [Placement.Fallback] so callers
// can log it.
package mesh

import (
	"math"

	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// MaxAttempts bounds the number of candidate cells examined per search.
const MaxAttempts = 100

// Default grid parameters.
const (
	DefaultCellWidth  = 20.0
	DefaultCellHeight = 20.0
	DefaultMaxColumns = 60
	DefaultPadding    = 20.0
)

// horizontalBias is how much cheaper a vertical push must be before it is
// preferred over a horizontal one.
const horizontalBias = 1.5

// Config describes the grid.
type Config struct {
	CellWidth  float64 `json:"cell_width" toml:"cell_width" yaml:"cell_width" validate:"gt=0"`
	CellHeight float64 `json:"cell_height" toml:"cell_height" yaml:"cell_height" validate:"gt=0"`
	MaxColumns int     `json:"max_columns" toml:"max_columns" yaml:"max_columns" validate:"gt=0"`
	// Padding is the clearance kept between a placed node and its neighbours.
	Padding float64 `json:"padding" toml:"padding" yaml:"padding" validate:"gte=0"`
}

// DefaultConfig returns the grid used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		CellWidth:  DefaultCellWidth,
		CellHeight: DefaultCellHeight,
		MaxColumns: DefaultMaxColumns,
		Padding:    DefaultPadding,
	}
}

// Mesh performs grid searches. It holds no state besides its configuration
// and is safe for concurrent use.
type Mesh struct {
	cfg Config
}

// New creates a mesh. Non-positive fields fall back to the defaults.
func New(cfg Config) *Mesh {
	def := DefaultConfig()
	if cfg.CellWidth <= 0 {
		cfg.CellWidth = def.CellWidth
	}
	if cfg.CellHeight <= 0 {
		cfg.CellHeight = def.CellHeight
	}
	if cfg.MaxColumns <= 0 {
		cfg.MaxColumns = def.MaxColumns
	}
	if cfg.Padding < 0 {
		cfg.Padding = 0
	}
	return &Mesh{cfg: cfg}
}

// Config returns the effective configuration.
func (m *Mesh) Config() Config { return m.cfg }

// Padding returns the clearance kept around placed nodes.
func (m *Mesh) Padding() float64 { return m.cfg.Padding }

// Snap rounds p to the nearest grid intersection.
func (m *Mesh) Snap(p geom.Point) geom.Point {
	return geom.Point{
		X: math.Round(p.X/m.cfg.CellWidth) * m.cfg.CellWidth,
		Y: math.Round(p.Y/m.cfg.CellHeight) * m.cfg.CellHeight,
	}
}

// Placement is the outcome of a search.
type Placement struct {
	Position geom.Point
	Attempts int
	// Fallback is set when no free cell was found within MaxAttempts and the
	// node was parked below all known content instead.
	Fallback bool
}

// FindNonOverlappingPosition returns the first free slot for a node of the
// given size, starting at target. A slot is free when the node, grown by the
// padding, does not overlap any rect in occupied.
func (m *Mesh) FindNonOverlappingPosition(target geom.Point, size geom.Size, occupied []geom.Rect) Placement {
	start := m.Snap(target)
	cw, pad := m.cfg.CellWidth, m.cfg.Padding
	band := math.Ceil((size.Height+pad)/m.cfg.CellHeight) * m.cfg.CellHeight

	col := math.Round(start.X / cw)
	y := start.Y
	stepped := 0
	lowest := y + size.Height

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		candidate := geom.Rect{X: col * cw, Y: y, Width: size.Width, Height: size.Height}
		if m.isFree(candidate, occupied) {
			return Placement{Position: candidate.Position(), Attempts: attempt}
		}
		lowest = math.Max(lowest, candidate.Bottom())

		col++
		stepped++
		if stepped >= m.cfg.MaxColumns {
			col, stepped = 0, 0
			y += band
		}
	}

	for _, r := range occupied {
		lowest = math.Max(lowest, r.Bottom())
	}
	fallbackY := math.Ceil((lowest+pad)/m.cfg.CellHeight) * m.cfg.CellHeight
	return Placement{
		Position: geom.Point{X: start.X, Y: fallbackY},
		Attempts: MaxAttempts,
		Fallback: true,
	}
}

func (m *Mesh) isFree(candidate geom.Rect, occupied []geom.Rect) bool {
	grown := candidate.Inflate(m.cfg.Padding)
	for _, r := range occupied {
		if geom.Overlaps(grown, r) {
			return false
		}
	}
	return true
}

// CalculatePushVector returns the displacement that moves pushed clear of
// obstacle with padding to spare. Horizontal pushes are preferred unless a
// vertical push is at least 1.5 times shorter.
func CalculatePushVector(pushed, obstacle geom.Rect, padding float64) geom.Point {
	pc, oc := pushed.Center(), obstacle.Center()

	var dx float64
	if pc.X >= oc.X {
		dx = obstacle.Right() + padding - pushed.X
	} else {
		dx = obstacle.X - padding - pushed.Right()
	}
	var dy float64
	if pc.Y >= oc.Y {
		dy = obstacle.Bottom() + padding - pushed.Y
	} else {
		dy = obstacle.Y - padding - pushed.Bottom()
	}

	if math.Abs(dy)*horizontalBias <= math.Abs(dx) {
		return geom.Point{Y: dy}
	}
	return geom.Point{X: dx}
}
