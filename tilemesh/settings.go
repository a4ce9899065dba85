package tilemesh

import (
	"math"

	"github.com/gorustyt/tilemesh/common"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/recast"
)

// BuildMode controls what the per-tile worker keeps after a tile is built.
type BuildMode int

const (
	// ReleaseIntermediates drops every stage result once the tile blob exists.
	ReleaseIntermediates BuildMode = iota
	// KeepIntermediates retains the stage results of the most recent tile.
	KeepIntermediates
)

func (m BuildMode) String() string {
	switch m {
	case ReleaseIntermediates:
		return "release"
	case KeepIntermediates:
		return "keep"
	}
	return "unknown"
}

// Settings are the user facing build parameters. Lengths are in world units.
type Settings struct {
	CellSize             float32 `json:"cellSize"`
	CellHeight           float32 `json:"cellHeight"`
	AgentHeight          float32 `json:"agentHeight"`
	AgentRadius          float32 `json:"agentRadius"`
	AgentMaxClimb        float32 `json:"agentMaxClimb"`
	AgentMaxSlope        float32 `json:"agentMaxSlope"`
	RegionMinSize        float32 `json:"regionMinSize"`
	RegionMergeSize      float32 `json:"regionMergeSize"`
	Monotone             bool    `json:"monotone"`
	EdgeMaxLen           float32 `json:"edgeMaxLen"`
	EdgeMaxError         float32 `json:"edgeMaxError"`
	VertsPerPoly         int     `json:"vertsPerPoly"`
	DetailSampleDist     float32 `json:"detailSampleDist"`
	DetailSampleMaxError float32 `json:"detailSampleMaxError"`
	TileSize             int     `json:"tileSize"`
}

func DefaultSettings() Settings {
	return Settings{
		CellSize:             0.3,
		CellHeight:           0.2,
		AgentHeight:          2.0,
		AgentRadius:          0.6,
		AgentMaxClimb:        0.9,
		AgentMaxSlope:        45,
		RegionMinSize:        8,
		RegionMergeSize:      20,
		EdgeMaxLen:           12,
		EdgeMaxError:         1.3,
		VertsPerPoly:         6,
		DetailSampleDist:     6,
		DetailSampleMaxError: 1,
		TileSize:             128,
	}
}

// SettingsFromGeom overlays the build settings stored with a geometry set on
// top of the defaults. Zero fields keep their default.
func SettingsFromGeom(bs *geom.BuildSettings) Settings {
	s := DefaultSettings()
	if bs == nil {
		return s
	}
	set := func(dst *float32, v float32) {
		if v > 0 {
			*dst = v
		}
	}
	set(&s.CellSize, bs.CellSize)
	set(&s.CellHeight, bs.CellHeight)
	set(&s.AgentHeight, bs.AgentHeight)
	set(&s.AgentRadius, bs.AgentRadius)
	set(&s.AgentMaxClimb, bs.AgentMaxClimb)
	set(&s.AgentMaxSlope, bs.AgentMaxSlope)
	set(&s.RegionMinSize, bs.RegionMinSize)
	set(&s.RegionMergeSize, bs.RegionMergeSize)
	set(&s.EdgeMaxLen, bs.EdgeMaxLen)
	set(&s.EdgeMaxError, bs.EdgeMaxError)
	set(&s.DetailSampleDist, bs.DetailSampleDist)
	set(&s.DetailSampleMaxError, bs.DetailSampleMaxError)
	if bs.VertsPerPoly > 0 {
		s.VertsPerPoly = int(bs.VertsPerPoly)
	}
	if bs.TileSize > 0 {
		s.TileSize = int(bs.TileSize)
	}
	s.Monotone = bs.PartitionType == 1
	return s
}

// TileWorldSize is the edge length of one tile in world units.
func (s Settings) TileWorldSize() float32 {
	return float32(s.TileSize) * s.CellSize
}

// GridSize returns the number of tiles covering the given bounds.
func (s Settings) GridSize(bmin, bmax common.Vec3) (tw, th int) {
	gw, gh := recast.RcCalcGridSize(bmin, bmax, s.CellSize)
	ts := s.TileSize
	return (gw + ts - 1) / ts, (gh + ts - 1) / ts
}

// tileConfig derives the voxel configuration of one tile. The returned value
// is never shared between tiles.
func (s Settings) tileConfig(tbmin, tbmax common.Vec3) recast.RcConfig {
	cfg := recast.RcConfig{
		Cs:                     s.CellSize,
		Ch:                     s.CellHeight,
		WalkableSlopeAngle:     s.AgentMaxSlope,
		WalkableHeight:         int(math.Ceil(float64(s.AgentHeight / s.CellHeight))),
		WalkableClimb:          int(math.Floor(float64(s.AgentMaxClimb / s.CellHeight))),
		WalkableRadius:         int(math.Ceil(float64(s.AgentRadius / s.CellSize))),
		MaxEdgeLen:             int(s.EdgeMaxLen / s.CellSize),
		MaxSimplificationError: s.EdgeMaxError,
		MinRegionArea:          int(common.Sqr(s.RegionMinSize)),
		MergeRegionArea:        int(common.Sqr(s.RegionMergeSize)),
		MaxVertsPerPoly:        s.VertsPerPoly,
		TileSize:               s.TileSize,
		DetailSampleMaxError:   s.CellHeight * s.DetailSampleMaxError,
	}
	cfg.BorderSize = cfg.WalkableRadius + 3
	cfg.Width = cfg.TileSize + cfg.BorderSize*2
	cfg.Height = cfg.TileSize + cfg.BorderSize*2
	if s.DetailSampleDist >= 0.9 {
		cfg.DetailSampleDist = s.CellSize * s.DetailSampleDist
	}

	pad := float32(cfg.BorderSize) * cfg.Cs
	cfg.Bmin = tbmin
	cfg.Bmax = tbmax
	cfg.Bmin[0] -= pad
	cfg.Bmin[2] -= pad
	cfg.Bmax[0] += pad
	cfg.Bmax[2] += pad
	return cfg
}
