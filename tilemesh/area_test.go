package tilemesh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/tilemesh/common"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/recast"
)

func TestAreaFlags(t *testing.T) {
	tests := []struct {
		area  AreaType
		name  string
		flags PolyFlags
	}{
		{AreaGround, "ground", FlagWalk},
		{AreaGrass, "grass", FlagWalk},
		{AreaRoad, "road", FlagWalk},
		{AreaWater, "water", FlagSwim},
		{AreaDoor, "door", FlagWalk | FlagDoor},
		{AreaJump, "jump", FlagJump},
		{AreaType(42), "area(42)", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.flags, tt.area.Flags())
			assert.Equal(t, tt.name, tt.area.String())
		})
	}
}

func TestAreaFromID(t *testing.T) {
	a, ok := AreaFromID(recast.RC_WALKABLE_AREA)
	assert.True(t, ok)
	assert.Equal(t, AreaGround, a)

	a, ok = AreaFromID(uint8(AreaDoor))
	assert.True(t, ok)
	assert.Equal(t, AreaDoor, a)

	_, ok = AreaFromID(200)
	assert.False(t, ok)

	a, err := ParseArea("water")
	require.NoError(t, err)
	assert.Equal(t, AreaWater, a)
	_, err = ParseArea("lava")
	assert.Error(t, err)
}

func TestAssignPolyFlags(t *testing.T) {
	pmesh := &recast.RcPolyMesh{
		Npolys: 4,
		Areas:  []uint8{recast.RC_WALKABLE_AREA, uint8(AreaWater), uint8(AreaDoor), 99},
		Flags:  make([]uint16, 4),
	}
	assignPolyFlags(pmesh)
	assert.Equal(t, []uint8{uint8(AreaGround), uint8(AreaWater), uint8(AreaDoor), 99}, pmesh.Areas)
	assert.Equal(t, []uint16{uint16(FlagWalk), uint16(FlagSwim), uint16(FlagWalk | FlagDoor), 0}, pmesh.Flags)
}

func TestTileConfig(t *testing.T) {
	s := DefaultSettings()
	cfg := s.tileConfig(common.Vec3{0, -1, 0}, common.Vec3{38.4, 1, 38.4})

	assert.Equal(t, 10, cfg.WalkableHeight)
	assert.Equal(t, 4, cfg.WalkableClimb)
	assert.Equal(t, 2, cfg.WalkableRadius)
	assert.Equal(t, 5, cfg.BorderSize)
	assert.Equal(t, 138, cfg.Width)
	assert.Equal(t, 138, cfg.Height)
	assert.Equal(t, 64, cfg.MinRegionArea)
	assert.Equal(t, 400, cfg.MergeRegionArea)
	assert.Equal(t, 6, cfg.MaxVertsPerPoly)
	assert.InDelta(t, 1.8, cfg.DetailSampleDist, 1e-5)
	assert.InDelta(t, 0.2, cfg.DetailSampleMaxError, 1e-5)
	assert.InDelta(t, -1.5, cfg.Bmin[0], 1e-5)
	assert.InDelta(t, 39.9, cfg.Bmax[2], 1e-4)
	assert.Equal(t, float32(-1), cfg.Bmin[1])
	assert.Equal(t, float32(1), cfg.Bmax[1])

	s.DetailSampleDist = 0.5
	assert.Zero(t, s.tileConfig(common.Vec3{}, common.Vec3{1, 1, 1}).DetailSampleDist)
}

func TestGridSize(t *testing.T) {
	s := DefaultSettings()
	tw, th := s.GridSize(common.Vec3{}, common.Vec3{256, 0, 256})
	assert.Equal(t, 7, tw)
	assert.Equal(t, 7, th)

	s.TileSize = 32
	tw, th = s.GridSize(common.Vec3{}, common.Vec3{36, 0, 12})
	assert.Equal(t, 4, tw)
	assert.Equal(t, 2, th)
}

func TestSettingsFromGeom(t *testing.T) {
	s := SettingsFromGeom(&geom.BuildSettings{CellSize: 0.5, TileSize: 64, VertsPerPoly: 3, PartitionType: 1})
	assert.Equal(t, float32(0.5), s.CellSize)
	assert.Equal(t, 64, s.TileSize)
	assert.Equal(t, 3, s.VertsPerPoly)
	assert.True(t, s.Monotone)
	assert.Equal(t, DefaultSettings().AgentHeight, s.AgentHeight)
	assert.Equal(t, DefaultSettings(), SettingsFromGeom(nil))
}

func TestProgressThrottle(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	var got []string
	p := newProgress(func(s string) { got = append(got, s) }, clock)

	steps := []struct {
		done    int
		advance time.Duration
		emitted bool
	}{
		{1, 0, true},
		{2, time.Second, false},
		{4, time.Second, false},
		{5, time.Second, true},
		{6, 16 * time.Second, true},
		{7, time.Second, false},
		{100, time.Second, true},
	}
	for _, step := range steps {
		now = now.Add(step.advance)
		before := len(got)
		p.report(step.done, 100)
		assert.Equal(t, step.emitted, len(got) > before, "done=%d", step.done)
	}
	assert.Equal(t, "Building tiles: 100% (21.0s)", got[len(got)-1])
}
