package tilemesh

import (
	"fmt"

	"github.com/gorustyt/tilemesh/recast"
)

// AreaType is the semantic class of a polygon. The numeric value is the area
// id stored in tile data.
type AreaType uint8

const (
	AreaGround AreaType = iota
	AreaWater
	AreaRoad
	AreaDoor
	AreaGrass
	AreaJump
)

// PolyFlags are the traversal abilities a polygon grants.
type PolyFlags uint16

const (
	FlagWalk     PolyFlags = 0x01
	FlagSwim     PolyFlags = 0x02
	FlagDoor     PolyFlags = 0x04
	FlagJump     PolyFlags = 0x08
	FlagDisabled PolyFlags = 0x10
	FlagAll      PolyFlags = 0xffff
)

var areaNames = [...]string{
	AreaGround: "ground",
	AreaWater:  "water",
	AreaRoad:   "road",
	AreaDoor:   "door",
	AreaGrass:  "grass",
	AreaJump:   "jump",
}

// AreaFromID converts a rasterizer area id into an AreaType. The generic
// walkable id produced by slope marking becomes ground.
func AreaFromID(id uint8) (AreaType, bool) {
	if id == recast.RC_WALKABLE_AREA {
		return AreaGround, true
	}
	if int(id) < len(areaNames) {
		return AreaType(id), true
	}
	return 0, false
}

// ParseArea looks an area up by name.
func ParseArea(name string) (AreaType, error) {
	for i, n := range areaNames {
		if n == name {
			return AreaType(i), nil
		}
	}
	return 0, fmt.Errorf("tilemesh: unknown area %q", name)
}

func (a AreaType) String() string {
	if int(a) < len(areaNames) {
		return areaNames[a]
	}
	return fmt.Sprintf("area(%d)", uint8(a))
}

// Flags returns the traversal flags granted by the area. Unknown areas grant
// nothing.
func (a AreaType) Flags() PolyFlags {
	switch a {
	case AreaGround, AreaGrass, AreaRoad:
		return FlagWalk
	case AreaWater:
		return FlagSwim
	case AreaDoor:
		return FlagWalk | FlagDoor
	case AreaJump:
		return FlagJump
	}
	return 0
}

// assignPolyFlags rewrites the area ids of a polygon mesh to AreaTypes and sets
// the matching flags. Polygons with an unknown area id are left unflagged.
func assignPolyFlags(pmesh *recast.RcPolyMesh) {
	for i := 0; i < pmesh.Npolys; i++ {
		area, ok := AreaFromID(pmesh.Areas[i])
		if !ok {
			pmesh.Flags[i] = 0
			continue
		}
		pmesh.Areas[i] = uint8(area)
		pmesh.Flags[i] = uint16(area.Flags())
	}
}
