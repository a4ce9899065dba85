package tilemesh

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/gorustyt/tilemesh/common"
	"github.com/gorustyt/tilemesh/detour"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/message"
	"github.com/gorustyt/tilemesh/recast"
)

// MaxQueryNodes is the node pool size of the query bound to a built mesh.
const MaxQueryNodes = 2048

// Stats describe the most recent tile build and whole-mesh build.
type Stats struct {
	TileX, TileY   int
	TileBuildTime  time.Duration
	TileTriCount   int
	TilePolyCount  int
	TileMemUsage   int
	TotalBuildTime time.Duration
	TilesBuilt     int
}

type Option func(*Manager)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithProgress installs the whole-mesh build status callback.
func WithProgress(fn func(string)) Option {
	return func(m *Manager) { m.progress = fn }
}

func WithBuildMode(mode BuildMode) Option {
	return func(m *Manager) { m.mode = mode }
}

func WithSettings(s Settings) Option {
	return func(m *Manager) { m.settings = s }
}

// WithEvents installs a callback receiving every tile insertion and removal.
func WithEvents(fn func(*message.TileEvent)) Option {
	return func(m *Manager) { m.events = fn }
}

// Manager owns a tiled nav mesh and rebuilds it from an input geometry, either
// whole or one tile at a time. It is not safe for concurrent use.
type Manager struct {
	log      *zap.SugaredLogger
	ctx      *recast.RcContext
	settings Settings
	mode     BuildMode
	progress func(string)
	events   func(*message.TileEvent)
	now      func() time.Time

	geom       *geom.InputGeom
	hasBounds  bool
	boundsMin  common.Vec3
	boundsMax  common.Vec3
	bmin, bmax common.Vec3
	tw, th     int

	nav   *detour.NavMesh
	query *detour.NavMeshQuery

	maxTiles        int
	maxPolysPerTile int

	stats Stats
	inter *Intermediates
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{settings: DefaultSettings(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = zap.NewNop().Sugar()
	}
	m.ctx = recast.NewRcContext(m.log)
	return m
}

// ResetSettings restores the default build settings.
func (m *Manager) ResetSettings() {
	m.settings = DefaultSettings()
}

func (m *Manager) SetSettings(s Settings) {
	m.settings = s
}

func (m *Manager) Settings() Settings {
	return m.settings
}

func (m *Manager) SetBuildMode(mode BuildMode) {
	m.mode = mode
	if mode == ReleaseIntermediates {
		m.inter = nil
	}
}

// SetGeom replaces the input geometry and drops the current nav mesh. Build
// settings stored with the geometry replace the current settings.
func (m *Manager) SetGeom(g *geom.InputGeom) {
	m.geom = g
	m.nav = nil
	m.query = nil
	m.inter = nil
	m.tw, m.th = 0, 0
	if g != nil && g.BuildSettings != nil {
		m.settings = SettingsFromGeom(g.BuildSettings)
		bs := g.BuildSettings
		if bs.NavMeshBMax[0] > bs.NavMeshBMin[0] && bs.NavMeshBMax[2] > bs.NavMeshBMin[2] {
			m.SetBounds(bs.NavMeshBMin, bs.NavMeshBMax)
		}
	}
}

func (m *Manager) Geom() *geom.InputGeom {
	return m.geom
}

// SetBounds pins the build bounds instead of deriving them from the geometry.
func (m *Manager) SetBounds(bmin, bmax common.Vec3) {
	m.hasBounds = true
	m.boundsMin = bmin
	m.boundsMax = bmax
}

// ClearBounds reverts to geometry derived bounds.
func (m *Manager) ClearBounds() {
	m.hasBounds = false
	m.boundsMin = common.Vec3{}
	m.boundsMax = common.Vec3{}
}

// Bounds returns the bounds the next Build will use.
func (m *Manager) Bounds() (bmin, bmax common.Vec3) {
	if m.hasBounds {
		return m.boundsMin, m.boundsMax
	}
	if m.geom != nil {
		return m.geom.NavMeshBoundsMin(), m.geom.NavMeshBoundsMax()
	}
	return common.Vec3{}, common.Vec3{}
}

func (m *Manager) NavMesh() *detour.NavMesh { return m.nav }
func (m *Manager) Query() *detour.NavMeshQuery { return m.query }
func (m *Manager) Stats() Stats { return m.stats }
func (m *Manager) Context() *recast.RcContext { return m.ctx }
func (m *Manager) GridSize() (tw, th int) { return m.tw, m.th }
func (m *Manager) Limits() (maxTiles, maxPolys int) { return m.maxTiles, m.maxPolysPerTile }
func (m *Manager) Intermediates() *Intermediates { return m.inter }
func (m *Manager) BuildMode() BuildMode { return m.mode }

// Build initializes a fresh nav mesh sized for the current geometry and
// bounds, and builds every tile when buildAll is set.
func (m *Manager) Build(buildAll bool) bool {
	if m.geom == nil || m.geom.Mesh == nil || m.geom.Chunky == nil {
		m.log.Errorw("build tiled navigation", "error", ErrNoGeometry)
		return false
	}
	bmin, bmax := m.Bounds()
	tw, th := m.settings.GridSize(bmin, bmax)
	tileBits := min(int(common.Ilog2(common.NextPow2(uint32(tw*th)))), 14)
	polyBits := 22 - tileBits
	maxTiles := 1 << tileBits
	maxPolys := 1 << polyBits

	tcs := m.settings.TileWorldSize()
	params := detour.NavMeshParams{
		Orig:       [3]float32(bmin),
		TileWidth:  tcs,
		TileHeight: tcs,
		MaxTiles:   int32(maxTiles),
		MaxPolys:   int32(maxPolys),
	}
	nav := &detour.NavMesh{}
	if status := nav.Init(&params); status.Failed() {
		m.log.Errorw("build tiled navigation: could not init navmesh", "status", status)
		return false
	}
	query, status := detour.NewNavMeshQuery(nav, MaxQueryNodes)
	if status.Failed() {
		m.log.Errorw("build tiled navigation: could not init navmesh query", "status", status)
		return false
	}

	m.nav, m.query = nav, query
	m.bmin, m.bmax = bmin, bmax
	m.tw, m.th = tw, th
	m.maxTiles, m.maxPolysPerTile = maxTiles, maxPolys
	m.inter = nil
	m.log.Infow("navmesh initialized", "tiles", fmt.Sprintf("%dx%d", tw, th),
		"maxTiles", maxTiles, "maxPolys", maxPolys)

	if buildAll {
		m.BuildAllTiles()
	}
	return true
}

// BuildAllTiles rebuilds every tile of the grid in row-major order. Tiles that
// produce no data keep whatever occupied their coordinate.
func (m *Manager) BuildAllTiles() {
	if m.geom == nil || m.nav == nil {
		m.log.Errorw("build all tiles", "error", ErrNotBuilt)
		return
	}
	start := m.now()
	p := newProgress(m.progress, m.now)
	total := m.tw * m.th
	built := 0
	for y := 0; y < m.th; y++ {
		for x := 0; x < m.tw; x++ {
			data, err := m.buildTile(x, y)
			if err != nil {
				m.log.Warnw("tile build failed", "x", x, "y", y, "error", err)
			} else if data != nil {
				if err := m.replaceTile(x, y, data); err == nil {
					built++
				}
			}
			p.report(y*m.tw+x+1, total)
		}
	}
	m.stats.TotalBuildTime = m.now().Sub(start)
	m.stats.TilesBuilt = built
	m.log.Infow("built all tiles", "tiles", built, "elapsed", m.stats.TotalBuildTime)
}

// GetTilePos maps a world position to its tile coordinate.
func (m *Manager) GetTilePos(pos []float32) (tx, ty int) {
	if m.nav != nil {
		return m.nav.CalcTileLoc(pos)
	}
	bmin, _ := m.Bounds()
	ts := m.settings.TileWorldSize()
	tx = int(math.Floor(float64((pos[0] - bmin[0]) / ts)))
	ty = int(math.Floor(float64((pos[2] - bmin[2]) / ts)))
	return tx, ty
}

// BuildTile rebuilds the tile containing pos.
func (m *Manager) BuildTile(pos []float32) error {
	tx, ty := m.GetTilePos(pos)
	return m.BuildTileAt(tx, ty)
}

// RemoveTile removes the tile containing pos.
func (m *Manager) RemoveTile(pos []float32) error {
	tx, ty := m.GetTilePos(pos)
	return m.RemoveTileAt(tx, ty)
}

// BuildTileAt rebuilds tile (tx, ty). A failed build leaves the previous tile
// in place; an empty result removes it.
func (m *Manager) BuildTileAt(tx, ty int) error {
	if m.geom == nil {
		return ErrNoGeometry
	}
	if m.nav == nil {
		return ErrNotBuilt
	}
	if err := m.checkRange(tx, ty); err != nil {
		return err
	}
	data, err := m.buildTile(tx, ty)
	if err != nil {
		m.log.Errorw("tile build failed", "x", tx, "y", ty, "error", err)
		return err
	}
	if data == nil {
		m.removeTileAt(tx, ty)
		return nil
	}
	return m.replaceTile(tx, ty, data)
}

func (m *Manager) RemoveTileAt(tx, ty int) error {
	if m.nav == nil {
		return ErrNotBuilt
	}
	if err := m.checkRange(tx, ty); err != nil {
		return err
	}
	m.removeTileAt(tx, ty)
	return nil
}

// RemoveAllTiles empties the nav mesh, keeping its parameters.
func (m *Manager) RemoveAllTiles() {
	if m.nav == nil {
		return
	}
	for i := 0; i < m.nav.MaxTiles(); i++ {
		tile := m.nav.GetTile(i)
		if tile.Header == nil {
			continue
		}
		x, y := int(tile.Header.X), int(tile.Header.Y)
		m.nav.RemoveTile(m.nav.TileRef(tile))
		m.emit(message.TileRemoved, x, y, 0, nil)
	}
}

// checkRange rejects coordinates outside the grid. A mesh loaded without
// geometry has no known grid and only rejects negative coordinates.
func (m *Manager) checkRange(tx, ty int) error {
	if tx < 0 || ty < 0 || (m.tw > 0 && tx >= m.tw) || (m.th > 0 && ty >= m.th) {
		m.log.Warnw("tile coordinate out of range", "x", tx, "y", ty, "grid", fmt.Sprintf("%dx%d", m.tw, m.th))
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, tx, ty)
	}
	return nil
}

func (m *Manager) removeTileAt(tx, ty int) {
	if ref := m.nav.TileRefAt(tx, ty, 0); ref != 0 {
		m.nav.RemoveTile(ref)
		m.emit(message.TileRemoved, tx, ty, 0, nil)
	}
}

func (m *Manager) replaceTile(tx, ty int, data []byte) error {
	m.removeTileAt(tx, ty)
	ref, status := m.nav.AddTile(data, detour.DT_TILE_FREE_DATA, 0)
	if status.Failed() {
		m.log.Errorw("add tile", "x", tx, "y", ty, "status", status)
		return fmt.Errorf("%w: (%d,%d) status %#x", ErrAddTile, tx, ty, uint32(status))
	}
	m.emit(message.TileBuilt, tx, ty, ref, data)
	return nil
}

func (m *Manager) emit(kind message.EventKind, tx, ty int, ref detour.DtTileRef, data []byte) {
	if m.events == nil {
		return
	}
	e := &message.TileEvent{Kind: kind, X: int32(tx), Y: int32(ty), Ref: uint32(ref)}
	if kind == message.TileBuilt {
		e.DataSize = int32(len(data))
		e.Polys = int32(m.stats.TilePolyCount)
		e.BuildTimeUs = m.stats.TileBuildTime.Microseconds()
	}
	m.events(e)
}

// buildTile runs the worker for one tile with a freshly derived config.
func (m *Manager) buildTile(tx, ty int) ([]byte, error) {
	tbmin, tbmax := tileBounds(m.settings, m.bmin, m.bmax, tx, ty)
	job := tileJob{
		tx:   tx,
		ty:   ty,
		cfg:  m.settings.tileConfig(tbmin, tbmax),
		set:  m.settings,
		geom: m.geom,
		mode: m.mode,
	}

	m.ctx.ResetTimers()
	m.ctx.StartTimer(recast.RC_TIMER_TOTAL)
	res, err := buildTileMesh(m.ctx, job)
	m.ctx.StopTimer(recast.RC_TIMER_TOTAL)

	m.stats.TileX, m.stats.TileY = tx, ty
	m.stats.TileBuildTime = m.ctx.AccumulatedTime(recast.RC_TIMER_TOTAL)
	m.stats.TileTriCount = res.triCount
	m.stats.TilePolyCount = res.polys
	m.stats.TileMemUsage = len(res.data)
	if m.mode == KeepIntermediates && res.inter != nil {
		m.inter = res.inter
	}
	if err != nil {
		return nil, err
	}
	if res.polys > m.maxPolysPerTile {
		m.log.Warnw("tile exceeds poly limit", "x", tx, "y", ty, "polys", res.polys, "max", m.maxPolysPerTile)
	}
	return res.data, nil
}
