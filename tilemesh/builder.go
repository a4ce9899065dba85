package tilemesh

import (
	"fmt"

	"github.com/gorustyt/tilemesh/common"
	"github.com/gorustyt/tilemesh/detour"
	"github.com/gorustyt/tilemesh/geom"
	"github.com/gorustyt/tilemesh/recast"
)

// Intermediates are the stage results of one tile build.
type Intermediates struct {
	TileX, TileY int
	Config       recast.RcConfig
	TriCount     int
	Solid        *recast.RcHeightfield
	Chf          *recast.RcCompactHeightfield
	Cset         *recast.RcContourSet
	PMesh        *recast.RcPolyMesh
	DMesh        *recast.RcPolyMeshDetail
}

// tileJob is everything the worker needs to build one tile. It holds no
// reference to manager state.
type tileJob struct {
	tx, ty int
	cfg    recast.RcConfig
	set    Settings
	geom   *geom.InputGeom
	mode   BuildMode
}

type tileResult struct {
	data     []byte
	triCount int
	polys    int
	inter    *Intermediates
}

// tileBounds returns the unbordered world bounds of tile (tx, ty).
func tileBounds(s Settings, bmin, bmax common.Vec3, tx, ty int) (tbmin, tbmax common.Vec3) {
	tcs := s.TileWorldSize()
	tbmin = common.Vec3{bmin[0] + float32(tx)*tcs, bmin[1], bmin[2] + float32(ty)*tcs}
	tbmax = common.Vec3{bmin[0] + float32(tx+1)*tcs, bmax[1], bmin[2] + float32(ty+1)*tcs}
	return tbmin, tbmax
}

// buildTileMesh runs the voxel pipeline for one tile. A tile without walkable
// surface yields a nil blob and a nil error.
func buildTileMesh(ctx *recast.RcContext, job tileJob) (tileResult, error) {
	var res tileResult
	g := job.geom
	if g == nil || g.Mesh == nil || g.Chunky == nil {
		ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Input mesh is not specified.")
		return res, ErrNoGeometry
	}
	cfg := job.cfg
	keep := job.mode == KeepIntermediates
	var inter *Intermediates
	if keep {
		inter = &Intermediates{TileX: job.tx, TileY: job.ty, Config: cfg}
	}

	solid, ok := recast.RcCreateHeightfield(ctx, cfg.Width, cfg.Height, cfg.Bmin, cfg.Bmax, cfg.Cs, cfg.Ch)
	if !ok {
		ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Could not create solid heightfield.")
		return res, fmt.Errorf("%w: heightfield", ErrStage)
	}

	tbmin := [2]float32{cfg.Bmin[0], cfg.Bmin[2]}
	tbmax := [2]float32{cfg.Bmax[0], cfg.Bmax[2]}
	cids := g.Chunky.ChunksOverlappingRect(tbmin, tbmax)
	if len(cids) == 0 {
		return res, nil
	}
	if len(cids) > maxChunkBatch {
		ctx.Log(recast.RC_LOG_WARNING, "buildNavigation: tile (%d,%d) touches %d chunks.", job.tx, job.ty, len(cids))
	}

	verts := g.Mesh.Verts
	areas := make([]uint8, g.Chunky.MaxTrisPerChunk)
	for _, id := range cids {
		tris := g.Chunky.NodeTris(id)
		ntris := len(tris) / 3
		res.triCount += ntris
		clear(areas[:ntris])
		recast.RcMarkWalkableTriangles(ctx, cfg.WalkableSlopeAngle, verts, tris, areas[:ntris])
		if !recast.RcRasterizeTriangles(ctx, verts, tris, areas[:ntris], solid, cfg.WalkableClimb) {
			return res, fmt.Errorf("%w: rasterize", ErrStage)
		}
	}

	recast.RcFilterLowHangingWalkableObstacles(ctx, cfg.WalkableClimb, solid)
	recast.RcFilterLedgeSpans(ctx, cfg.WalkableHeight, cfg.WalkableClimb, solid)
	recast.RcFilterWalkableLowHeightSpans(ctx, cfg.WalkableHeight, solid)

	chf, ok := recast.RcBuildCompactHeightfield(ctx, cfg.WalkableHeight, cfg.WalkableClimb, solid)
	if !ok {
		ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Could not build compact data.")
		return res, fmt.Errorf("%w: compact heightfield", ErrStage)
	}
	if keep {
		inter.Solid = solid
	}

	if !recast.RcErodeWalkableArea(ctx, cfg.WalkableRadius, chf) {
		ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Could not erode.")
		return res, fmt.Errorf("%w: erode", ErrStage)
	}
	for _, vol := range g.Volumes {
		recast.RcMarkConvexPolyArea(ctx, vol.Verts, vol.Hmin, vol.Hmax, vol.Area, chf)
	}

	if job.set.Monotone {
		ok = recast.RcBuildRegionsMonotone(ctx, chf, cfg.BorderSize, cfg.MinRegionArea, cfg.MergeRegionArea)
	} else {
		ok = recast.RcBuildDistanceField(ctx, chf) &&
			recast.RcBuildRegions(ctx, chf, cfg.BorderSize, cfg.MinRegionArea, cfg.MergeRegionArea)
	}
	if !ok {
		ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Could not build regions.")
		return res, fmt.Errorf("%w: regions", ErrStage)
	}

	cset, ok := recast.RcBuildContours(ctx, chf, cfg.MaxSimplificationError, cfg.MaxEdgeLen, recast.RC_CONTOUR_TESS_WALL_EDGES)
	if !ok {
		ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Could not create contours.")
		return res, fmt.Errorf("%w: contours", ErrStage)
	}
	if cset.Nconts() == 0 {
		return res, nil
	}

	// The poly mesh refuses this many contour vertices, so report the
	// ceiling here rather than as a generic stage failure.
	if n := contourVertCount(cset); n >= 0xfffe {
		ctx.Log(recast.RC_LOG_ERROR, "Too many contour vertices per tile %d (max: %d).", n, 0xfffe)
		return res, fmt.Errorf("%w: %d contour vertices", ErrTooManyVerts, n)
	}

	pmesh, ok := recast.RcBuildPolyMesh(ctx, cset, cfg.MaxVertsPerPoly)
	if !ok {
		ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Could not triangulate contours.")
		return res, fmt.Errorf("%w: poly mesh", ErrStage)
	}
	if keep {
		inter.Cset = cset
	}

	dmesh, ok := recast.RcBuildPolyMeshDetail(ctx, pmesh, chf, cfg.DetailSampleDist, cfg.DetailSampleMaxError)
	if !ok {
		ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Could not build detail mesh.")
		return res, fmt.Errorf("%w: detail mesh", ErrStage)
	}
	if keep {
		inter.Chf = chf
		inter.PMesh = pmesh
		inter.DMesh = dmesh
		inter.TriCount = res.triCount
		res.inter = inter
	}

	if cfg.MaxVertsPerPoly > detour.DT_VERTS_PER_POLYGON {
		ctx.Log(recast.RC_LOG_WARNING, "buildNavigation: %d verts per poly exceeds the tile format limit %d.",
			cfg.MaxVertsPerPoly, detour.DT_VERTS_PER_POLYGON)
		return res, nil
	}
	if pmesh.Nverts >= 0xffff {
		ctx.Log(recast.RC_LOG_ERROR, "Too many vertices per tile %d (max: %d).", pmesh.Nverts, 0xffff)
		return res, fmt.Errorf("%w: %d", ErrTooManyVerts, pmesh.Nverts)
	}
	assignPolyFlags(pmesh)

	params := createParams(job, pmesh, dmesh)
	data, ok := detour.DtCreateNavMeshData(params)
	if !ok {
		ctx.Log(recast.RC_LOG_ERROR, "Could not build Detour navmesh.")
		return res, fmt.Errorf("%w: nav mesh data", ErrStage)
	}
	res.data = data
	res.polys = pmesh.Npolys
	return res, nil
}

// contourVertCount sums the vertices of every contour the poly mesh will
// triangulate.
func contourVertCount(cset *recast.RcContourSet) int {
	n := 0
	for i := range cset.Conts {
		if cset.Conts[i].Nverts >= 3 {
			n += cset.Conts[i].Nverts
		}
	}
	return n
}

// maxChunkBatch is the chunk count above which a tile is reported as unusually
// dense. Gathering itself is not capped.
const maxChunkBatch = 4096

func createParams(job tileJob, pmesh *recast.RcPolyMesh, dmesh *recast.RcPolyMeshDetail) *detour.DtNavMeshCreateParams {
	params := &detour.DtNavMeshCreateParams{
		Verts:            pmesh.Verts,
		VertCount:        pmesh.Nverts,
		Polys:            pmesh.Polys,
		PolyAreas:        pmesh.Areas,
		PolyFlags:        pmesh.Flags,
		PolyCount:        pmesh.Npolys,
		Nvp:              pmesh.Nvp,
		DetailMeshes:     dmesh.Meshes,
		DetailVerts:      dmesh.Verts,
		DetailVertsCount: dmesh.Nverts,
		DetailTris:       dmesh.Tris,
		DetailTriCount:   dmesh.Ntris,
		WalkableHeight:   job.set.AgentHeight,
		WalkableRadius:   job.set.AgentRadius,
		WalkableClimb:    job.set.AgentMaxClimb,
		TileX:            job.tx,
		TileY:            job.ty,
		Bmin:             [3]float32(pmesh.Bmin),
		Bmax:             [3]float32(pmesh.Bmax),
		Cs:               job.cfg.Cs,
		Ch:               job.cfg.Ch,
		BuildBvTree:      true,
	}
	for _, con := range job.geom.OffMeshCons {
		params.OffMeshConVerts = append(params.OffMeshConVerts, con.Start[:]...)
		params.OffMeshConVerts = append(params.OffMeshConVerts, con.End[:]...)
		params.OffMeshConRad = append(params.OffMeshConRad, con.Rad)
		params.OffMeshConAreas = append(params.OffMeshConAreas, con.Area)
		params.OffMeshConFlags = append(params.OffMeshConFlags, con.Flags)
		params.OffMeshConUserID = append(params.OffMeshConUserID, con.UserID)
		var dir uint8
		if con.Bidir {
			dir = detour.DT_OFFMESH_CON_BIDIR
		}
		params.OffMeshConDir = append(params.OffMeshConDir, dir)
	}
	params.OffMeshConCount = len(job.geom.OffMeshCons)
	return params
}
