package recast

func calculateDistanceField(chf *RcCompactHeightfield, src []int) (maxDist int) {
	w := chf.Width
	h := chf.Height
	for i := range src {
		src[i] = 0xffff
	}

	// Mark boundary cells.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				area := chf.Areas[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if RcGetCon(s, dir) != RC_NOT_CONNECTED {
						_, _, ai := neighbourIndex(chf, s, x, y, dir)
						if area == chf.Areas[ai] {
							nc++
						}
					}
				}
				if nc != 4 {
					src[i] = 0
				}
			}
		}
	}

	relax := func(to, from, cost int) {
		if src[from]+cost < src[to] {
			src[to] = src[from] + cost
		}
	}

	// Pass 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				if RcGetCon(s, 0) != RC_NOT_CONNECTED {
					// (-1,0)
					ax, ay, ai := neighbourIndex(chf, s, x, y, 0)
					relax(i, ai, 2)
					// (-1,-1)
					as := &chf.Spans[ai]
					if RcGetCon(as, 3) != RC_NOT_CONNECTED {
						_, _, bi := neighbourIndex(chf, as, ax, ay, 3)
						relax(i, bi, 3)
					}
				}
				if RcGetCon(s, 3) != RC_NOT_CONNECTED {
					// (0,-1)
					ax, ay, ai := neighbourIndex(chf, s, x, y, 3)
					relax(i, ai, 2)
					// (1,-1)
					as := &chf.Spans[ai]
					if RcGetCon(as, 2) != RC_NOT_CONNECTED {
						_, _, bi := neighbourIndex(chf, as, ax, ay, 2)
						relax(i, bi, 3)
					}
				}
			}
		}
	}

	// Pass 2
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				if RcGetCon(s, 2) != RC_NOT_CONNECTED {
					// (1,0)
					ax, ay, ai := neighbourIndex(chf, s, x, y, 2)
					relax(i, ai, 2)
					// (1,1)
					as := &chf.Spans[ai]
					if RcGetCon(as, 1) != RC_NOT_CONNECTED {
						_, _, bi := neighbourIndex(chf, as, ax, ay, 1)
						relax(i, bi, 3)
					}
				}
				if RcGetCon(s, 1) != RC_NOT_CONNECTED {
					// (0,1)
					ax, ay, ai := neighbourIndex(chf, s, x, y, 1)
					relax(i, ai, 2)
					// (-1,1)
					as := &chf.Spans[ai]
					if RcGetCon(as, 0) != RC_NOT_CONNECTED {
						_, _, bi := neighbourIndex(chf, as, ax, ay, 0)
						relax(i, bi, 3)
					}
				}
			}
		}
	}

	for _, d := range src {
		maxDist = max(maxDist, d)
	}
	return maxDist
}

func boxBlur(chf *RcCompactHeightfield, thr int, src, dst []int) []int {
	w := chf.Width
	h := chf.Height
	thr *= 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				cd := src[i]
				if cd <= thr {
					dst[i] = cd
					continue
				}
				d := cd
				for dir := 0; dir < 4; dir++ {
					if RcGetCon(s, dir) != RC_NOT_CONNECTED {
						ax, ay, ai := neighbourIndex(chf, s, x, y, dir)
						d += src[ai]
						as := &chf.Spans[ai]
						dir2 := (dir + 1) & 0x3
						if RcGetCon(as, dir2) != RC_NOT_CONNECTED {
							_, _, bi := neighbourIndex(chf, as, ax, ay, dir2)
							d += src[bi]
						} else {
							d += cd
						}
					} else {
						d += cd * 2
					}
				}
				dst[i] = (d + 5) / 9
			}
		}
	}
	return dst
}

// RcBuildDistanceField builds the distance field for the specified compact heightfield.
func RcBuildDistanceField(ctx *RcContext, chf *RcCompactHeightfield) bool {
	ctx.StartTimer(RC_TIMER_BUILD_DISTANCEFIELD)
	defer ctx.StopTimer(RC_TIMER_BUILD_DISTANCEFIELD)

	src := make([]int, chf.SpanCount)
	dst := make([]int, chf.SpanCount)

	ctx.StartTimer(RC_TIMER_BUILD_DISTANCEFIELD_DIST)
	chf.MaxDistance = calculateDistanceField(chf, src)
	ctx.StopTimer(RC_TIMER_BUILD_DISTANCEFIELD_DIST)

	ctx.StartTimer(RC_TIMER_BUILD_DISTANCEFIELD_BLUR)
	chf.Dist = boxBlur(chf, 1, src, dst)
	ctx.StopTimer(RC_TIMER_BUILD_DISTANCEFIELD_BLUR)
	return true
}

func paintRectRegion(minx, maxx, miny, maxy, regID int, chf *RcCompactHeightfield, srcReg []int) {
	w := chf.Width
	for y := miny; y < maxy; y++ {
		for x := minx; x < maxx; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if chf.Areas[i] != RC_NULL_AREA {
					srcReg[i] = regID
				}
			}
		}
	}
}

// paintBorderRegions marks the four tile borders with their own border regions and
// returns the next free region id.
func paintBorderRegions(chf *RcCompactHeightfield, borderSize int, srcReg []int, regionID int) int {
	if borderSize <= 0 {
		return regionID
	}
	w := chf.Width
	h := chf.Height
	// Make sure border will not overflow.
	bw := min(w, borderSize)
	bh := min(h, borderSize)
	paintRectRegion(0, bw, 0, h, regionID|RC_BORDER_REG, chf, srcReg)
	regionID++
	paintRectRegion(w-bw, w, 0, h, regionID|RC_BORDER_REG, chf, srcReg)
	regionID++
	paintRectRegion(0, w, 0, bh, regionID|RC_BORDER_REG, chf, srcReg)
	regionID++
	paintRectRegion(0, w, h-bh, h, regionID|RC_BORDER_REG, chf, srcReg)
	regionID++
	return regionID
}

type levelStackEntry struct {
	x     int
	y     int
	index int
}

func floodRegion(x, y, i, level, r int, chf *RcCompactHeightfield, srcReg, srcDist []int, stack *[]levelStackEntry) bool {
	area := chf.Areas[i]

	// Flood fill mark region.
	*stack = append((*stack)[:0], levelStackEntry{x, y, i})
	srcReg[i] = r
	srcDist[i] = 0

	lev := 0
	if level >= 2 {
		lev = level - 2
	}
	count := 0

	for len(*stack) > 0 {
		back := (*stack)[len(*stack)-1]
		*stack = (*stack)[:len(*stack)-1]
		cx, cy, ci := back.x, back.y, back.index
		cs := &chf.Spans[ci]

		// Check if any of the neighbours already have a valid region set.
		ar := 0
		for dir := 0; dir < 4; dir++ {
			// 8 connected
			if RcGetCon(cs, dir) == RC_NOT_CONNECTED {
				continue
			}
			ax, ay, ai := neighbourIndex(chf, cs, cx, cy, dir)
			if chf.Areas[ai] != area {
				continue
			}
			nr := srcReg[ai]
			if nr&RC_BORDER_REG != 0 { // Do not take borders into account.
				continue
			}
			if nr != 0 && nr != r {
				ar = nr
				break
			}

			as := &chf.Spans[ai]
			dir2 := (dir + 1) & 0x3
			if RcGetCon(as, dir2) != RC_NOT_CONNECTED {
				_, _, ai2 := neighbourIndex(chf, as, ax, ay, dir2)
				if chf.Areas[ai2] != area {
					continue
				}
				nr2 := srcReg[ai2]
				if nr2 != 0 && nr2 != r {
					ar = nr2
					break
				}
			}
		}
		if ar != 0 {
			srcReg[ci] = 0
			continue
		}
		count++

		// Expand neighbours.
		for dir := 0; dir < 4; dir++ {
			if RcGetCon(cs, dir) == RC_NOT_CONNECTED {
				continue
			}
			ax, ay, ai := neighbourIndex(chf, cs, cx, cy, dir)
			if chf.Areas[ai] != area {
				continue
			}
			if chf.Dist[ai] >= lev && srcReg[ai] == 0 {
				srcReg[ai] = r
				srcDist[ai] = 0
				*stack = append(*stack, levelStackEntry{ax, ay, ai})
			}
		}
	}
	return count > 0
}

type dirtyEntry struct {
	index     int
	region    int
	distance2 int
}

func expandRegions(maxIter, level int, chf *RcCompactHeightfield, srcReg, srcDist []int, stack *[]levelStackEntry, fillStack bool) {
	w := chf.Width
	h := chf.Height

	if fillStack {
		// Find cells revealed by the raised level.
		*stack = (*stack)[:0]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := chf.Cells[x+y*w]
				for i := c.Index; i < c.Index+c.Count; i++ {
					if chf.Dist[i] >= level && srcReg[i] == 0 && chf.Areas[i] != RC_NULL_AREA {
						*stack = append(*stack, levelStackEntry{x, y, i})
					}
				}
			}
		}
	} else {
		// mark all cells which already have a region
		for j := range *stack {
			i := (*stack)[j].index
			if srcReg[i] != 0 {
				(*stack)[j].index = -1
			}
		}
	}

	var dirtyEntries []dirtyEntry
	iter := 0
	for len(*stack) > 0 {
		failed := 0
		dirtyEntries = dirtyEntries[:0]

		for j := range *stack {
			x := (*stack)[j].x
			y := (*stack)[j].y
			i := (*stack)[j].index
			if i < 0 {
				failed++
				continue
			}

			r := srcReg[i]
			d2 := 0xffff
			area := chf.Areas[i]
			s := &chf.Spans[i]
			for dir := 0; dir < 4; dir++ {
				if RcGetCon(s, dir) == RC_NOT_CONNECTED {
					continue
				}
				_, _, ai := neighbourIndex(chf, s, x, y, dir)
				if chf.Areas[ai] != area {
					continue
				}
				if srcReg[ai] > 0 && (srcReg[ai]&RC_BORDER_REG) == 0 {
					if srcDist[ai]+2 < d2 {
						r = srcReg[ai]
						d2 = srcDist[ai] + 2
					}
				}
			}
			if r != 0 {
				(*stack)[j].index = -1 // mark as used
				dirtyEntries = append(dirtyEntries, dirtyEntry{i, r, d2})
			} else {
				failed++
			}
		}

		// Copy entries that differ between src and dst to keep them in sync.
		for _, e := range dirtyEntries {
			srcReg[e.index] = e.region
			srcDist[e.index] = e.distance2
		}

		if failed == len(*stack) {
			break
		}
		if level > 0 {
			iter++
			if iter >= maxIter {
				break
			}
		}
	}
}

func sortCellsByLevel(startLevel int, chf *RcCompactHeightfield, srcReg []int, stacks [][]levelStackEntry, loglevelsPerStack int) {
	w := chf.Width
	h := chf.Height
	startLevel = startLevel >> loglevelsPerStack

	for j := range stacks {
		stacks[j] = stacks[j][:0]
	}

	// put all cells in the level range into the appropriate stacks
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if chf.Areas[i] == RC_NULL_AREA || srcReg[i] != 0 {
					continue
				}
				level := chf.Dist[i] >> loglevelsPerStack
				sID := startLevel - level
				if sID >= len(stacks) {
					continue
				}
				if sID < 0 {
					sID = 0
				}
				stacks[sID] = append(stacks[sID], levelStackEntry{x, y, i})
			}
		}
	}
}

func appendStacks(srcStack []levelStackEntry, dstStack *[]levelStackEntry, srcReg []int) {
	for _, e := range srcStack {
		if e.index < 0 || srcReg[e.index] != 0 {
			continue
		}
		*dstStack = append(*dstStack, e)
	}
}

type rcRegion struct {
	spanCount        int // Number of spans belonging to this region
	id               int // ID of the region
	areaType         uint8
	remap            bool
	visited          bool
	overlap          bool
	connectsToBorder bool
	ymin, ymax       int
	connections      []int
	floors           []int
}

func removeAdjacentNeighbours(reg *rcRegion) {
	// Remove adjacent duplicates.
	for i := 0; i < len(reg.connections) && len(reg.connections) > 1; {
		ni := (i + 1) % len(reg.connections)
		if reg.connections[i] == reg.connections[ni] {
			reg.connections = append(reg.connections[:i], reg.connections[i+1:]...)
		} else {
			i++
		}
	}
}

func replaceNeighbour(reg *rcRegion, oldID, newID int) {
	neiChanged := false
	for i := range reg.connections {
		if reg.connections[i] == oldID {
			reg.connections[i] = newID
			neiChanged = true
		}
	}
	for i := range reg.floors {
		if reg.floors[i] == oldID {
			reg.floors[i] = newID
		}
	}
	if neiChanged {
		removeAdjacentNeighbours(reg)
	}
}

func canMergeWithRegion(rega, regb *rcRegion) bool {
	if rega.areaType != regb.areaType {
		return false
	}
	n := 0
	for _, c := range rega.connections {
		if c == regb.id {
			n++
		}
	}
	if n > 1 {
		return false
	}
	for _, f := range rega.floors {
		if f == regb.id {
			return false
		}
	}
	return true
}

func addUniqueFloorRegion(reg *rcRegion, n int) {
	for _, f := range reg.floors {
		if f == n {
			return
		}
	}
	reg.floors = append(reg.floors, n)
}

func mergeRegions(rega, regb *rcRegion) bool {
	aid := rega.id
	bid := regb.id

	// Duplicate current neighbourhood.
	acon := append([]int(nil), rega.connections...)
	bcon := regb.connections

	// Find insertion point on A.
	insa := -1
	for i, c := range acon {
		if c == bid {
			insa = i
			break
		}
	}
	if insa == -1 {
		return false
	}

	// Find insertion point on B.
	insb := -1
	for i, c := range bcon {
		if c == aid {
			insb = i
			break
		}
	}
	if insb == -1 {
		return false
	}

	// Merge neighbours.
	merged := make([]int, 0, len(acon)+len(bcon))
	for i, ni := 0, len(acon); i < ni-1; i++ {
		merged = append(merged, acon[(insa+1+i)%ni])
	}
	for i, ni := 0, len(bcon); i < ni-1; i++ {
		merged = append(merged, bcon[(insb+1+i)%ni])
	}
	rega.connections = merged
	removeAdjacentNeighbours(rega)

	for _, f := range regb.floors {
		addUniqueFloorRegion(rega, f)
	}
	rega.spanCount += regb.spanCount
	regb.spanCount = 0
	regb.connections = nil
	return true
}

func isRegionConnectedToBorder(reg *rcRegion) bool {
	// Region is connected to border if one of the neighbours is null id.
	for _, c := range reg.connections {
		if c == 0 {
			return true
		}
	}
	return false
}

func isSolidEdge(chf *RcCompactHeightfield, srcReg []int, x, y, i, dir int) bool {
	s := &chf.Spans[i]
	r := 0
	if RcGetCon(s, dir) != RC_NOT_CONNECTED {
		_, _, ai := neighbourIndex(chf, s, x, y, dir)
		r = srcReg[ai]
	}
	return r != srcReg[i]
}

func walkRegionContour(x, y, i, dir int, chf *RcCompactHeightfield, srcReg []int) []int {
	startDir := dir
	starti := i

	ss := &chf.Spans[i]
	curReg := 0
	if RcGetCon(ss, dir) != RC_NOT_CONNECTED {
		_, _, ai := neighbourIndex(chf, ss, x, y, dir)
		curReg = srcReg[ai]
	}
	cont := []int{curReg}

	for iter := 1; iter < 40000; iter++ {
		s := &chf.Spans[i]
		if isSolidEdge(chf, srcReg, x, y, i, dir) {
			// Choose the edge corner
			r := 0
			if RcGetCon(s, dir) != RC_NOT_CONNECTED {
				_, _, ai := neighbourIndex(chf, s, x, y, dir)
				r = srcReg[ai]
			}
			if r != curReg {
				curReg = r
				cont = append(cont, curReg)
			}
			dir = (dir + 1) & 0x3 // Rotate CW
		} else {
			if RcGetCon(s, dir) == RC_NOT_CONNECTED {
				// Should not happen.
				return cont
			}
			x, y, i = neighbourIndex(chf, s, x, y, dir)
			dir = (dir + 3) & 0x3 // Rotate CCW
		}
		if starti == i && startDir == dir {
			break
		}
	}

	// Remove adjacent duplicates.
	if len(cont) > 1 {
		for j := 0; j < len(cont); {
			nj := (j + 1) % len(cont)
			if cont[j] == cont[nj] {
				cont = append(cont[:j], cont[j+1:]...)
			} else {
				j++
			}
		}
	}
	return cont
}

func mergeAndFilterRegions(ctx *RcContext, minRegionArea, mergeRegionSize int, maxRegionID *int,
	chf *RcCompactHeightfield, srcReg []int) (overlaps []int) {
	w := chf.Width
	h := chf.Height

	nreg := *maxRegionID + 1
	regions := make([]rcRegion, nreg)
	for i := range regions {
		regions[i].id = i
		regions[i].ymin = 0xffff
	}

	// Find edge of a region and find connections around the contour.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				r := srcReg[i]
				if r == 0 || r >= nreg {
					continue
				}
				reg := &regions[r]
				reg.spanCount++

				// Update floors.
				for j := c.Index; j < c.Index+c.Count; j++ {
					if i == j {
						continue
					}
					floorID := srcReg[j]
					if floorID == 0 || floorID >= nreg {
						continue
					}
					if floorID == r {
						reg.overlap = true
					}
					addUniqueFloorRegion(reg, floorID)
				}

				// Have found contour
				if len(reg.connections) > 0 {
					continue
				}
				reg.areaType = chf.Areas[i]

				// Check if this cell is next to a border.
				ndir := -1
				for dir := 0; dir < 4; dir++ {
					if isSolidEdge(chf, srcReg, x, y, i, dir) {
						ndir = dir
						break
					}
				}
				if ndir != -1 {
					// The cell is at border.
					// Walk around the contour to find all the neighbours.
					reg.connections = walkRegionContour(x, y, i, ndir, chf, srcReg)
				}
			}
		}
	}

	// Remove too small regions.
	var stack, trace []int
	for i := 0; i < nreg; i++ {
		reg := &regions[i]
		if reg.id == 0 || reg.id&RC_BORDER_REG != 0 {
			continue
		}
		if reg.spanCount == 0 || reg.visited {
			continue
		}

		// Count the total size of all the connected regions.
		// Also keep track of the regions connects to a tile border.
		connectsToBorder := false
		spanCount := 0
		stack = stack[:0]
		trace = trace[:0]

		reg.visited = true
		stack = append(stack, i)
		for len(stack) > 0 {
			ri := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			creg := &regions[ri]
			spanCount += creg.spanCount
			trace = append(trace, ri)

			for _, conn := range creg.connections {
				if conn&RC_BORDER_REG != 0 {
					connectsToBorder = true
					continue
				}
				neireg := &regions[conn]
				if neireg.visited {
					continue
				}
				if neireg.id == 0 || neireg.id&RC_BORDER_REG != 0 {
					continue
				}
				// Visit
				stack = append(stack, neireg.id)
				neireg.visited = true
			}
		}

		// If the accumulated regions size is too small, remove it.
		// Do not remove areas which connect to tile borders
		// as their size cannot be estimated correctly and removing them
		// can potentially remove necessary areas.
		if spanCount < minRegionArea && !connectsToBorder {
			// Kill all visited regions.
			for _, t := range trace {
				regions[t].spanCount = 0
				regions[t].id = 0
			}
		}
	}

	// Merge too small regions to neighbour regions.
	for {
		mergeCount := 0
		for i := 0; i < nreg; i++ {
			reg := &regions[i]
			if reg.id == 0 || reg.id&RC_BORDER_REG != 0 {
				continue
			}
			if reg.overlap || reg.spanCount == 0 {
				continue
			}

			// Check to see if the region should be merged.
			if reg.spanCount > mergeRegionSize && isRegionConnectedToBorder(reg) {
				continue
			}

			// Small region with more than 1 connection.
			// Or region which is not connected to a border at all.
			// Find smallest neighbour region that connects to this one.
			smallest := 0xfffffff
			mergeID := reg.id
			for _, conn := range reg.connections {
				if conn&RC_BORDER_REG != 0 {
					continue
				}
				mreg := &regions[conn]
				if mreg.id == 0 || mreg.id&RC_BORDER_REG != 0 || mreg.overlap {
					continue
				}
				if mreg.spanCount < smallest && canMergeWithRegion(reg, mreg) && canMergeWithRegion(mreg, reg) {
					smallest = mreg.spanCount
					mergeID = mreg.id
				}
			}
			// Found new id.
			if mergeID != reg.id {
				oldID := reg.id
				target := &regions[mergeID]

				// Merge neighbours.
				if mergeRegions(target, reg) {
					// Fixup regions pointing to current region.
					for j := 0; j < nreg; j++ {
						if regions[j].id == 0 || regions[j].id&RC_BORDER_REG != 0 {
							continue
						}
						// If another region was already merged into current region
						// change the nid of the previous region too.
						if regions[j].id == oldID {
							regions[j].id = mergeID
						}
						// Replace the current region with the new one if the
						// current regions is neighbour.
						replaceNeighbour(&regions[j], oldID, mergeID)
					}
					mergeCount++
				}
			}
		}
		if mergeCount == 0 {
			break
		}
	}

	// Compress region Ids.
	for i := range regions {
		regions[i].remap = false
		if regions[i].id == 0 { // Skip nil regions.
			continue
		}
		if regions[i].id&RC_BORDER_REG != 0 { // Skip external regions.
			continue
		}
		regions[i].remap = true
	}

	regIDGen := 0
	for i := 0; i < nreg; i++ {
		if !regions[i].remap {
			continue
		}
		oldID := regions[i].id
		regIDGen++
		newID := regIDGen
		for j := i; j < nreg; j++ {
			if regions[j].id == oldID {
				regions[j].id = newID
				regions[j].remap = false
			}
		}
	}
	*maxRegionID = regIDGen

	// Remap regions.
	for i := 0; i < chf.SpanCount; i++ {
		if srcReg[i]&RC_BORDER_REG == 0 {
			srcReg[i] = regions[srcReg[i]].id
		}
	}

	// Return regions that we found to be overlapping.
	for i := range regions {
		if regions[i].overlap {
			overlaps = append(overlaps, regions[i].id)
		}
	}
	return overlaps
}

// RcBuildRegions builds region data for the heightfield using watershed partitioning.
// The distance field must already be built.
func RcBuildRegions(ctx *RcContext, chf *RcCompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) bool {
	ctx.StartTimer(RC_TIMER_BUILD_REGIONS)
	defer ctx.StopTimer(RC_TIMER_BUILD_REGIONS)

	const (
		logNbStacks = 3
		nbStacks    = 1 << logNbStacks
	)
	if len(chf.Dist) != chf.SpanCount {
		ctx.Log(RC_LOG_ERROR, "rcBuildRegions: distance field is missing.")
		return false
	}

	lvlStacks := make([][]levelStackEntry, nbStacks)
	for i := range lvlStacks {
		lvlStacks[i] = make([]levelStackEntry, 0, 256)
	}
	stack := make([]levelStackEntry, 0, 256)

	srcReg := make([]int, chf.SpanCount)
	srcDist := make([]int, chf.SpanCount)

	ctx.StartTimer(RC_TIMER_BUILD_REGIONS_WATERSHED)

	regionID := paintBorderRegions(chf, borderSize, srcReg, 1)
	chf.BorderSize = borderSize

	level := (chf.MaxDistance + 1) &^ 1
	// If expandIters is too low, some regions will not be visited and will end up as
	// separate regions that are later removed. If too high, performance suffers.
	expandIters := 8

	sID := -1
	for level > 0 {
		if level >= 2 {
			level -= 2
		} else {
			level = 0
		}
		sID = (sID + 1) & (nbStacks - 1)

		ctx.StartTimer(RC_TIMER_BUILD_REGIONS_EXPAND)
		if sID == 0 {
			sortCellsByLevel(level, chf, srcReg, lvlStacks, 1)
		} else {
			// copy left overs from last level
			appendStacks(lvlStacks[sID-1], &lvlStacks[sID], srcReg)
		}

		// Expand current regions until no empty connected cells found.
		expandRegions(expandIters, level, chf, srcReg, srcDist, &lvlStacks[sID], false)
		ctx.StopTimer(RC_TIMER_BUILD_REGIONS_EXPAND)

		ctx.StartTimer(RC_TIMER_BUILD_REGIONS_FLOOD)
		// Mark new regions with IDs.
		for _, current := range lvlStacks[sID] {
			if current.index >= 0 && srcReg[current.index] == 0 {
				if floodRegion(current.x, current.y, current.index, level, regionID, chf, srcReg, srcDist, &stack) {
					if regionID == 0xFFFF {
						ctx.StopTimer(RC_TIMER_BUILD_REGIONS_FLOOD)
						ctx.StopTimer(RC_TIMER_BUILD_REGIONS_WATERSHED)
						ctx.Log(RC_LOG_ERROR, "rcBuildRegions: Region ID overflow")
						return false
					}
					regionID++
				}
			}
		}
		ctx.StopTimer(RC_TIMER_BUILD_REGIONS_FLOOD)
	}

	// Expand current regions until no empty connected cells found.
	expandRegions(expandIters*8, 0, chf, srcReg, srcDist, &stack, true)
	ctx.StopTimer(RC_TIMER_BUILD_REGIONS_WATERSHED)

	ctx.StartTimer(RC_TIMER_BUILD_REGIONS_FILTER)
	// Merge regions and filter out small regions.
	chf.MaxRegions = regionID
	overlaps := mergeAndFilterRegions(ctx, minRegionArea, mergeRegionArea, &chf.MaxRegions, chf, srcReg)
	// If overlapping regions were found, they could not be merged.
	if len(overlaps) > 0 {
		ctx.Log(RC_LOG_ERROR, "rcBuildRegions: %d overlapping regions.", len(overlaps))
	}
	ctx.StopTimer(RC_TIMER_BUILD_REGIONS_FILTER)

	// Write the result out.
	for i := 0; i < chf.SpanCount; i++ {
		chf.Spans[i].Reg = srcReg[i]
	}
	return true
}

const rcNullNei = 0xffff

type rcSweepSpan struct {
	rid int // row id
	id  int // region id
	ns  int // number samples
	nei int // neighbour id
}

// RcBuildRegionsMonotone builds region data for the heightfield using simple monotone
// partitioning.
func RcBuildRegionsMonotone(ctx *RcContext, chf *RcCompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) bool {
	ctx.StartTimer(RC_TIMER_BUILD_REGIONS)
	defer ctx.StopTimer(RC_TIMER_BUILD_REGIONS)

	w := chf.Width
	h := chf.Height
	srcReg := make([]int, chf.SpanCount)
	sweeps := make([]rcSweepSpan, max(w, h)+1)

	// Mark border regions.
	id := paintBorderRegions(chf, borderSize, srcReg, 1)
	chf.BorderSize = borderSize

	var prev []int
	// Sweep one line at a time.
	for y := borderSize; y < h-borderSize; y++ {
		// Collect spans from this row.
		if len(prev) < id+1 {
			prev = make([]int, id+1)
		}
		clear(prev[:id])
		rid := 1

		for x := borderSize; x < w-borderSize; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				if chf.Areas[i] == RC_NULL_AREA {
					continue
				}

				// -x
				previd := 0
				if RcGetCon(s, 0) != RC_NOT_CONNECTED {
					_, _, ai := neighbourIndex(chf, s, x, y, 0)
					if srcReg[ai]&RC_BORDER_REG == 0 && chf.Areas[i] == chf.Areas[ai] {
						previd = srcReg[ai]
					}
				}
				if previd == 0 {
					previd = rid
					rid++
					if previd >= len(sweeps) {
						sweeps = append(sweeps, make([]rcSweepSpan, previd+1-len(sweeps))...)
					}
					sweeps[previd].rid = previd
					sweeps[previd].ns = 0
					sweeps[previd].nei = 0
				}

				// -y
				if RcGetCon(s, 3) != RC_NOT_CONNECTED {
					_, _, ai := neighbourIndex(chf, s, x, y, 3)
					if srcReg[ai] != 0 && srcReg[ai]&RC_BORDER_REG == 0 && chf.Areas[i] == chf.Areas[ai] {
						nr := srcReg[ai]
						if sweeps[previd].nei == 0 || sweeps[previd].nei == nr {
							sweeps[previd].nei = nr
							sweeps[previd].ns++
							prev[nr]++
						} else {
							sweeps[previd].nei = rcNullNei
						}
					}
				}
				srcReg[i] = previd
			}
		}

		// Create unique ID.
		for i := 1; i < rid; i++ {
			if sweeps[i].nei != rcNullNei && sweeps[i].nei != 0 && prev[sweeps[i].nei] == sweeps[i].ns {
				sweeps[i].id = sweeps[i].nei
			} else {
				if id == 0xFFFF {
					ctx.Log(RC_LOG_ERROR, "rcBuildRegionsMonotone: Region ID overflow")
					return false
				}
				sweeps[i].id = id
				id++
			}
		}

		// Remap IDs
		for x := borderSize; x < w-borderSize; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if srcReg[i] > 0 && srcReg[i] < rid {
					srcReg[i] = sweeps[srcReg[i]].id
				}
			}
		}
	}

	ctx.StartTimer(RC_TIMER_BUILD_REGIONS_FILTER)
	// Merge regions and filter out small regions.
	chf.MaxRegions = id
	mergeAndFilterRegions(ctx, minRegionArea, mergeRegionArea, &chf.MaxRegions, chf, srcReg)
	// Monotone partitioning does not generate overlapping regions.
	ctx.StopTimer(RC_TIMER_BUILD_REGIONS_FILTER)

	// Store the result out.
	for i := 0; i < chf.SpanCount; i++ {
		chf.Spans[i].Reg = srcReg[i]
	}
	return true
}
