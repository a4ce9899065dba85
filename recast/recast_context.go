package recast

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type RcLogCategory int

const (
	RC_LOG_PROGRESS RcLogCategory = iota + 1
	RC_LOG_WARNING
	RC_LOG_ERROR
)

type RcTimerLabel int

const (
	RC_TIMER_TOTAL RcTimerLabel = iota
	RC_TIMER_TEMP
	RC_TIMER_RASTERIZE_TRIANGLES
	RC_TIMER_BUILD_COMPACTHEIGHTFIELD
	RC_TIMER_BUILD_CONTOURS
	RC_TIMER_BUILD_CONTOURS_TRACE
	RC_TIMER_BUILD_CONTOURS_SIMPLIFY
	RC_TIMER_FILTER_BORDER
	RC_TIMER_FILTER_WALKABLE
	RC_TIMER_MEDIAN_AREA
	RC_TIMER_FILTER_LOW_OBSTACLES
	RC_TIMER_BUILD_POLYMESH
	RC_TIMER_MERGE_POLYMESH
	RC_TIMER_ERODE_AREA
	RC_TIMER_MARK_BOX_AREA
	RC_TIMER_MARK_CYLINDER_AREA
	RC_TIMER_MARK_CONVEXPOLY_AREA
	RC_TIMER_BUILD_DISTANCEFIELD
	RC_TIMER_BUILD_DISTANCEFIELD_DIST
	RC_TIMER_BUILD_DISTANCEFIELD_BLUR
	RC_TIMER_BUILD_REGIONS
	RC_TIMER_BUILD_REGIONS_WATERSHED
	RC_TIMER_BUILD_REGIONS_EXPAND
	RC_TIMER_BUILD_REGIONS_FLOOD
	RC_TIMER_BUILD_REGIONS_FILTER
	RC_TIMER_BUILD_POLYMESHDETAIL
	RC_TIMER_MERGE_POLYMESHDETAIL
	RC_MAX_TIMERS
)

// RcContext carries logging and per-stage timing through the build pipeline.
// A nil *RcContext is valid and does nothing.
type RcContext struct {
	log   *zap.SugaredLogger
	start [RC_MAX_TIMERS]time.Time
	acc   [RC_MAX_TIMERS]time.Duration
}

func NewRcContext(log *zap.SugaredLogger) *RcContext {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RcContext{log: log}
}

func (ctx *RcContext) Log(category RcLogCategory, format string, args ...any) {
	if ctx == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	switch category {
	case RC_LOG_ERROR:
		ctx.log.Error(msg)
	case RC_LOG_WARNING:
		ctx.log.Warn(msg)
	default:
		ctx.log.Debug(msg)
	}
}

func (ctx *RcContext) ResetTimers() {
	if ctx == nil {
		return
	}
	ctx.acc = [RC_MAX_TIMERS]time.Duration{}
}

func (ctx *RcContext) StartTimer(label RcTimerLabel) {
	if ctx == nil {
		return
	}
	ctx.start[label] = time.Now()
}

func (ctx *RcContext) StopTimer(label RcTimerLabel) {
	if ctx == nil {
		return
	}
	ctx.acc[label] += time.Since(ctx.start[label])
}

func (ctx *RcContext) AccumulatedTime(label RcTimerLabel) time.Duration {
	if ctx == nil {
		return 0
	}
	return ctx.acc[label]
}
