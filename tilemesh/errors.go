package tilemesh

import "errors"

var (
	ErrNoGeometry   = errors.New("tilemesh: no input geometry")
	ErrNotBuilt     = errors.New("tilemesh: nav mesh not initialized")
	ErrOutOfRange   = errors.New("tilemesh: tile coordinate out of range")
	ErrTooManyVerts = errors.New("tilemesh: too many vertices per tile")
	ErrStage        = errors.New("tilemesh: build stage failed")
	ErrAddTile      = errors.New("tilemesh: could not add tile")

	ErrBadMagic   = errors.New("tilemesh: bad nav mesh set magic")
	ErrBadVersion = errors.New("tilemesh: unsupported nav mesh set version")
	ErrTruncated  = errors.New("tilemesh: truncated nav mesh set")
	ErrInitFailed = errors.New("tilemesh: nav mesh init failed")
)
