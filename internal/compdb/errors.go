package compdb

import "errors"

// These errors are logged where they happen and never returned from Resolver:
// a failing step yields an empty result or leaves a cache entry untouched.
var (
	ErrProcessLaunch = errors.New("can't launch process")
	ErrProcessExit   = errors.New("process exited with non-zero code")
	ErrNoFlags       = errors.New("no compile flags found in build output")
	ErrArtifactIO    = errors.New("precompiled header store i/o failed")
	ErrSemanticParse = errors.New("can't save translation unit")
)
