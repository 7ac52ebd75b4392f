// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intent

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
)

// Version orders the requests accepted for a key. It pairs a wall
// clock reading with a logical counter so that two requests accepted
// within the same clock tick still order deterministically.
type Version struct {
	Wall    int64
	Logical int64
}

// IsZero reports whether the version is unassigned.
func (v Version) IsZero() bool {
	return v == Version{}
}

// NewerThan reports whether v was assigned after other.
func (v Version) NewerThan(other Version) bool {
	if v.Wall != other.Wall {
		return v.Wall > other.Wall
	}
	return v.Logical > other.Logical
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Wall, v.Logical)
}

// VersionSource mints monotonically increasing versions. Stores stamp
// pending data with a fresh version on acceptance.
type VersionSource struct {
	clock   clock.Clock
	logical atomic.Int64
}

// NewVersionSource returns a source backed by the given clock.
func NewVersionSource(clk clock.Clock) *VersionSource {
	return &VersionSource{clock: clk}
}

// Next returns a version newer than every version previously returned
// by this source.
func (s *VersionSource) Next() Version {
	return Version{
		Wall:    s.clock.Now().UnixNano() / int64(time.Millisecond),
		Logical: s.logical.Add(1),
	}
}
