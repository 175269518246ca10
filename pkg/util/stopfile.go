// Package util provides utility functions for ipatch
package util

import (
	"os"
)

const stopFileName = "f256.stp"

// markerExists/setMarker/clearMarker implement a presence-file indicator:
// a named empty file whose existence alone is the signal. IsStopped and
// the CPU stop indicator were the teacher's only user of this idiom;
// SessionInProgress reuses it for the patch engine's own marker.
func markerExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func setMarker(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	return f.Close()
}

func clearMarker(name string) error {
	if !markerExists(name) {
		return nil
	}
	return os.Remove(name)
}

// IsStopped returns true if the CPU is in a stopped state
// This is indicated by the presence of the f256.stp file
func IsStopped() bool {
	return markerExists(stopFileName)
}

// SetStopIndicator creates the stop indicator file
// This marks the CPU as being in a stopped state
func SetStopIndicator() error {
	return setMarker(stopFileName)
}

// ClearStopIndicator removes the stop indicator file
// This marks the CPU as no longer being in a stopped state
func ClearStopIndicator() error {
	return clearMarker(stopFileName)
}

const sessionMarkerName = "ipatch.session"

// SessionInProgress reports whether a previous release left its session
// marker behind — i.e. release failed or exited before ReleasePatch
// succeeded, so old_part's contents are of uncertain provenance (spec.md §7: "After a
// fatal failure the old partition is left in a partially-overwritten
// state — rollback is out of scope"). The boot-stage jumper contract
// (spec.md §6) is the natural consumer: a caller wrapping bootjump.Validate
// can check this first and refuse to jump into a partition mid-update.
func SessionInProgress() bool {
	return markerExists(sessionMarkerName)
}

// SetSessionMarker records that a release session has begun.
func SetSessionMarker() error {
	return setMarker(sessionMarkerName)
}

// ClearSessionMarker records that a release session completed. The release
// command clears it only after patch.ReleasePatch has returned success; a
// failed release leaves the marker in place.
func ClearSessionMarker() error {
	return clearMarker(sessionMarkerName)
}
