// Package store holds the per-subject chart documents: a single result slot
// written latest-write-wins by the dispatcher, and an append-only
// notification log. State lives in memory behind a RWMutex and is
// periodically snapshotted to a JSON file so completed outcomes survive a
// restart. In-flight computations are not persisted; a crash mid-computation
// loses them, which is an accepted limitation.
package store
