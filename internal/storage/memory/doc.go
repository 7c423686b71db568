// Package memory provides the volatile storage tier.
//
// Entries live in a sharded concurrent map and disappear when the process
// exits, the way session-scoped browser storage does. Capacity is counted
// as the sum of key and value lengths.
//
// Thread Safety:
//
// Reads go straight to the sharded map. Writes and removals serialize on a
// single mutex so the capacity check and the write are atomic.
package memory
