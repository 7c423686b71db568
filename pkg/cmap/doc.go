// Package cmap provides a sharded, string-keyed concurrent map.
//
// Each shard has its own RWMutex, so readers of different keys rarely
// contend. Iteration locks one shard at a time and therefore does not see a
// consistent snapshot of the whole map.
//
//	m := cmap.New[[]byte]()
//	m.Set("book:1", raw)
//	v, ok := m.Get("book:1")
package cmap
