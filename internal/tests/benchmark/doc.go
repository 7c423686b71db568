// Package benchmark provides performance benchmarks for the storage manager
// and the layers beneath it.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run only the manager benchmarks:
//
//	go test -bench=BenchmarkManager -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
