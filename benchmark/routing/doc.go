// Package routing holds comparative routing benchmarks: the strata router
// against julienschmidt/httprouter and go-chi/chi on a shared route table.
//
// Run:
//
//	go test -bench=. -benchmem ./benchmark/routing
package routing
