// In-process load benchmark for strata.
//
// It answers the questions that matter before a release:
// - What is the p50/p95/p99 request latency under concurrent load?
// - How much allocation + GC work does that load generate?
//
// Server and clients share one process, so the GC numbers below cover the
// whole request path: routing, dispatch, middleware, and response encoding.
// For benchmarking a remote server, use cmd/strata-bench instead.
//
// Run:
//
//	go run ./benchmark/e2e_load -clients=200 -duration=30s -rps=50 -routes=200
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"net"
	"net/http"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strata-dev/strata"
	"github.com/strata-dev/strata/pkg/middleware"
)

func main() {
	var (
		clients      = flag.Int("clients", 100, "number of concurrent clients")
		duration     = flag.Duration("duration", 15*time.Second, "how long to run the load test")
		rps          = flag.Float64("rps", 50, "target requests/sec per client (0 = unthrottled)")
		routes       = flag.Int("routes", 100, "extra registered routes (scales the routing tree)")
		payloadBytes = flag.Int("payload-bytes", 256, "response body size in bytes")
		instrumented = flag.Bool("instrumented", true, "run the request id + recover + metrics chain")
	)
	flag.Parse()

	if *clients <= 0 {
		log.Fatal("-clients must be > 0")
	}
	if *duration <= 0 {
		log.Fatal("-duration must be > 0")
	}
	if *rps < 0 {
		log.Fatal("-rps must be >= 0")
	}
	if *routes < 0 {
		log.Fatal("-routes must be >= 0")
	}
	if *payloadBytes <= 0 {
		log.Fatal("-payload-bytes must be > 0")
	}

	// Reduce incidental variability a bit.
	debug.SetGCPercent(100)

	app := buildApp(*routes, *payloadBytes, *instrumented)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	httpServer := &http.Server{Handler: app}
	go func() {
		_ = httpServer.Serve(ln)
	}()
	defer func() {
		_ = httpServer.Shutdown(context.Background())
	}()

	baseURL := "http://" + ln.Addr().String()
	paths := []string{
		"/bench/static",
		"/bench/items/42",
		"/bench/users/7/files/reports/q3.pdf",
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        *clients * 2,
			MaxIdleConnsPerHost: *clients * 2,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	samplesCh := make(chan time.Duration, 1024)
	var samples []time.Duration
	var samplesMu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samplesMu.Lock()
			samples = append(samples, rtt)
			samplesMu.Unlock()
		}
	}()

	var (
		totalRequests atomic.Uint64
		totalErrors   atomic.Uint64
	)

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	var wg sync.WaitGroup
	wg.Add(*clients)
	for i := 0; i < *clients; i++ {
		clientID := i
		go func() {
			defer wg.Done()
			if err := runClient(ctx, httpClient, baseURL, paths, clientID, *rps, samplesCh, &totalRequests); err != nil {
				totalErrors.Add(1)
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	total := totalRequests.Load()
	errs := totalErrors.Load()
	runSeconds := math.Max(0.001, (*duration).Seconds())

	fmt.Println("=== Strata In-Process Load Benchmark ===")
	fmt.Printf("Clients: %d\n", *clients)
	fmt.Printf("Duration: %s\n", (*duration).String())
	if *rps > 0 {
		fmt.Printf("Target per-client rate: %.2f req/s\n", *rps)
	} else {
		fmt.Println("Target per-client rate: unthrottled")
	}
	fmt.Printf("Extra routes: %d\n", *routes)
	fmt.Printf("Payload bytes: %d\n", *payloadBytes)
	fmt.Printf("Instrumented: %v\n", *instrumented)
	fmt.Printf("Total requests: %d\n", total)
	fmt.Printf("Errors: %d\n", errs)
	fmt.Printf("Throughput: %.1f req/s\n", float64(total)/runSeconds)
	fmt.Println()

	if len(latencies) == 0 {
		fmt.Println("No latency samples recorded.")
	} else {
		fmt.Println("Latency (request sent, response read, same process):")
		fmt.Printf("  min: %s\n", latencies[0])
		fmt.Printf("  p50: %s\n", percentile(latencies, 0.50))
		fmt.Printf("  p95: %s\n", percentile(latencies, 0.95))
		fmt.Printf("  p99: %s\n", percentile(latencies, 0.99))
		fmt.Printf("  max: %s\n", latencies[len(latencies)-1])
	}
	fmt.Println()

	fmt.Println("Go runtime / GC (process-wide, server + clients):")
	fmt.Printf("  alloc:     %.2f MB\n", float64(after.TotalAlloc-before.TotalAlloc)/(1024*1024))
	fmt.Printf("  heap_live: %.2f MB\n", float64(after.HeapAlloc)/(1024*1024))
	fmt.Printf("  num_gc:    %d\n", after.NumGC-before.NumGC)
	fmt.Printf("  gc_pause:  %s (total)\n", time.Duration(after.PauseTotalNs-before.PauseTotalNs))
	fmt.Printf("  gc_pause:  %s (avg)\n", avgPause(after, before))
	fmt.Printf("  gc_cpu:    %.2f%%\n", 100*cpuFraction(afterMetrics, beforeMetrics))
	fmt.Printf("  allocs:    %.2f M objects\n", float64(afterMetrics.heapAllocsObjects-beforeMetrics.heapAllocsObjects)/1_000_000)
}

// buildApp assembles the server under test: three bench routes, optional
// instrumentation, and enough filler routes to make tree walks realistic.
func buildApp(fillerRoutes, payloadBytes int, instrumented bool) *strata.App {
	app := strata.New(strata.Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if instrumented {
		app.Use(
			middleware.RequestID(),
			middleware.Recover(),
			middleware.Prometheus(),
		)
	}

	payload := bytes.Repeat([]byte("s"), payloadBytes)

	app.Get("/bench/static", func(ctx *strata.Context) error {
		ctx.SetHeader("Content-Type", "text/plain")
		ctx.Status(200)
		_, err := ctx.Write(payload)
		return err
	})
	app.Get("/bench/items/:id", func(ctx *strata.Context) error {
		if ctx.Param("id") == "" {
			return strata.ErrBadRequest("missing id")
		}
		ctx.SetHeader("Content-Type", "text/plain")
		ctx.Status(200)
		_, err := ctx.Write(payload)
		return err
	})
	app.Get("/bench/users/:id/files/*path", func(ctx *strata.Context) error {
		ctx.SetHeader("Content-Type", "text/plain")
		ctx.Status(200)
		_, err := ctx.Write(payload)
		return err
	})

	for i := 0; i < fillerRoutes; i++ {
		app.Get(fmt.Sprintf("/filler/%d/:id", i), func(ctx *strata.Context) error {
			return ctx.NoContent(204)
		})
	}

	return app
}

func runClient(
	ctx context.Context,
	client *http.Client,
	baseURL string,
	paths []string,
	clientID int,
	rps float64,
	samples chan<- time.Duration,
	totalRequests *atomic.Uint64,
) error {
	var period time.Duration
	if rps > 0 {
		period = time.Duration(float64(time.Second) / rps)
	}
	seq := uint64(clientID)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		seq++
		path := paths[seq%uint64(len(paths))]

		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("request: %w", err)
		}
		_, err = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d on %s", resp.StatusCode, path)
		}

		totalRequests.Add(1)
		samples <- time.Since(start)

		if period > 0 {
			if sleep := period - time.Since(start); sleep > 0 {
				timer := time.NewTimer(sleep)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-timer.C:
				}
			}
		}
	}
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}
