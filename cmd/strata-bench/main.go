// strata-bench is an HTTP load generator for strata servers. It drives a
// fixed number of concurrent clients against a target URL, optionally rate
// limited per client, and reports latency percentiles, throughput, status
// distribution, and error counts as text and JSON.
//
// Typical use, against benchmark/e2e_server:
//
//	go run ./benchmark/e2e_server &
//	go run ./cmd/strata-bench -profile standard -url http://127.0.0.1:8080
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const gib = int64(1024 * 1024 * 1024)

type profile struct {
	Name     string
	Clients  int
	Duration time.Duration
	RPS      float64
	MaxProcs int
	MemLimit int64
}

var profiles = map[string]profile{
	"fast": {
		Name:     "fast",
		Clients:  50,
		Duration: 10 * time.Second,
		RPS:      20,
	},
	"standard": {
		Name:     "standard",
		Clients:  200,
		Duration: 30 * time.Second,
		RPS:      50,
	},
	"stress": {
		Name:     "stress",
		Clients:  500,
		Duration: 60 * time.Second,
		RPS:      0, // unthrottled
		MaxProcs: 4,
		MemLimit: 2 * gib,
	},
}

type benchConfig struct {
	Profile        string
	TargetURL      string
	Paths          []string
	Clients        int
	Duration       time.Duration
	RPS            float64
	MaxProcs       int
	MemLimit       int64
	RequestTimeout time.Duration
	JSONOutput     string
}

type benchCounters struct {
	requestsSent     atomic.Uint64
	requestsComplete atomic.Uint64
	responseBytes    atomic.Uint64
}

type benchErrors struct {
	requestFailures atomic.Uint64
	readFailures    atomic.Uint64
	timeouts        atomic.Uint64
}

func (e *benchErrors) total() uint64 {
	return e.requestFailures.Load() + e.readFailures.Load() + e.timeouts.Load()
}

// statusCounts tracks responses by status class (1xx..5xx).
type statusCounts struct {
	counts [6]atomic.Uint64
}

func (s *statusCounts) add(code int) {
	class := code / 100
	if class < 1 || class > 5 {
		class = 0
	}
	s.counts[class].Add(1)
}

func (s *statusCounts) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	for i := 1; i <= 5; i++ {
		if count := s.counts[i].Load(); count > 0 {
			out[fmt.Sprintf("%dxx", i)] = count
		}
	}
	if count := s.counts[0].Load(); count > 0 {
		out["other"] = count
	}
	return out
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimit > 0 {
		debug.SetMemoryLimit(cfg.MemLimit)
	}

	client := newHTTPClient(cfg)

	if err := probe(client, cfg); err != nil {
		log.Fatalf("target %s not reachable: %v", cfg.TargetURL, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
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

	var counters benchCounters
	var errCounts benchErrors
	var statuses statusCounts

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		clientID := i
		go func() {
			defer wg.Done()
			runClient(ctx, client, clientID, cfg, &counters, &errCounts, &statuses, samplesCh)
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	elapsed := time.Since(start)

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := buildReport(cfg, elapsed, latencies, &counters, &errCounts, &statuses)

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

func sampleBuffer(clients int) int {
	if clients < 1 {
		return 1024
	}
	buf := clients * 4
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

func parseConfig() (benchConfig, error) {
	profileFlag := flag.String("profile", "standard", "profile: fast|standard|stress")
	urlFlag := flag.String("url", "http://127.0.0.1:8080", "base URL of the target server")
	pathsFlag := flag.String("paths", "/api/v1/items,/api/v1/items/42,/healthz", "comma-separated request paths, rotated per request")
	clientsFlag := flag.Int("clients", -1, "number of concurrent clients")
	durationFlag := flag.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := flag.Float64("rps", -1, "target requests/sec per client (0 = unthrottled)")
	maxProcsFlag := flag.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	memLimitFlag := flag.String("mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
	timeoutFlag := flag.String("timeout", "10s", "per-request timeout")
	jsonFlag := flag.String("json", "-", "JSON output path ('-' for stdout)")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	if name == "" {
		name = "standard"
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:    base.Name,
		TargetURL:  strings.TrimRight(strings.TrimSpace(*urlFlag), "/"),
		Clients:    base.Clients,
		Duration:   base.Duration,
		RPS:        base.RPS,
		MaxProcs:   base.MaxProcs,
		MemLimit:   base.MemLimit,
		JSONOutput: strings.TrimSpace(*jsonFlag),
	}

	for _, p := range strings.Split(*pathsFlag, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			return benchConfig{}, fmt.Errorf("path %q must start with /", p)
		}
		cfg.Paths = append(cfg.Paths, p)
	}

	if *clientsFlag != -1 {
		cfg.Clients = *clientsFlag
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -duration: %w", err)
		}
		cfg.Duration = d
	}
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if *maxProcsFlag != -1 {
		cfg.MaxProcs = *maxProcsFlag
	}
	if *memLimitFlag != "" {
		limit, err := parseBytes(*memLimitFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -mem-limit: %w", err)
		}
		cfg.MemLimit = limit
	}
	if *timeoutFlag != "" {
		d, err := time.ParseDuration(*timeoutFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	if cfg.TargetURL == "" {
		return benchConfig{}, errors.New("-url must not be empty")
	}
	if len(cfg.Paths) == 0 {
		return benchConfig{}, errors.New("-paths must name at least one path")
	}
	if cfg.Clients <= 0 {
		return benchConfig{}, errors.New("-clients must be > 0")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("-duration must be > 0")
	}
	if cfg.RPS < 0 {
		return benchConfig{}, errors.New("-rps must be >= 0")
	}
	if cfg.MaxProcs < 0 {
		return benchConfig{}, errors.New("-max-procs must be >= 0")
	}
	if cfg.MemLimit < 0 {
		return benchConfig{}, errors.New("-mem-limit must be >= 0")
	}
	if cfg.RequestTimeout <= 0 {
		return benchConfig{}, errors.New("-timeout must be > 0")
	}

	return cfg, nil
}

func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	var i int
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	numPart := strings.TrimSpace(s[:i])
	suffix := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, err
	}

	multiplier := float64(1)
	switch suffix {
	case "", "b":
		multiplier = 1
	case "kb":
		multiplier = 1e3
	case "mb":
		multiplier = 1e6
	case "gb":
		multiplier = 1e9
	case "kib":
		multiplier = 1024
	case "mib":
		multiplier = 1024 * 1024
	case "gib":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	bytes := value * multiplier
	if bytes < 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	return int64(bytes + 0.5), nil
}

func newHTTPClient(cfg benchConfig) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Clients * 2,
		MaxIdleConnsPerHost: cfg.Clients * 2,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}
}

// probe fails fast when the target server is down.
func probe(client *http.Client, cfg benchConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.TargetURL+cfg.Paths[0], nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// runClient issues requests until ctx expires, rotating through cfg.Paths.
// Transient request failures are counted and the client keeps going.
func runClient(
	ctx context.Context,
	client *http.Client,
	clientID int,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	statuses *statusCounts,
	samples chan<- time.Duration,
) {
	var period time.Duration
	if cfg.RPS > 0 {
		period = time.Duration(float64(time.Second) / cfg.RPS)
	}
	seq := uint64(clientID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		seq++
		path := cfg.Paths[seq%uint64(len(cfg.Paths))]

		start := time.Now()
		counters.requestsSent.Add(1)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.TargetURL+path, nil)
		if err != nil {
			errCounts.requestFailures.Add(1)
			return
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isTimeout(err) {
				errCounts.timeouts.Add(1)
			} else {
				errCounts.requestFailures.Add(1)
			}
			continue
		}

		n, err := io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			errCounts.readFailures.Add(1)
			continue
		}

		statuses.add(resp.StatusCode)
		counters.requestsComplete.Add(1)
		counters.responseBytes.Add(uint64(n))
		samples <- time.Since(start)

		if period > 0 {
			if sleep := period - time.Since(start); sleep > 0 {
				timer := time.NewTimer(sleep)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
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

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	Responses  responseInfo   `json:"responses"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile          string   `json:"profile"`
	URL              string   `json:"url"`
	Paths            []string `json:"paths"`
	Clients          int      `json:"clients"`
	DurationMS       int64    `json:"duration_ms"`
	RPSPerClient     float64  `json:"rps_per_client"`
	MaxProcs         int      `json:"max_procs"`
	MemLimitBytes    int64    `json:"mem_limit_bytes"`
	RequestTimeoutMS int64    `json:"request_timeout_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	RequestsTotal        uint64  `json:"requests_total"`
	RequestsPerSec       float64 `json:"requests_per_sec"`
	RequestsPerSecClient float64 `json:"requests_per_sec_per_client"`
}

type responseInfo struct {
	BytesTotal uint64            `json:"bytes_total"`
	AvgBytes   float64           `json:"avg_bytes"`
	Status     map[string]uint64 `json:"status"`
}

type errorInfo struct {
	TotalErrors     uint64 `json:"total_errors"`
	RequestFailures uint64 `json:"request_failures"`
	ReadFailures    uint64 `json:"read_failures"`
	Timeouts        uint64 `json:"timeouts"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errCounts *benchErrors,
	statuses *statusCounts,
) benchReport {
	requestsTotal := counters.requestsComplete.Load()
	responseBytes := counters.responseBytes.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	requestsPerSec := float64(requestsTotal) / elapsedSeconds
	requestsPerSecClient := requestsPerSec / float64(cfg.Clients)

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	avgBytes := 0.0
	if requestsTotal > 0 {
		avgBytes = float64(responseBytes) / float64(requestsTotal)
	}

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:          cfg.Profile,
			URL:              cfg.TargetURL,
			Paths:            cfg.Paths,
			Clients:          cfg.Clients,
			DurationMS:       cfg.Duration.Milliseconds(),
			RPSPerClient:     cfg.RPS,
			MaxProcs:         cfg.MaxProcs,
			MemLimitBytes:    cfg.MemLimit,
			RequestTimeoutMS: cfg.RequestTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			RequestsTotal:        requestsTotal,
			RequestsPerSec:       requestsPerSec,
			RequestsPerSecClient: requestsPerSecClient,
		},
		Responses: responseInfo{
			BytesTotal: responseBytes,
			AvgBytes:   avgBytes,
			Status:     statuses.snapshot(),
		},
		Errors: errorInfo{
			TotalErrors:     errCounts.total(),
			RequestFailures: errCounts.requestFailures.Load(),
			ReadFailures:    errCounts.readFailures.Load(),
			Timeouts:        errCounts.timeouts.Load(),
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Strata Load Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Target: %s\n", report.Workload.URL)
	fmt.Fprintf(w, "Paths: %s\n", strings.Join(report.Workload.Paths, ", "))
	fmt.Fprintf(w, "Clients: %d\n", report.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	if report.Workload.RPSPerClient > 0 {
		fmt.Fprintf(w, "Target per-client rate: %.2f req/s\n", report.Workload.RPSPerClient)
	} else {
		fmt.Fprintln(w, "Target per-client rate: unthrottled")
	}
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total requests: %d\n", report.Throughput.RequestsTotal)
	fmt.Fprintf(w, "Throughput: %.1f req/s (%.2f per client)\n", report.Throughput.RequestsPerSec, report.Throughput.RequestsPerSecClient)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Latency (request sent -> response read):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Responses:")
	fmt.Fprintf(w, "  bytes total: %d\n", report.Responses.BytesTotal)
	fmt.Fprintf(w, "  avg bytes:   %.1f\n", report.Responses.AvgBytes)
	classes := make([]string, 0, len(report.Responses.Status))
	for class := range report.Responses.Status {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		fmt.Fprintf(w, "  %s: %d\n", class, report.Responses.Status[class])
	}
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("STRATA_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
