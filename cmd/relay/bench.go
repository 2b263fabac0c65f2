package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

var benchFlags struct {
	target      string
	requests    int
	concurrency int
	provider    string
	model       string
	prompt      string
	timeout     time.Duration
	output      string
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load test a running gateway",
	Long: `Send streamed completion requests to a running gateway and report
time to first chunk and total latency.

Point it at a stub provider (type echo) to measure the gateway itself
without upstream cost.

Examples:
  # 200 requests, 10 at a time, against the default provider
  relay bench --target http://127.0.0.1:8080 --requests 200 --concurrency 10

  # Exercise a specific provider
  relay bench --provider test-echo --prompt "hello"`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVar(&benchFlags.target, "target", "http://127.0.0.1:8080", "gateway base URL")
	benchCmd.Flags().IntVarP(&benchFlags.requests, "requests", "n", 100, "total requests")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 4, "requests in flight at once")
	benchCmd.Flags().StringVar(&benchFlags.provider, "provider", "", "provider name (gateway default when empty)")
	benchCmd.Flags().StringVar(&benchFlags.model, "model", "", "model name")
	benchCmd.Flags().StringVar(&benchFlags.prompt, "prompt", "Say hello.", "user message sent with every request")
	benchCmd.Flags().DurationVar(&benchFlags.timeout, "timeout", 60*time.Second, "per-request timeout")
	benchCmd.Flags().StringVarP(&benchFlags.output, "output", "o", "text", "output format: text, json")
}

type benchOptions struct {
	Target      string
	Requests    int
	Concurrency int
	Timeout     time.Duration
	Request     types.CompletionRequest
}

// benchResult is the outcome of one request.
type benchResult struct {
	Status     int
	Chunks     int
	FirstChunk time.Duration
	Latency    time.Duration
	Err        error
}

// benchSummary aggregates a load test.
type benchSummary struct {
	Requests   int            `json:"requests"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Duration   time.Duration  `json:"duration_ns"`
	Throughput float64        `json:"throughput_rps"`
	Chunks     int            `json:"chunks"`
	Statuses   map[int]int    `json:"statuses"`
	FirstChunk latencySummary `json:"first_chunk"`
	Latency    latencySummary `json:"latency"`
	Errors     []string       `json:"errors,omitempty"`
}

type latencySummary struct {
	Min    time.Duration `json:"min_ns"`
	Mean   time.Duration `json:"mean_ns"`
	Median time.Duration `json:"median_ns"`
	P95    time.Duration `json:"p95_ns"`
	P99    time.Duration `json:"p99_ns"`
	Max    time.Duration `json:"max_ns"`
}

// maxReportedErrors caps distinct error strings kept in the summary.
const maxReportedErrors = 5

func runBench(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(benchFlags.output)
	if err != nil {
		return err
	}
	if benchFlags.requests <= 0 || benchFlags.concurrency <= 0 {
		return fmt.Errorf("--requests and --concurrency must be positive")
	}

	opts := benchOptions{
		Target:      benchFlags.target,
		Requests:    benchFlags.requests,
		Concurrency: benchFlags.concurrency,
		Timeout:     benchFlags.timeout,
		Request:     newBenchRequest(benchFlags.provider, benchFlags.model, benchFlags.prompt),
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		fmt.Fprintln(out, "Relay Benchmark")
		fmt.Fprintln(out, "===============")
		fmt.Fprintf(out, "Target:      %s\n", opts.Target)
		fmt.Fprintf(out, "Requests:    %d\n", opts.Requests)
		fmt.Fprintf(out, "Concurrency: %d\n", opts.Concurrency)
		fmt.Fprintln(out)
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	progress := cli.NewProgressReporter(cmd.ErrOrStderr())
	summary, err := runLoadTest(ctx, http.DefaultClient, opts, progress)
	if err != nil {
		progress.Error(err)
		return cli.NewCommandError("bench", err)
	}

	if format == cli.FormatText {
		displayResults(out, summary)
		return nil
	}
	return cli.NewFormatter(format).FormatTo(out, summary)
}

// newBenchRequest is the completion every bench request sends: prompt as a
// single user message.
func newBenchRequest(provider, model, prompt string) types.CompletionRequest {
	return types.CompletionRequest{
		Provider: provider,
		Model:    model,
		Messages: []types.Message{{Role: string(providers.RoleUser), Content: prompt}},
	}
}

// runLoadTest sends opts.Requests streamed completions with at most
// opts.Concurrency in flight. Request failures are counted, not returned.
func runLoadTest(ctx context.Context, client *http.Client, opts benchOptions, progress cli.ProgressReporter) (*benchSummary, error) {
	body, err := json.Marshal(opts.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	url := strings.TrimRight(opts.Target, "/") + "/completions"

	results := make([]benchResult, opts.Requests)
	progress.Start(int64(opts.Requests))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i := range results {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = sendOne(gctx, client, url, body, opts.Timeout)
			progress.Increment(results[i].Err == nil)
			return nil
		})
	}
	_ = g.Wait()
	progress.Finish()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return summarize(results, time.Since(start)), nil
}

func sendOne(ctx context.Context, client *http.Client, url string, body []byte, timeout time.Duration) benchResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return benchResult{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return benchResult{Err: err, Latency: time.Since(start)}
	}
	defer resp.Body.Close()

	res := benchResult{Status: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		res.Latency = time.Since(start)
		res.Err = fmt.Errorf("status %d", resp.StatusCode)
		return res
	}

	reader := bufio.NewReader(resp.Body)
	for {
		_, err := reader.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if err != io.EOF {
				res.Err = err
			}
			break
		}
		if res.Chunks == 0 {
			res.FirstChunk = time.Since(start)
		}
		res.Chunks++
	}
	res.Latency = time.Since(start)
	return res
}

func summarize(results []benchResult, elapsed time.Duration) *benchSummary {
	s := &benchSummary{
		Requests: len(results),
		Duration: elapsed,
		Statuses: make(map[int]int),
	}

	var latencies, firstChunks []time.Duration
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Status != 0 {
			s.Statuses[r.Status]++
		}
		s.Chunks += r.Chunks
		if r.Err != nil {
			s.Failed++
			if msg := r.Err.Error(); !seen[msg] && len(s.Errors) < maxReportedErrors {
				seen[msg] = true
				s.Errors = append(s.Errors, msg)
			}
			continue
		}
		s.Succeeded++
		latencies = append(latencies, r.Latency)
		if r.Chunks > 0 {
			firstChunks = append(firstChunks, r.FirstChunk)
		}
	}

	if elapsed > 0 {
		s.Throughput = float64(s.Succeeded) / elapsed.Seconds()
	}
	s.Latency = calculatePercentiles(latencies)
	s.FirstChunk = calculatePercentiles(firstChunks)
	return s
}

func calculatePercentiles(latencies []time.Duration) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}

	return latencySummary{
		Min:    sorted[0],
		Mean:   sum / time.Duration(len(sorted)),
		Median: sorted[len(sorted)/2],
		P95:    sorted[int(float64(len(sorted)-1)*0.95)],
		P99:    sorted[int(float64(len(sorted)-1)*0.99)],
		Max:    sorted[len(sorted)-1],
	}
}

func displayResults(w io.Writer, s *benchSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Results:")
	fmt.Fprintln(w, "--------")
	fmt.Fprintf(w, "Requests:        %d total, %d successful, %d failed\n", s.Requests, s.Succeeded, s.Failed)
	fmt.Fprintf(w, "Duration:        %.1fs\n", s.Duration.Seconds())
	fmt.Fprintf(w, "Throughput:      %.2f req/s\n", s.Throughput)
	fmt.Fprintf(w, "Chunks:          %d\n", s.Chunks)

	printLatency(w, "First chunk", s.FirstChunk)
	printLatency(w, "Latency", s.Latency)

	if len(s.Statuses) > 0 {
		codes := make([]int, 0, len(s.Statuses))
		for code := range s.Statuses {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Status Codes:")
		for _, code := range codes {
			n := s.Statuses[code]
			fmt.Fprintf(w, "  %d:     %d (%.0f%%)\n", code, n, float64(n)/float64(s.Requests)*100)
		}
	}

	if len(s.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

func printLatency(w io.Writer, title string, l latencySummary) {
	if l.Max == 0 {
		return
	}
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  Min:     %.1fms\n", ms(l.Min))
	fmt.Fprintf(w, "  Mean:    %.1fms\n", ms(l.Mean))
	fmt.Fprintf(w, "  Median:  %.1fms\n", ms(l.Median))
	fmt.Fprintf(w, "  p95:     %.1fms\n", ms(l.P95))
	fmt.Fprintf(w, "  p99:     %.1fms\n", ms(l.P99))
	fmt.Fprintf(w, "  Max:     %.1fms\n", ms(l.Max))
}
