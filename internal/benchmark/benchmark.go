// Package benchmark load-tests a RESP2 server through the redwire client
// library: one client connection per worker, sequential or pipelined
// requests, percentile latency reporting.
package benchmark

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"redwire"
)

// Result holds the outcome of benchmarking a single command.
type Result struct {
	Command    string
	Requests   int64
	Duration   time.Duration
	Latencies  []time.Duration
	Errors     int64
	Throughput float64
	P50Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration
}

// Config holds the configuration for benchmarking.
type Config struct {
	Host        string
	Port        int
	Password    string
	Database    int
	Requests    int
	Concurrency int
	Pipeline    int
	Timeout     time.Duration
	TLS         bool
	Commands    []string
	DataSize    int
	KeySpace    int
	RandomData  bool
	Quiet       bool
	CSV         bool
	LatencyHist bool
}

// Run executes every configured command in turn, fanning out Concurrency
// workers each sharing the work, and returns one Result per command.
func Run(config *Config) []Result {
	var results []Result

	for _, command := range config.Commands {
		if !config.Quiet {
			fmt.Printf("Testing %s...\n", command)
		}

		result := Result{
			Command:   command,
			Requests:  int64(config.Requests),
			Latencies: make([]time.Duration, 0, config.Requests),
		}

		start := time.Now()

		requestsPerWorker := config.Requests / config.Concurrency
		remainingRequests := config.Requests % config.Concurrency

		var wg sync.WaitGroup
		var mu sync.Mutex
		for i := 0; i < config.Concurrency; i++ {
			workerRequests := requestsPerWorker
			if i < remainingRequests {
				workerRequests++
			}
			wg.Add(1)
			go func(workerID, reqs int) {
				defer wg.Done()
				wr := runWorker(config, command, reqs, workerID)
				atomic.AddInt64(&result.Errors, wr.Errors)
				mu.Lock()
				result.Latencies = append(result.Latencies, wr.Latencies...)
				mu.Unlock()
			}(i, workerRequests)
		}
		wg.Wait()

		result.Duration = time.Since(start)
		result.Throughput = float64(result.Requests) / result.Duration.Seconds()

		if len(result.Latencies) > 0 {
			sort.Slice(result.Latencies, func(i, j int) bool {
				return result.Latencies[i] < result.Latencies[j]
			})
			result.P50Latency = result.Latencies[len(result.Latencies)*50/100]
			result.P95Latency = result.Latencies[len(result.Latencies)*95/100]
			result.P99Latency = result.Latencies[len(result.Latencies)*99/100]
		}

		results = append(results, result)
	}

	return results
}

type workerResult struct {
	Errors    int64
	Latencies []time.Duration
}

func runWorker(config *Config, command string, requests, workerID int) workerResult {
	wr := workerResult{Latencies: make([]time.Duration, 0, requests)}

	client, err := redwire.Connect(context.Background(), redwire.Options{
		Host:        config.Host,
		Port:        config.Port,
		TLS:         config.TLS,
		Password:    config.Password,
		DB:          config.Database,
		DialTimeout: config.Timeout,
	})
	if err != nil {
		atomic.AddInt64(&wr.Errors, int64(requests))
		return wr
	}
	defer client.Close()

	if config.Pipeline > 1 {
		runPipelinedRequests(client, command, requests, config, workerID, &wr)
	} else {
		runSequentialRequests(client, command, requests, config, workerID, &wr)
	}

	return wr
}

func generateValue(size int, random bool) string {
	if random {
		const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
		result := make([]byte, size)
		for i := range result {
			result[i] = charset[time.Now().UnixNano()%int64(len(charset))]
		}
		return string(result)
	}
	return strings.Repeat("x", size)
}

func runSequentialRequests(client *redwire.Client, command string, requests int, config *Config, workerID int, wr *workerResult) {
	ctx := context.Background()
	for i := 0; i < requests; i++ {
		start := time.Now()
		name, args := buildCommand(command, config, workerID, i)
		if _, err := client.Exec(ctx, name, args...); err != nil {
			atomic.AddInt64(&wr.Errors, 1)
			continue
		}
		wr.Latencies = append(wr.Latencies, time.Since(start))
	}
}

func runPipelinedRequests(client *redwire.Client, command string, requests int, config *Config, workerID int, wr *workerResult) {
	ctx := context.Background()
	for i := 0; i < requests; i += config.Pipeline {
		pipelineSize := config.Pipeline
		if i+pipelineSize > requests {
			pipelineSize = requests - i
		}

		p := client.Pipeline()
		for j := 0; j < pipelineSize; j++ {
			name, args := buildCommand(command, config, workerID, i+j)
			p.Enqueue(name, args...)
		}

		start := time.Now()
		replies, err := p.Flush(ctx)
		latency := time.Since(start)
		if err != nil {
			atomic.AddInt64(&wr.Errors, int64(pipelineSize))
			continue
		}
		avgLatency := latency / time.Duration(pipelineSize)
		for _, r := range replies {
			if r.IsError() {
				atomic.AddInt64(&wr.Errors, 1)
			}
			wr.Latencies = append(wr.Latencies, avgLatency)
		}
	}
}

func buildCommand(command string, config *Config, workerID, requestID int) (string, []any) {
	switch command {
	case "PING":
		return "PING", nil
	case "SET":
		key := fmt.Sprintf("key:%d", requestID%config.KeySpace)
		return "SET", []any{key, generateValue(config.DataSize, config.RandomData)}
	case "GET":
		return "GET", []any{fmt.Sprintf("key:%d", requestID%config.KeySpace)}
	case "INCR":
		return "INCR", []any{fmt.Sprintf("counter:%d", requestID%config.KeySpace)}
	case "LPUSH":
		key := fmt.Sprintf("list:%d", requestID%config.KeySpace)
		return "LPUSH", []any{key, generateValue(config.DataSize, config.RandomData)}
	case "RPUSH":
		key := fmt.Sprintf("list:%d", requestID%config.KeySpace)
		return "RPUSH", []any{key, generateValue(config.DataSize, config.RandomData)}
	case "LPOP":
		return "LPOP", []any{fmt.Sprintf("list:%d", requestID%config.KeySpace)}
	case "RPOP":
		return "RPOP", []any{fmt.Sprintf("list:%d", requestID%config.KeySpace)}
	case "SADD":
		key := fmt.Sprintf("set:%d", requestID%config.KeySpace)
		return "SADD", []any{key, generateValue(config.DataSize, config.RandomData)}
	case "HSET":
		key := fmt.Sprintf("hash:%d", requestID%config.KeySpace)
		field := fmt.Sprintf("field:%d", requestID%1000)
		return "HSET", []any{key, field, generateValue(config.DataSize, config.RandomData)}
	case "SPOP":
		return "SPOP", []any{fmt.Sprintf("set:%d", requestID%config.KeySpace)}
	case "ZADD":
		key := fmt.Sprintf("zset:%d", requestID%config.KeySpace)
		score := requestID % 1000
		return "ZADD", []any{key, strconv.Itoa(score), generateValue(config.DataSize, config.RandomData)}
	case "ZPOPMIN":
		return "ZPOPMIN", []any{fmt.Sprintf("zset:%d", requestID%config.KeySpace)}
	case "LRANGE":
		key := fmt.Sprintf("list:%d", requestID%config.KeySpace)
		return "LRANGE", []any{key, "0", "100"}
	case "MSET":
		args := make([]any, 0, 20)
		for j := 0; j < 10; j++ {
			key := fmt.Sprintf("mset:%d:%d", requestID%config.KeySpace, j)
			args = append(args, key, generateValue(config.DataSize, config.RandomData))
		}
		return "MSET", args
	default:
		return "PING", nil
	}
}

// PrintResults renders benchmark results as text, CSV, or with a latency
// histogram per Config's flags.
func PrintResults(results []Result, config *Config) {
	if config.CSV {
		printCSVResults(results)
		return
	}

	if !config.Quiet {
		fmt.Printf("\nBenchmark Results:\n")
		fmt.Printf("=================\n")
	}

	for _, result := range results {
		if config.Quiet {
			fmt.Printf("%s: %.2f requests per second, p50=%s\n",
				result.Command, result.Throughput, formatDuration(result.P50Latency))
		} else {
			fmt.Printf("%s: %.2f requests per second\n", result.Command, result.Throughput)
			fmt.Printf("  Duration: %s\n", formatDuration(result.Duration))
			fmt.Printf("  Requests: %d\n", result.Requests)
			fmt.Printf("  Errors: %d\n", result.Errors)
			fmt.Printf("  Latency percentiles:\n")
			fmt.Printf("    p50: %s\n", formatDuration(result.P50Latency))
			fmt.Printf("    p95: %s\n", formatDuration(result.P95Latency))
			fmt.Printf("    p99: %s\n", formatDuration(result.P99Latency))

			if config.LatencyHist && len(result.Latencies) > 0 {
				printLatencyHistogram(result.Latencies)
			}
			fmt.Printf("\n")
		}
	}

	if !config.Quiet {
		printSummary(results)
	}
}

func printCSVResults(results []Result) {
	fmt.Printf("Command,Requests,Errors,Duration,Throughput,P50,P95,P99\n")
	for _, result := range results {
		fmt.Printf("%s,%d,%d,%s,%.2f,%s,%s,%s\n",
			result.Command,
			result.Requests,
			result.Errors,
			formatDuration(result.Duration),
			result.Throughput,
			formatDuration(result.P50Latency),
			formatDuration(result.P95Latency),
			formatDuration(result.P99Latency))
	}
}

func printLatencyHistogram(latencies []time.Duration) {
	if len(latencies) == 0 {
		return
	}

	buckets := []time.Duration{
		1 * time.Microsecond,
		10 * time.Microsecond,
		100 * time.Microsecond,
		1 * time.Millisecond,
		10 * time.Millisecond,
		100 * time.Millisecond,
		1 * time.Second,
	}

	fmt.Printf("  Latency histogram:\n")
	for _, bucket := range buckets {
		count := 0
		for _, latency := range latencies {
			if latency <= bucket {
				count++
			}
		}
		percentage := float64(count) / float64(len(latencies)) * 100
		fmt.Printf("    <=%s: %.1f%%\n", formatDuration(bucket), percentage)
	}
}

func printSummary(results []Result) {
	if len(results) == 0 {
		return
	}

	var totalRequests int64
	var totalErrors int64
	var totalThroughput float64

	for _, result := range results {
		totalRequests += result.Requests
		totalErrors += result.Errors
		totalThroughput += result.Throughput
	}

	fmt.Printf("Summary:\n")
	fmt.Printf("  Total requests: %d\n", totalRequests)
	fmt.Printf("  Total errors: %d\n", totalErrors)
	fmt.Printf("  Error rate: %.2f%%\n", float64(totalErrors)/float64(totalRequests)*100)
	fmt.Printf("  Average throughput: %.2f requests/second\n", totalThroughput/float64(len(results)))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%.3f ns", float64(d.Nanoseconds()))
	case d < time.Millisecond:
		return fmt.Sprintf("%.3f µs", float64(d.Microseconds()))
	case d < time.Second:
		return fmt.Sprintf("%.3f ms", float64(d.Milliseconds()))
	default:
		return fmt.Sprintf("%.3f s", d.Seconds())
	}
}
