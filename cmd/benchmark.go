package cmd

import (
	"fmt"
	"strings"
	"time"

	"redwire/internal/benchmark"

	"github.com/spf13/cobra"
)

// benchCmd load-tests a RESP2 server through the redwire client library.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark a RESP2 server using the redwire client",
	Long: `Run load tests against a RESP2 server, similar to redis-benchmark,
using the redwire client library's Exec and Pipeline.

Examples:
  redwire-cli bench --requests 10000 --concurrency 10
  redwire-cli bench --commands SET,GET,INCR --requests 5000
  redwire-cli bench --pipeline 10 --requests 10000
  redwire-cli bench --latency-hist --requests 1000`,
	Run: runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntP("concurrency", "c", 50, "Number of parallel connections")
	benchCmd.Flags().Int("requests", 10000, "Total number of requests")
	benchCmd.Flags().IntP("pipeline", "P", 1, "Pipeline depth")
	benchCmd.Flags().Duration("timeout", 5*time.Second, "Connection timeout")

	benchCmd.Flags().String("commands", "PING,SET,GET,INCR,LPUSH,RPUSH,LPOP,RPOP,SADD,HSET,SPOP,ZADD,ZPOPMIN,LRANGE,MSET", "Comma-separated list of commands to test")
	benchCmd.Flags().Int("data-size", 2, "Data size of SET/GET values in bytes")
	benchCmd.Flags().Int("keyspace", 1000000, "Keyspace size for random key generation")
	benchCmd.Flags().Bool("random-data", false, "Use random data for values")

	benchCmd.Flags().BoolP("quiet", "q", false, "Quiet mode (only show summary)")
	benchCmd.Flags().Bool("csv", false, "Output in CSV format")
	benchCmd.Flags().Bool("latency-hist", false, "Show latency histogram")
}

func runBenchmark(cmd *cobra.Command, _ []string) {
	commands := strings.Split(getStringFlag(cmd, "commands", "PING,SET,GET,INCR,LPUSH,RPUSH,LPOP,RPOP,SADD,HSET,SPOP,ZADD,ZPOPMIN,LRANGE,MSET"), ",")
	for i, c := range commands {
		commands[i] = strings.TrimSpace(c)
	}

	config := &benchmark.Config{
		Host:        getStringFlag(cmd, "host", "127.0.0.1"),
		Port:        getIntFlag(cmd, "port", 6379),
		Password:    getStringFlag(cmd, "password", ""),
		Database:    getIntFlag(cmd, "db", 0),
		TLS:         getBoolFlag(cmd, "tls"),
		Requests:    getIntFlag(cmd, "requests", 10000),
		Concurrency: getIntFlag(cmd, "concurrency", 50),
		Pipeline:    getIntFlag(cmd, "pipeline", 1),
		Timeout:     getDurationFlag(cmd, "timeout", 5*time.Second),
		Commands:    commands,
		DataSize:    getIntFlag(cmd, "data-size", 2),
		KeySpace:    getIntFlag(cmd, "keyspace", 1000000),
		RandomData:  getBoolFlag(cmd, "random-data"),
		Quiet:       getBoolFlag(cmd, "quiet"),
		CSV:         getBoolFlag(cmd, "csv"),
		LatencyHist: getBoolFlag(cmd, "latency-hist"),
	}

	if !config.Quiet {
		fmt.Printf("redwire bench\n")
		fmt.Printf("=============\n")
		fmt.Printf("Host: %s:%d\n", config.Host, config.Port)
		fmt.Printf("Requests: %d\n", config.Requests)
		fmt.Printf("Concurrency: %d\n", config.Concurrency)
		fmt.Printf("Pipeline: %d\n", config.Pipeline)
		fmt.Printf("Commands: %s\n", strings.Join(config.Commands, ", "))
		fmt.Printf("Data size: %d bytes\n", config.DataSize)
		fmt.Printf("Keyspace: %d\n", config.KeySpace)
		fmt.Printf("\n")
	}

	results := benchmark.Run(config)
	benchmark.PrintResults(results, config)
}
