package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"featurerag/config"
	"featurerag/internal/adapter/embedding"
	"featurerag/internal/adapter/vectorindex"
	"featurerag/internal/logging"
	"featurerag/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding featurerag.yaml")
	casesPath := flag.String("cases", "", "JSON file of {\"query\", \"expected\"} cases")
	topK := flag.Int("k", 3, "Number of results per query")
	flag.Parse()

	if *casesPath == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -cases eval.json [-k 3]")
		fmt.Println("\nReports, over the labelled cases:")
		fmt.Println("  1. hit@1 (expected feature is the top answer)")
		fmt.Println("  2. hit@k (expected feature is among the top k)")
		fmt.Println("  3. mean reciprocal rank")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Resolve(*dir)
	// Per-query failures are reported in the table below.
	cfg.Logging.Level = "fatal"

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cases, err := usecase.LoadEvalCases(*casesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}
	dialer, err := vectorindex.New(cfg.Index)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Vector index init failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Collection: %s (%s)\n", cfg.Index.Collection, cfg.Index.Backend)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Cases: %d, k = %d\n\n", len(cases), *topK)

	q := usecase.NewQuerier(dialer, embedder, logger)
	report := usecase.Evaluate(context.Background(), q, cfg.Index.Collection, cases, *topK)

	for i, o := range report.Outcomes {
		status := "MISS"
		switch {
		case o.Err != nil:
			status = "ERR "
		case o.Rank == 1:
			status = "HIT "
		case o.Rank > 1:
			status = fmt.Sprintf("@%-3d", o.Rank)
		}
		fmt.Printf("%d. [%s] %q\n", i+1, status, o.Case.Query)
		if o.Err != nil {
			fmt.Printf("   error: %v\n\n", o.Err)
			continue
		}
		fmt.Printf("   expected: %s, top: %s (distance %.3f)\n\n", o.Case.Expected, o.Top, o.Distance)
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  hit@1: %.3f\n", report.HitAt1)
	fmt.Printf("  hit@%d: %.3f\n", report.K, report.HitAtK)
	fmt.Printf("  MRR:   %.3f\n", report.MRR)
	if report.Errors > 0 {
		fmt.Printf("  Errors: %d\n", report.Errors)
	}

	switch {
	case report.HitAt1 > 0.8:
		fmt.Println("  Status: GOOD - top answers are reliable")
	case report.HitAtK > 0.8:
		fmt.Println("  Status: OK - the right feature is usually close to the top")
	default:
		fmt.Println("  Status: POOR - consider a stronger embedding model or richer feature text")
	}
}
