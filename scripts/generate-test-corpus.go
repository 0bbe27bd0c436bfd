//go:build ignore

// Package main generates a synthetic document corpus for benchmarking
// ingestion and search.
// Usage: go run scripts/generate-test-corpus.go -files 500 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 500, "Number of documents to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	minParas  = flag.Int("min-paragraphs", 3, "Minimum paragraphs per document")
	maxParas  = flag.Int("max-paragraphs", 12, "Maximum paragraphs per document")
)

var topics = []string{
	"service agreement", "maintenance contract", "quarterly report",
	"incident postmortem", "onboarding guide", "billing policy",
	"data retention policy", "meeting minutes", "release notes",
	"security review",
}

var subjects = []string{
	"the customer", "the vendor", "the operations team",
	"the finance department", "the on-call engineer",
	"the account manager", "the review board", "the platform team",
}

var clauses = []string{
	"must acknowledge requests within four business hours",
	"escalates critical incidents to the on-call rotation",
	"reviews invoices before the tenth of each month",
	"retains records for seven years after contract end",
	"schedules maintenance windows outside business hours",
	"documents every configuration change in the audit log",
	"notifies affected parties within seventy two hours",
	"reconciles usage reports against metered billing",
	"renews automatically unless either party objects in writing",
	"archives superseded revisions in the document store",
}

var connectors = []string{
	"In addition,", "Furthermore,", "For clarity,", "As agreed,",
	"Unless stated otherwise,", "Per the previous revision,",
}

func sentence(rng *rand.Rand) string {
	subject := subjects[rng.Intn(len(subjects))]
	clause := clauses[rng.Intn(len(clauses))]
	s := fmt.Sprintf("%s %s.", subject, clause)
	return strings.ToUpper(s[:1]) + s[1:]
}

func paragraph(rng *rand.Rand) string {
	n := 2 + rng.Intn(4)
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s := sentence(rng)
		if i > 0 && rng.Intn(3) == 0 {
			s = connectors[rng.Intn(len(connectors))] + " " + strings.ToLower(s[:1]) + s[1:]
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func document(rng *rand.Rand, id int) (name, content string) {
	topic := topics[rng.Intn(len(topics))]
	paras := *minParas + rng.Intn(*maxParas-*minParas+1)

	var sb strings.Builder
	markdown := rng.Intn(2) == 0
	if markdown {
		fmt.Fprintf(&sb, "# %s %d\n\n", strings.ToUpper(topic[:1])+topic[1:], id)
	} else {
		fmt.Fprintf(&sb, "%s %d\n\n", strings.ToUpper(topic), id)
	}
	for i := 0; i < paras; i++ {
		if markdown && i > 0 && rng.Intn(4) == 0 {
			fmt.Fprintf(&sb, "## Section %d\n\n", i)
		}
		sb.WriteString(paragraph(rng))
		sb.WriteString("\n\n")
	}

	ext := ".txt"
	if markdown {
		ext = ".md"
	}
	return fmt.Sprintf("%s-%04d%s", strings.ReplaceAll(topic, " ", "-"), id, ext), sb.String()
}

func main() {
	flag.Parse()

	if *maxParas < *minParas {
		fmt.Fprintln(os.Stderr, "max-paragraphs must be >= min-paragraphs")
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", *outputDir, err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	var bytes int64
	for i := 0; i < *numFiles; i++ {
		name, content := document(rng, i)
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
		bytes += int64(len(content))
	}

	fmt.Printf("Generated %d documents (%.1f KB) in %s\n",
		*numFiles, float64(bytes)/1024, *outputDir)
}
