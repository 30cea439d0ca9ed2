package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/joelkehle/property-analysis/internal/analysis"
	"github.com/joelkehle/property-analysis/internal/report"
)

func main() {
	inputPath := flag.String("input", "", "Path to saved raw model output")
	address := flag.String("address", "", "Address the output was requested for")
	format := flag.String("format", "markdown", "Output format: markdown, html or pdf")
	outputPath := flag.String("output", "", "Path to write the report (defaults to stdout)")
	jsonOutputPath := flag.String("json-output", "", "Optional path to write the normalized analysis JSON")
	chromePath := flag.String("chrome-path", "", "Chromium binary for pdf output (auto-detected when empty)")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}
	if *address == "" {
		log.Fatal("missing required -address")
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	res := analysis.Normalize(string(raw), *address)
	if res.Fallback() {
		log.WithField("outcome", res.Outcome).Warnf("model output not usable: %s", res.Detail)
	}
	meta := report.Meta{CompletedAt: time.Now().UTC(), Outcome: res.Outcome}

	var out []byte
	switch *format {
	case "markdown", "md":
		out = []byte(report.Markdown(res.Analysis))
	case "html":
		doc, err := report.HTML(res.Analysis, meta)
		if err != nil {
			log.Fatalf("render html: %v", err)
		}
		out = []byte(doc)
	case "pdf":
		if *outputPath == "" {
			log.Fatal("pdf output requires -output")
		}
		renderer := report.NewChromiumPDFRenderer(*chromePath)
		out, err = renderer.Render(context.Background(), res.Analysis, meta)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
	default:
		log.Fatalf("unknown format %q", *format)
	}

	if err := writeOutput(*outputPath, out); err != nil {
		log.Fatalf("write report: %v", err)
	}
	if *jsonOutputPath != "" {
		if err := writeAnalysisJSON(*jsonOutputPath, res.Analysis); err != nil {
			log.Fatalf("write json output: %v", err)
		}
	}
}

func writeOutput(outputPath string, out []byte) error {
	if outputPath == "" {
		_, err := fmt.Print(string(out))
		return err
	}
	return os.WriteFile(outputPath, out, 0o644)
}

func writeAnalysisJSON(path string, a analysis.PropertyAnalysis) error {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
