package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/property-analysis/internal/analysis"
	"github.com/joelkehle/property-analysis/internal/analysisclient"
	"github.com/joelkehle/property-analysis/internal/jobs"
	"github.com/joelkehle/property-analysis/internal/report"
)

func main() {
	var (
		serverURL   = flag.String("server", "http://localhost:8080", "Property analysis service base URL")
		address     = flag.String("address", "", "Property address to analyze")
		format      = flag.String("format", "markdown", "Output format: markdown, html or json")
		outputPath  = flag.String("output", "", "Path to write the result (defaults to stdout)")
		interval    = flag.Duration("interval", analysisclient.DefaultPollInterval, "Delay between status polls")
		maxAttempts = flag.Int("max-attempts", analysisclient.DefaultMaxAttempts, "Polls before giving up")
		forget      = flag.Bool("forget", false, "Delete the job on the server after fetching the result")
	)
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})

	if strings.TrimSpace(*address) == "" {
		*address = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(*address) == "" {
		log.Fatal("missing required -address")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client := analysisclient.NewClient(*serverURL)
	client.PollInterval = *interval
	client.MaxAttempts = *maxAttempts

	id, err := client.Submit(ctx, *address)
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	log.WithField("job_id", id).Info("analysis submitted")

	job, err := client.WaitForResult(ctx, id, func(j jobs.Job) {
		log.WithFields(logrus.Fields{"status": j.Status, "progress": j.Progress}).Info(j.CurrentStep)
	})
	if err != nil {
		log.Fatalf("wait for %s: %v", id, err)
	}
	if job.Status == jobs.StatusFailed {
		log.Fatalf("analysis failed: %s", job.Error)
	}
	if job.Outcome != "" && job.Outcome != analysis.OutcomeValid {
		log.WithField("outcome", job.Outcome).Warn("model output unusable; showing conservative defaults")
	}

	out, err := render(job, *format)
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	if err := writeOutput(*outputPath, out); err != nil {
		log.Fatalf("write output: %v", err)
	}

	if *forget {
		forgetCtx, forgetCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer forgetCancel()
		if err := client.Forget(forgetCtx, id); err != nil {
			log.WithError(err).Warn("forget job")
		}
	}
}

func render(job jobs.Job, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(job, "", "  ")
	case "markdown", "md":
		return []byte(report.Markdown(*job.Result)), nil
	case "html":
		meta := report.Meta{JobID: job.ID, Outcome: job.Outcome}
		if job.CompletedAt != nil {
			meta.CompletedAt = *job.CompletedAt
		}
		doc, err := report.HTML(*job.Result, meta)
		return []byte(doc), err
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func writeOutput(path string, out []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
