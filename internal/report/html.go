package report

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/property-analysis/internal/analysis"
)

// Meta is the header information printed above the report body.
type Meta struct {
	JobID       string
	CompletedAt time.Time
	Outcome     analysis.Outcome
}

const styleCSS = `
:root{--ink:#1c1917;--muted:#57534e;--accent:#1e3a8a;--rule:#a8a29e;}
body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;color:var(--ink);line-height:1.45;margin:0;padding:1rem;}
.report-wrap{max-width:960px;margin:0 auto;}
.report-meta{color:var(--muted);font-size:0.85rem;margin-bottom:0.75rem;}
.report-meta strong{color:var(--ink);}
.report-badge{display:inline-block;background:#fef3c7;color:#78350f;border:1px solid #fcd34d;border-radius:4px;padding:0.1rem 0.45rem;font-size:0.8rem;margin-right:0.35rem;}
.report-html h1{color:var(--accent);font-size:1.6rem;}
.report-html h2{border-bottom:2px solid var(--accent);padding-bottom:0.2rem;margin-top:1.6rem;}
.report-html table{width:100%;border-collapse:collapse;border:1px solid var(--rule);font-size:0.82rem;margin-bottom:0.8rem;}
.report-html th,.report-html td{border:1px solid var(--rule);padding:0.3rem 0.45rem;text-align:left;vertical-align:top;}
.report-html thead th{background:#f1f5f9;font-weight:700;}
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
h2[data-page-break-before="true"]{break-before:page;page-break-before:always;}
@media print{@page{size:auto;margin:12mm;} body{padding:0;} .report-wrap{max-width:none;}}
`

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the analysis as a standalone HTML document.
func HTML(a analysis.PropertyAnalysis, meta Meta) (string, error) {
	var content strings.Builder
	if err := markdownRenderer.Convert([]byte(Markdown(a)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	title := "Property Analysis: " + a.PropertyOverview.Address
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + styleCSS + "</style></head><body>" +
		"<div class='report-wrap'>" +
		"<div class='report-meta'>" + metaHTML(meta) + "</div>" +
		"<div class='report-badges'>" + badgeHTML(a, meta) + "</div>" +
		"<div class='report-html'>" + applyPrintLayoutHooks(content.String()) + "</div>" +
		"</div></body></html>", nil
}

var (
	reMarketHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Market Data\s*</h2>`)
	reRecHeading    = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Recommendation\s*</h2>`)
)

// applyPrintLayoutHooks starts the market and recommendation sections on a
// new printed page.
func applyPrintLayoutHooks(contentHTML string) string {
	out := reMarketHeading.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">Market Data</h2>`)
	return reRecHeading.ReplaceAllString(out, `<h2$1 data-page-break-before="true">Recommendation</h2>`)
}

func metaHTML(meta Meta) string {
	var out strings.Builder
	if meta.JobID != "" {
		out.WriteString("<div><strong>Reference:</strong> " + html.EscapeString(meta.JobID) + "</div>")
	}
	if !meta.CompletedAt.IsZero() {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(meta.CompletedAt.UTC().Format("January 2, 2006 at 3:04 PM MST")) + "</div>")
	}
	return out.String()
}

func badgeHTML(a analysis.PropertyAnalysis, meta Meta) string {
	var out strings.Builder
	out.WriteString("<span class='report-badge'>" + html.EscapeString(string(a.Recommendation.InvestDecision)) + "</span>")
	out.WriteString("<span class='report-badge'>Crime risk: " + html.EscapeString(string(a.CrimeAnalysis.RiskLevel)) + "</span>")
	if meta.Outcome != "" && meta.Outcome != analysis.OutcomeValid {
		out.WriteString("<span class='report-badge'>Insufficient data: conservative defaults shown</span>")
	}
	return out.String()
}
