package report

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const printCSS = "html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
	"body{font-family:-apple-system,'Segoe UI',Helvetica,Arial,sans-serif;color:#1c1917;background:#fff;margin:0;padding:0.6rem;} " +
	".report{max-width:960px;margin:0 auto;} " +
	".report h1{font-size:1.6rem;border-bottom:3px solid #0f766e;padding-bottom:0.3rem;} " +
	".report h2{font-size:1.2rem;margin-top:1.6rem;color:#0f766e;} " +
	".report table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.85rem;} " +
	".report th,.report td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;} " +
	".report thead th{background:#f1f5f9;font-weight:700;} " +
	`.report td[data-undefined="true"]{color:#92400e;font-style:italic;} ` +
	`h2[data-page-break-before="true"]{break-before:page;page-break-before:always;} ` +
	"@media print{ @page{size:auto;margin:12mm;} body{padding:0;} .report{max-width:none;} }"

var (
	reAssessmentHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Readiness Assessment\s*</h2>`)
	reUndefinedCell     = regexp.MustCompile(`<td>(not yet calculable[^<]*)</td>`)
)

// RenderHTML converts report markdown into a standalone print-ready page.
func RenderHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(Title) + "</title>" +
		"<style>" + printCSS + "</style></head><body>" +
		"<main class='report'>" + applyPrintLayoutHooks(content.String()) + "</main>" +
		"</body></html>", nil
}

func applyPrintLayoutHooks(contentHTML string) string {
	out := reAssessmentHeading.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">Readiness Assessment</h2>`)
	return reUndefinedCell.ReplaceAllString(out, `<td data-undefined="true">$1</td>`)
}
