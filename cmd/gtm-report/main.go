package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joelkehle/gtm-toolkit/internal/apiclient"
	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/report"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
	"github.com/joelkehle/gtm-toolkit/internal/timeline"
	"github.com/joelkehle/gtm-toolkit/internal/toolkit"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Path to scenario JSON applied over the catalog defaults")
	answersPath := flag.String("answers", "", "Optional path to assessment answers JSON (question key -> option)")
	catalogPath := flag.String("catalog", "", "Optional catalog YAML (defaults to the built-in catalog)")
	launch := flag.String("launch", "", "Launch start date YYYY-MM-DD (defaults to next Monday)")
	format := flag.String("format", "md", "Output format: md, html or pdf")
	outputPath := flag.String("output", "", "Path to write the report (defaults to stdout; required for pdf)")
	chromePath := flag.String("chrome", os.Getenv("GTM_CHROME_PATH"), "Chromium binary for pdf output")
	paper := flag.String("paper", "letter", "PDF paper size: letter or a4")
	serverURL := flag.String("server", "", "Render through a running gtm-server at this URL instead of locally")
	flag.Parse()

	cat := catalog.Default()
	if *catalogPath != "" {
		loaded, err := catalog.LoadFile(*catalogPath)
		if err != nil {
			log.Fatalf("load catalog: %v", err)
		}
		cat = loaded
	}

	var launchStart time.Time
	if *launch != "" {
		d, err := timeline.ParseDate(*launch)
		if err != nil {
			log.Fatalf("parse -launch: %v", err)
		}
		launchStart = d
	}

	if *serverURL != "" {
		out, err := renderRemote(*serverURL, launchStart, *scenarioPath, *answersPath, *format)
		if err != nil {
			log.Fatalf("remote report: %v", err)
		}
		writeOutput(out, *format, *outputPath)
		return
	}

	tk, err := toolkit.New(cat, toolkit.Config{LaunchStart: launchStart})
	if err != nil {
		log.Fatalf("build toolkit: %v", err)
	}
	defer tk.Close()

	if *scenarioPath != "" {
		var p scenario.Partial
		if err := readJSON(*scenarioPath, &p); err != nil {
			log.Fatalf("read scenario: %v", err)
		}
		if _, err := tk.UpdateScenario(p); err != nil {
			log.Fatalf("apply scenario: %v", err)
		}
	}
	if *answersPath != "" {
		var answers map[string]string
		if err := readJSON(*answersPath, &answers); err != nil {
			log.Fatalf("read answers: %v", err)
		}
		tk.Assess(answers)
	}

	markdown := report.BuildMarkdown(tk.Snapshot())
	out, err := render(*format, markdown, *chromePath, *paper)
	if err != nil {
		log.Fatalf("render %s: %v", *format, err)
	}
	writeOutput(out, *format, *outputPath)
}

func writeOutput(out []byte, format, outputPath string) {
	if outputPath == "" {
		if format == "pdf" {
			log.Fatal("-output is required for pdf")
		}
		if _, err := os.Stdout.Write(out); err != nil {
			log.Fatalf("write report: %v", err)
		}
		return
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		log.Fatalf("write report: %v", err)
	}
}

// renderRemote builds the same report in a throwaway server session.
func renderRemote(baseURL string, launch time.Time, scenarioPath, answersPath, format string) ([]byte, error) {
	ctx := context.Background()
	c := apiclient.NewClient(baseURL)

	var p *scenario.Partial
	if scenarioPath != "" {
		p = &scenario.Partial{}
		if err := readJSON(scenarioPath, p); err != nil {
			return nil, err
		}
	}
	sess, err := c.CreateSession(ctx, launch, p)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.DeleteSession(ctx, sess.ID); err != nil {
			log.Printf("delete session id=%s err=%v", sess.ID, err)
		}
	}()
	if answersPath != "" {
		var answers map[string]string
		if err := readJSON(answersPath, &answers); err != nil {
			return nil, err
		}
		if _, err := c.Assess(ctx, sess.ID, answers); err != nil {
			return nil, err
		}
	}
	return c.Report(ctx, sess.ID, format)
}

func render(format, markdown, chromePath, paperName string) ([]byte, error) {
	switch format {
	case "md", "markdown":
		return []byte(markdown), nil
	case "html":
		page, err := report.RenderHTML(markdown)
		return []byte(page), err
	case "pdf":
		paper, err := report.ParsePaper(paperName)
		if err != nil {
			return nil, err
		}
		return report.NewPDFRenderer(chromePath, paper).Render(context.Background(), markdown)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
