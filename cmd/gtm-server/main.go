package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joelkehle/gtm-toolkit/internal/config"
	"github.com/joelkehle/gtm-toolkit/internal/httpapi"
	"github.com/joelkehle/gtm-toolkit/internal/report"
	"github.com/joelkehle/gtm-toolkit/internal/telemetry"
)

func main() {
	var (
		envFile = flag.String("env-file", ".env", "Optional dotenv file loaded before the environment")
		addr    = flag.String("addr", "", "Listen address (overrides GTM_ADDR)")
		noPDF   = flag.Bool("no-pdf", false, "Disable PDF report rendering")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "gtm-server", cfg.TracingEndpoint())
	if err != nil {
		log.Fatalf("setup tracing: %v", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	cat, err := cfg.LoadCatalog()
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	log.Printf("using catalog version=%s", cat.Version)

	sessions := httpapi.NewSessions(cat, httpapi.SessionConfig{TTL: cfg.SessionTTL, MaxSessions: cfg.MaxSessions})
	go sessions.Run(ctx, time.Minute)

	opts := httpapi.Options{Catalog: cat, Sessions: sessions}
	if !*noPDF {
		paper, _ := report.ParsePaper(cfg.PDFPaper)
		pdf := report.NewPDFRenderer(cfg.ChromePath, paper)
		if pdf.ChromePath() == "" {
			log.Printf("warning: no chromium found; pdf reports rely on chromedp's default lookup")
		}
		opts.PDF = pdf
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewServer(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = srv.Shutdown(stopCtx)
	}()

	log.Printf("gtm-server listening on %s (sessions ttl=%s max=%d)", cfg.Addr, cfg.SessionTTL, cfg.MaxSessions)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
