package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joelkehle/gtm-toolkit/internal/assessment"
	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/pricing"
	"github.com/joelkehle/gtm-toolkit/internal/projection"
	"github.com/joelkehle/gtm-toolkit/internal/report"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
	"github.com/joelkehle/gtm-toolkit/internal/timeline"
	"github.com/joelkehle/gtm-toolkit/internal/toolkit"
)

const maxBodyBytes = 1 << 20

// PDFRenderer turns report markdown into a PDF.
type PDFRenderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

type Options struct {
	Catalog  *catalog.Catalog
	Sessions *Sessions
	// PDF is optional; without it format=pdf answers 503.
	PDF PDFRenderer
}

type Server struct {
	cat      *catalog.Catalog
	sessions *Sessions
	pdf      PDFRenderer
}

// NewServer exposes the toolkit to presentation widgets over JSON. Handlers
// only call toolkit and engine APIs; no metric is computed here.
func NewServer(opts Options) http.Handler {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Sessions == nil {
		opts.Sessions = NewSessions(opts.Catalog, SessionConfig{})
	}
	s := &Server{cat: opts.Catalog, sessions: opts.Sessions, pdf: opts.PDF}

	r := chi.NewRouter()
	r.Use(recoverMiddleware)
	r.Use(tracingMiddleware)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/catalog", s.handleCatalog)
		r.Post("/projections", s.handleProject)
		r.Post("/pricing/estimate", s.handlePricing)
		r.Post("/assessments", s.handleAssess)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{session_id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Patch("/scenario", s.handleUpdateScenario)
				r.Post("/assessment", s.handleSessionAssessment)
				r.Post("/timeline/move", s.handleMovePhase)
				r.Post("/timeline/shift", s.handleShiftPhase)
				r.Post("/timeline/unpin", s.handleUnpinPhase)
				r.Put("/timeline/launch", s.handleSetLaunch)
				r.Get("/report", s.handleReport)
			})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(blob))) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeBody(r *http.Request, dst any) error {
	blob, err := readBody(r)
	if err != nil {
		return invalidJSON(err)
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return invalidJSON(err)
	}
	return nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*toolkit.Toolkit, string, bool) {
	id := chi.URLParam(r, "session_id")
	tk, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, sessionNotFound(id))
		return nil, id, false
	}
	return tk, id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"catalog_version": s.cat.Version,
		"sessions":        s.sessions.Len(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cat)
}

// handleProject projects a one-off scenario: the body is applied over the
// catalog defaults and validated the same way a session update is.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var p scenario.Partial
	if err := decodeBody(r, &p); err != nil {
		writeError(w, err)
		return
	}
	in, err := scenario.NewStore(s.cat).Update(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"scenario":    in,
		"metrics":     projection.Project(in, s.cat),
		"sensitivity": projection.Sensitivity(in, s.cat),
	})
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanySizeTier  catalog.CompanySizeTier `json:"company_size_tier"`
		MarketComplexity *float64                `json:"market_complexity"`
		DesiredOutcomes  []string                `json:"desired_outcomes"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.MarketComplexity == nil {
		writeError(w, validationError("market_complexity is required"))
		return
	}
	est, err := pricing.Estimate(s.cat, req.CompanySizeTier, *req.MarketComplexity, req.DesiredOutcomes)
	if err != nil {
		writeError(w, validationError("%v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pricing": est})
}

type answersRequest struct {
	Answers map[string]string `json:"answers"`
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "assessment": assessment.Score(s.cat, req.Answers)})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LaunchStart string            `json:"launch_start"`
		Scenario    *scenario.Partial `json:"scenario"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var launch time.Time
	if strings.TrimSpace(req.LaunchStart) != "" {
		d, err := timeline.ParseDate(req.LaunchStart)
		if err != nil {
			writeError(w, validationError("launch_start: %v", err))
			return
		}
		launch = d
	}

	id, tk, err := s.sessions.Create(launch)
	if err != nil {
		writeError(w, err)
		return
	}
	out := tk.Outputs()
	if req.Scenario != nil {
		out, err = tk.UpdateScenario(*req.Scenario)
		if err != nil {
			s.sessions.Delete(id)
			writeError(w, err)
			return
		}
	}
	log.Printf("session created id=%s", id)
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "session_id": id, "outputs": out})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	tk, id, ok := s.session(w, r)
	if !ok {
		return
	}
	payload := map[string]any{"ok": true, "session_id": id, "outputs": tk.Outputs()}
	if res, ok := tk.Assessment(); ok {
		payload["assessment"] = res
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	if !s.sessions.Delete(id) {
		writeError(w, sessionNotFound(id))
		return
	}
	log.Printf("session deleted id=%s", id)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	tk, _, ok := s.session(w, r)
	if !ok {
		return
	}
	var p scenario.Partial
	if err := decodeBody(r, &p); err != nil {
		writeError(w, err)
		return
	}
	out, err := tk.UpdateScenario(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "outputs": out})
}

func (s *Server) handleSessionAssessment(w http.ResponseWriter, r *http.Request) {
	tk, _, ok := s.session(w, r)
	if !ok {
		return
	}
	var req answersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "assessment": tk.Assess(req.Answers)})
}

type phaseRequest struct {
	Key         string `json:"key"`
	To          *int   `json:"to"`
	Start       string `json:"start"`
	LaunchStart string `json:"launch_start"`
}

func (s *Server) handleMovePhase(w http.ResponseWriter, r *http.Request) {
	s.editTimeline(w, r, func(tk *toolkit.Toolkit, req phaseRequest) (timeline.TimelinePlan, error) {
		if req.To == nil {
			return timeline.TimelinePlan{}, validationError("to is required")
		}
		return tk.MovePhase(req.Key, *req.To)
	})
}

func (s *Server) handleShiftPhase(w http.ResponseWriter, r *http.Request) {
	s.editTimeline(w, r, func(tk *toolkit.Toolkit, req phaseRequest) (timeline.TimelinePlan, error) {
		start, err := timeline.ParseDate(req.Start)
		if err != nil {
			return timeline.TimelinePlan{}, validationError("start: %v", err)
		}
		return tk.ShiftPhase(req.Key, start)
	})
}

func (s *Server) handleUnpinPhase(w http.ResponseWriter, r *http.Request) {
	s.editTimeline(w, r, func(tk *toolkit.Toolkit, req phaseRequest) (timeline.TimelinePlan, error) {
		return tk.UnpinPhase(req.Key)
	})
}

func (s *Server) handleSetLaunch(w http.ResponseWriter, r *http.Request) {
	s.editTimeline(w, r, func(tk *toolkit.Toolkit, req phaseRequest) (timeline.TimelinePlan, error) {
		start, err := timeline.ParseDate(req.LaunchStart)
		if err != nil {
			return timeline.TimelinePlan{}, validationError("launch_start: %v", err)
		}
		return tk.SetLaunchStart(start)
	})
}

func (s *Server) editTimeline(w http.ResponseWriter, r *http.Request, edit func(*toolkit.Toolkit, phaseRequest) (timeline.TimelinePlan, error)) {
	tk, _, ok := s.session(w, r)
	if !ok {
		return
	}
	var req phaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	plan, err := edit(tk, req)
	if err != nil {
		retained := tk.Outputs().Plan
		writeErrorWithPlan(w, err, &retained)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "plan": plan})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	tk, id, ok := s.session(w, r)
	if !ok {
		return
	}
	markdown := report.BuildMarkdown(tk.Snapshot())

	switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
	case "", "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, markdown)
	case "html":
		page, err := report.RenderHTML(markdown)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, page)
	case "pdf":
		if s.pdf == nil {
			writeError(w, newError(CodeUnavailable, "pdf rendering is not configured"))
			return
		}
		pdf, err := s.pdf.Render(r.Context(), markdown)
		if err != nil {
			log.Printf("render report pdf failed session=%s err=%v", id, err)
			writeError(w, newError(CodeUnavailable, "pdf rendering failed"))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="gtm-report.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	default:
		writeError(w, validationError("unknown report format %q", format))
	}
}
