package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joelkehle/gtm-toolkit/internal/assessment"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
	"github.com/joelkehle/gtm-toolkit/internal/timeline"
	"github.com/joelkehle/gtm-toolkit/internal/toolkit"
)

// Error is a non-2xx response decoded from the server's error envelope.
// Plan is set when a timeline edit was rejected.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  []scenario.FieldError
	Plan    *timeline.TimelinePlan
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gtm-server status=%d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gtm-server status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

type Session struct {
	ID         string
	Outputs    toolkit.Outputs
	Assessment *assessment.AssessmentResult
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			// PDF rendering on the server can take a while.
			Timeout: 60 * time.Second,
		},
	}
}

// DoJSON sends payload as JSON and returns the raw response body. Error
// statuses come back as *Error.
func (c *Client) DoJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		blob, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(blob)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return blob, decodeError(resp.StatusCode, blob)
	}
	return blob, nil
}

func decodeError(status int, blob []byte) error {
	var env struct {
		Error struct {
			Code    string                `json:"code"`
			Message string                `json:"message"`
			Fields  []scenario.FieldError `json:"fields"`
		} `json:"error"`
		Plan *timeline.TimelinePlan `json:"plan"`
	}
	if err := json.Unmarshal(blob, &env); err != nil || env.Error.Code == "" {
		return &Error{Status: status, Message: strings.TrimSpace(string(blob))}
	}
	return &Error{
		Status:  status,
		Code:    env.Error.Code,
		Message: env.Error.Message,
		Fields:  env.Error.Fields,
		Plan:    env.Plan,
	}
}

// CreateSession opens a session. A zero launch lets the server pick the
// next Monday and a nil scenario keeps the catalog defaults.
func (c *Client) CreateSession(ctx context.Context, launch time.Time, p *scenario.Partial) (Session, error) {
	req := map[string]any{}
	if !launch.IsZero() {
		req["launch_start"] = launch.Format("2006-01-02")
	}
	if p != nil {
		req["scenario"] = p
	}
	out, err := c.DoJSON(ctx, http.MethodPost, "/v1/sessions", req)
	if err != nil {
		return Session{}, err
	}
	return decodeSession(out)
}

func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	out, err := c.DoJSON(ctx, http.MethodGet, sessionPath(id, ""), nil)
	if err != nil {
		return Session{}, err
	}
	return decodeSession(out)
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := c.DoJSON(ctx, http.MethodDelete, sessionPath(id, ""), nil)
	return err
}

func (c *Client) UpdateScenario(ctx context.Context, id string, p scenario.Partial) (toolkit.Outputs, error) {
	out, err := c.DoJSON(ctx, http.MethodPatch, sessionPath(id, "/scenario"), p)
	if err != nil {
		return toolkit.Outputs{}, err
	}
	var resp struct {
		Outputs toolkit.Outputs `json:"outputs"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return toolkit.Outputs{}, fmt.Errorf("decode outputs: %w", err)
	}
	return resp.Outputs, nil
}

func (c *Client) Assess(ctx context.Context, id string, answers map[string]string) (assessment.AssessmentResult, error) {
	out, err := c.DoJSON(ctx, http.MethodPost, sessionPath(id, "/assessment"), map[string]any{"answers": answers})
	if err != nil {
		return assessment.AssessmentResult{}, err
	}
	var resp struct {
		Assessment assessment.AssessmentResult `json:"assessment"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return assessment.AssessmentResult{}, fmt.Errorf("decode assessment: %w", err)
	}
	return resp.Assessment, nil
}

func (c *Client) MovePhase(ctx context.Context, id, key string, to int) (timeline.TimelinePlan, error) {
	return c.editTimeline(ctx, http.MethodPost, id, "move", map[string]any{"key": key, "to": to})
}

func (c *Client) ShiftPhase(ctx context.Context, id, key string, start time.Time) (timeline.TimelinePlan, error) {
	return c.editTimeline(ctx, http.MethodPost, id, "shift", map[string]any{"key": key, "start": start.Format("2006-01-02")})
}

func (c *Client) UnpinPhase(ctx context.Context, id, key string) (timeline.TimelinePlan, error) {
	return c.editTimeline(ctx, http.MethodPost, id, "unpin", map[string]any{"key": key})
}

func (c *Client) SetLaunchStart(ctx context.Context, id string, start time.Time) (timeline.TimelinePlan, error) {
	return c.editTimeline(ctx, http.MethodPut, id, "launch", map[string]any{"launch_start": start.Format("2006-01-02")})
}

func (c *Client) editTimeline(ctx context.Context, method, id, op string, payload map[string]any) (timeline.TimelinePlan, error) {
	out, err := c.DoJSON(ctx, method, sessionPath(id, "/timeline/"+op), payload)
	if err != nil {
		return timeline.TimelinePlan{}, err
	}
	var resp struct {
		Plan timeline.TimelinePlan `json:"plan"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return timeline.TimelinePlan{}, fmt.Errorf("decode plan: %w", err)
	}
	return resp.Plan, nil
}

// Report fetches the session report in format md, html or pdf.
func (c *Client) Report(ctx context.Context, id, format string) ([]byte, error) {
	q := url.Values{}
	q.Set("format", format)
	return c.DoJSON(ctx, http.MethodGet, sessionPath(id, "/report")+"?"+q.Encode(), nil)
}

func sessionPath(id, suffix string) string {
	return "/v1/sessions/" + url.PathEscape(id) + suffix
}

func decodeSession(blob []byte) (Session, error) {
	var resp struct {
		SessionID  string                       `json:"session_id"`
		Outputs    toolkit.Outputs              `json:"outputs"`
		Assessment *assessment.AssessmentResult `json:"assessment"`
	}
	if err := json.Unmarshal(blob, &resp); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if strings.TrimSpace(resp.SessionID) == "" {
		return Session{}, fmt.Errorf("missing session_id in response")
	}
	return Session{ID: resp.SessionID, Outputs: resp.Outputs, Assessment: resp.Assessment}, nil
}
