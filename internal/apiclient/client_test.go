package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/httpapi"
	"github.com/joelkehle/gtm-toolkit/internal/scenario"
)

var testLaunch = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	now := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	cat := catalog.Default()
	sessions := httpapi.NewSessions(cat, httpapi.SessionConfig{Clock: func() time.Time { return now }})
	srv := httptest.NewServer(httpapi.NewServer(httpapi.Options{Catalog: cat, Sessions: sessions}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestSessionLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	industry := "fintech"
	sess, err := c.CreateSession(ctx, testLaunch, &scenario.Partial{Industry: &industry})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.ID == "" || sess.Outputs.Scenario.Industry != "fintech" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if !sess.Outputs.Plan.LaunchStart.Equal(testLaunch) {
		t.Fatalf("expected launch %s, got %s", testLaunch, sess.Outputs.Plan.LaunchStart)
	}

	budget := 0.0
	out, err := c.UpdateScenario(ctx, sess.ID, scenario.Partial{BudgetMonthly: &budget})
	if err != nil {
		t.Fatalf("update scenario: %v", err)
	}
	if out.Metrics.CAC.Defined || out.Metrics.CAC.Reason == "" {
		t.Fatalf("expected undefined cac at zero budget, got %+v", out.Metrics.CAC)
	}
	if out.Scenario.Industry != "fintech" {
		t.Fatal("partial update should keep earlier fields")
	}

	res, err := c.Assess(ctx, sess.ID, map[string]string{})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if res.Answered != 0 || len(res.Recommendations) == 0 {
		t.Fatalf("unexpected assessment %+v", res)
	}
	got, err := c.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Assessment == nil || got.Outputs.Scenario.BudgetMonthly != 0 {
		t.Fatalf("session state not kept: %+v", got)
	}

	md, err := c.Report(ctx, sess.ID, "md")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(string(md), "not yet calculable") {
		t.Fatalf("report should mark undefined metrics:\n%s", md)
	}

	if err := c.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = c.GetSession(ctx, sess.ID)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Fatalf("expected not_found after delete, got %v", err)
	}
}

func TestTimelineEdits(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	sess, err := c.CreateSession(ctx, testLaunch, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	betaStart := testLaunch.AddDate(0, 0, 70)
	plan, err := c.ShiftPhase(ctx, sess.ID, "beta_launch", betaStart)
	if err != nil {
		t.Fatalf("shift: %v", err)
	}
	beta, ok := plan.Milestone("beta_launch")
	if !ok || !beta.Pinned || !beta.Start.Equal(betaStart) {
		t.Fatalf("expected pinned beta at %s, got %+v", betaStart, beta)
	}

	plan, err = c.UnpinPhase(ctx, sess.ID, "beta_launch")
	if err != nil {
		t.Fatalf("unpin: %v", err)
	}
	if beta, _ := plan.Milestone("beta_launch"); beta.Pinned {
		t.Fatal("beta should no longer be pinned")
	}

	_, err = c.MovePhase(ctx, sess.ID, "channel_setup", 0)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict || apiErr.Code != "rejected" {
		t.Fatalf("expected rejected move, got %v", err)
	}
	if apiErr.Plan == nil || len(apiErr.Plan.Milestones) != len(plan.Milestones) {
		t.Fatalf("rejection should carry the retained plan, got %+v", apiErr.Plan)
	}

	next := testLaunch.AddDate(0, 0, 7)
	plan, err = c.SetLaunchStart(ctx, sess.ID, next)
	if err != nil {
		t.Fatalf("set launch: %v", err)
	}
	if !plan.LaunchStart.Equal(next) || !plan.Milestones[0].Start.Equal(next) {
		t.Fatalf("unexpected plan after launch change %+v", plan)
	}
}

func TestValidationErrorCarriesFields(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	sess, err := c.CreateSession(ctx, time.Time{}, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	complexity := 1.5
	_, err = c.UpdateScenario(ctx, sess.ID, scenario.Partial{MarketComplexity: &complexity})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "validation" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != scenario.FieldMarketComplexity {
		t.Fatalf("unexpected fields %+v", apiErr.Fields)
	}
}

func TestDecodeErrorWithoutEnvelope(t *testing.T) {
	err := decodeError(http.StatusBadGateway, []byte("upstream down\n"))
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "" || apiErr.Message != "upstream down" {
		t.Fatalf("unexpected error %+v", err)
	}
	if !strings.Contains(apiErr.Error(), "status=502") {
		t.Fatalf("unexpected message %q", apiErr.Error())
	}
}

func TestEmptySlicesReachTheServer(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	sess, err := c.CreateSession(ctx, testLaunch, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	_, err = c.UpdateScenario(ctx, sess.ID, scenario.Partial{ChannelsSelected: []string{}})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "validation" {
		t.Fatalf("expected empty channels to be rejected, got %v", err)
	}
	if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != scenario.FieldChannelsSelected {
		t.Fatalf("unexpected fields %+v", apiErr.Fields)
	}
	got, err := c.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Outputs.Revision != 0 {
		t.Fatalf("rejected update should not commit, revision=%d", got.Outputs.Revision)
	}

	out, err := c.UpdateScenario(ctx, sess.ID, scenario.Partial{DesiredOutcomes: []string{"market_expansion"}})
	if err != nil {
		t.Fatalf("set outcomes: %v", err)
	}
	if len(out.Scenario.DesiredOutcomes) != 1 {
		t.Fatalf("expected one outcome, got %v", out.Scenario.DesiredOutcomes)
	}
	out, err = c.UpdateScenario(ctx, sess.ID, scenario.Partial{DesiredOutcomes: []string{}})
	if err != nil {
		t.Fatalf("clear outcomes: %v", err)
	}
	if len(out.Scenario.DesiredOutcomes) != 0 || len(out.Scenario.ChannelsSelected) == 0 {
		t.Fatalf("expected outcomes cleared and channels kept, got %+v", out.Scenario)
	}
}
