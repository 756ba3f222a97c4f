package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ademuri/watch-log-tools/internal/ratings"
	"github.com/ademuri/watch-log-tools/internal/store"
)

func TestReportDue(t *testing.T) {
	march15 := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	march5 := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sent time.Time
		now  time.Time
		want bool
	}{
		{"never sent", time.Time{}, march15, true},
		{"sent this month", time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC), march15, false},
		{"sent last month, run day passed", time.Date(2024, time.February, 12, 0, 0, 0, 0, time.UTC), march15, true},
		{"sent for last month, run day not reached", time.Date(2024, time.February, 12, 0, 0, 0, 0, time.UTC), march5, false},
		{"missed last month", time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC), march5, true},
	}
	for _, tt := range tests {
		r := store.Report{User: "alice", Name: "monthly", RunDay: 10, Sent: tt.sent}
		if got := reportDue(r, tt.now); got != tt.want {
			t.Errorf("%s: reportDue() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPreviousMonth(t *testing.T) {
	start, end := previousMonth(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC))
	if got := start.Format("2006-01-02"); got != "2023-12-01" {
		t.Errorf("start = %s, want 2023-12-01", got)
	}
	if got := end.Format("2006-01-02"); got != "2024-01-01" {
		t.Errorf("end = %s, want 2024-01-01", got)
	}
}

func TestGenerateEmailContent(t *testing.T) {
	oct := ratings.NewDate(2023, time.October, 31)
	viewings := []ratings.Viewing{
		{ID: "1", TargetID: "694", RaterID: "alice", WatchedOn: oct, Ratings: map[ratings.Dimension]float64{ratings.Overall: 9}},
		{ID: "2", TargetID: "11", RaterID: "bob", WatchedOn: oct, Ratings: map[ratings.Dimension]float64{ratings.Overall: 1}},
		{ID: "3", TargetID: "11", RaterID: "bob", WatchedOn: oct, Ratings: map[ratings.Dimension]float64{ratings.Gore: -1}},
	}
	catalog := ratings.MapCatalog{
		"694": {Title: "The Shining", Year: 1980, Kind: ratings.KindMovie},
		"11":  {Title: "Tom & Jerry", Year: 2021, Kind: ratings.KindMovie},
	}
	config := SendEmailConfig{
		ReportName: "Spooky",
		Sets:       []string{"movies"},
		By:         "overall",
		Start:      time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC),
	}
	report, err := buildStatsReport(viewings, catalog, StatsConfig{Sets: config.Sets, By: config.By})
	if err != nil {
		t.Fatalf("buildStatsReport() error: %v", err)
	}

	subject, body := generateEmailContent(config, report)
	if want := "Viewing report 2023-10-01 to 2023-11-01: Spooky"; subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
	for _, want := range []string{"<h2>Movies by Overall Scare</h2>", "The Shining", "Tom &amp; Jerry", "2 viewings counted, 1 skipped"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "The Shining") > strings.Index(body, "Tom &amp; Jerry") {
		t.Errorf("body ranks Tom & Jerry above The Shining:\n%s", body)
	}

	text := plainText(report)
	if !strings.Contains(text, "Tom & Jerry") {
		t.Errorf("plain text body missing unescaped title:\n%s", text)
	}
}

func TestAddListDeleteReports(t *testing.T) {
	_, dbPath := createTestDb(t)
	ctx := context.Background()

	r := store.Report{User: "alice", Name: "monthly", Email: "alice@example.com", RunDay: 3, Dimension: "dread", Limit: 5}
	if err := addReport(ctx, dbPath, r, []string{"movies", "episodes"}); err != nil {
		t.Fatalf("addReport() error: %v", err)
	}

	invalid := []struct {
		r    store.Report
		sets []string
	}{
		{store.Report{User: "alice", Name: "x", Email: "a@example.com", RunDay: 0}, []string{"movies"}},
		{store.Report{User: "alice", Name: "x", Email: "a@example.com", RunDay: 32}, []string{"movies"}},
		{store.Report{User: "alice", Name: "x", RunDay: 3}, []string{"movies"}},
		{store.Report{User: "alice", Name: "x", Email: "a@example.com", RunDay: 3}, []string{"podcasts"}},
		{store.Report{User: "alice", Name: "x", Email: "a@example.com", RunDay: 3, Dimension: "spice"}, []string{"movies"}},
	}
	for _, tt := range invalid {
		if err := addReport(ctx, dbPath, tt.r, tt.sets); err == nil {
			t.Errorf("addReport(%+v, %v) succeeded, want error", tt.r, tt.sets)
		}
	}

	out := new(bytes.Buffer)
	if err := listReports(ctx, dbPath, "alice", out); err != nil {
		t.Fatalf("listReports() error: %v", err)
	}
	for _, want := range []string{"monthly", "alice@example.com", "movies,episodes", "dread"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("listReports() output missing %q:\n%s", want, out.String())
		}
	}

	if err := deleteReport(ctx, dbPath, "alice", "weekly", "alice@example.com"); err == nil {
		t.Error("deleteReport() of a missing report succeeded")
	}
	if err := deleteReport(ctx, dbPath, "alice", "monthly", "alice@example.com"); err != nil {
		t.Errorf("deleteReport() error: %v", err)
	}
}

func TestSendReportsDryRun(t *testing.T) {
	db, dbPath := createTestDb(t)
	ctx := context.Background()
	addTestTarget(t, db, "694", ratings.KindMovie, "The Shining", 1980)
	addTestViewing(t, db, "694", "alice", ratings.NewDate(2024, time.February, 10), map[ratings.Dimension]float64{ratings.Overall: 9})

	r := store.Report{User: "alice", Name: "monthly", Email: "alice@example.com", RunDay: 1, Limit: 5}
	if err := addReport(ctx, dbPath, r, []string{"all"}); err != nil {
		t.Fatalf("addReport() error: %v", err)
	}

	now := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	config := SendReportsConfig{DbPath: dbPath, From: "watchlog@example.com", DryRun: true}
	if err := sendReports(ctx, db, config, now); err != nil {
		t.Fatalf("sendReports() error: %v", err)
	}

	reports, err := db.ListReports(ctx, "alice")
	if err != nil {
		t.Fatalf("ListReports() error: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("ListReports() returned %d reports, want 1", len(reports))
	}
	if !reports[0].Sent.IsZero() {
		t.Errorf("dry run marked the report sent at %v", reports[0].Sent)
	}
}

func TestSendEmailRequiresAPIKey(t *testing.T) {
	db, _ := createTestDb(t)
	config := SendEmailConfig{From: "watchlog@example.com", To: "alice@example.com"}
	if err := sendEmail(context.Background(), db, config); err == nil {
		t.Error("sendEmail() without an API key succeeded")
	}
}
