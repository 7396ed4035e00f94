package domain

import (
	"testing"
	"time"
)

func TestOutcomeRoundTripThroughStatus(t *testing.T) {
	t.Parallel()

	raw, err := EncodeOutcome(EscapedOutcome{RelatedReportID: "r-1", CacheWindowDays: 31, Count: 4})
	if err != nil {
		t.Fatalf("EncodeOutcome: %v", err)
	}

	outcome, err := DecodeOutcome(StatusEscaped, raw)
	if err != nil {
		t.Fatalf("DecodeOutcome: %v", err)
	}
	escaped, ok := outcome.(EscapedOutcome)
	if !ok {
		t.Fatalf("expected EscapedOutcome, got %T", outcome)
	}
	if escaped.RelatedReportID != "r-1" || escaped.Count != 4 {
		t.Fatalf("unexpected outcome: %+v", escaped)
	}

	if _, err := DecodeOutcome("bogus", raw); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestValidateRequiresRelatedReportForEscaped(t *testing.T) {
	t.Parallel()

	report := NewReport("collector.CollectArticles", Scope{Year: 2014}, []string{"guardian"}, time.Now(), EscapedOutcome{})
	if err := report.Validate(); err == nil {
		t.Fatal("expected validation error")
	}

	report.Outcome = DoneOutcome{Count: 1}
	if err := report.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status() != StatusDone || report.Count() != 1 || report.Name != ReportName {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSameChannelsIgnoresOrder(t *testing.T) {
	t.Parallel()

	if !SameChannels([]string{"guardian", "rss"}, []string{"rss", "guardian"}) {
		t.Fatal("expected order-insensitive match")
	}
	if SameChannels([]string{"guardian"}, []string{"guardian", "rss"}) {
		t.Fatal("expected subset not to match")
	}
}
