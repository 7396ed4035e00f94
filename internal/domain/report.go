package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// ReportName is the name every collection report is filed under.
const ReportName = "collector"

// ReportStatus is the terminal state of a collection run.
type ReportStatus string

const (
	StatusDone    ReportStatus = "done"
	StatusEscaped ReportStatus = "escaped"
	StatusFailed  ReportStatus = "failed"
)

// RunReport is the audit record of one collection run. ID is empty until the
// store assigns one.
type RunReport struct {
	ID            string
	CreatedAt     time.Time
	Name          string
	CollectorType string
	Scope         Scope
	Channels      []string
	Outcome       Outcome
}

// Outcome carries the status-specific details of a report.
type Outcome interface {
	Status() ReportStatus
}

// DoneOutcome describes a run that collected fresh articles.
type DoneOutcome struct {
	Count           int      `json:"count"`
	URLsFound       []string `json:"urls_found"`
	ForcedCollect   bool     `json:"forced_collect"`
	Inserted        []string `json:"inserted,omitempty"`
	Updated         []string `json:"updated,omitempty"`
	FailedChannels  []string `json:"failed_channels,omitempty"`
	SkippedArticles []string `json:"skipped_articles,omitempty"`
}

// EscapedOutcome describes a run served from a previous report.
type EscapedOutcome struct {
	RelatedReportID string `json:"related_report_id"`
	CacheWindowDays int    `json:"current_cache_days"`
	Count           int    `json:"count"`
}

// FailedOutcome describes a run that aborted.
type FailedOutcome struct {
	ErrorSummary string `json:"error_summary"`
}

func (DoneOutcome) Status() ReportStatus { return StatusDone }
func (EscapedOutcome) Status() ReportStatus { return StatusEscaped }
func (FailedOutcome) Status() ReportStatus { return StatusFailed }

// NewReport stamps a report for the given scope and channel set.
func NewReport(collectorType string, scope Scope, channels []string, createdAt time.Time, outcome Outcome) RunReport {
	return RunReport{
		CreatedAt:     createdAt,
		Name:          ReportName,
		CollectorType: collectorType,
		Scope:         scope,
		Channels:      slices.Clone(channels),
		Outcome:       outcome,
	}
}

// Status returns the outcome status, or an empty status for a report without outcome.
func (r RunReport) Status() ReportStatus {
	if r.Outcome == nil {
		return ""
	}
	return r.Outcome.Status()
}

// Count returns the number of articles the report accounts for.
func (r RunReport) Count() int {
	switch o := r.Outcome.(type) {
	case DoneOutcome:
		return o.Count
	case EscapedOutcome:
		return o.Count
	default:
		return 0
	}
}

// Validate enforces the per-status invariants before a report is stored.
func (r RunReport) Validate() error {
	if r.Outcome == nil {
		return fmt.Errorf("report has no outcome")
	}
	if escaped, ok := r.Outcome.(EscapedOutcome); ok && escaped.RelatedReportID == "" {
		return fmt.Errorf("escaped report must reference the report that justified the skip")
	}
	return nil
}

// SameChannels compares two channel sets ignoring order and duplicates.
func SameChannels(a, b []string) bool {
	left, right := uniqueSorted(a), uniqueSorted(b)
	return slices.Equal(left, right)
}

func uniqueSorted(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// EncodeOutcome serialises the outcome for persistence in a meta column.
func EncodeOutcome(o Outcome) ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o)
}

// DecodeOutcome restores an outcome using status as the discriminator.
func DecodeOutcome(status ReportStatus, raw []byte) (Outcome, error) {
	switch status {
	case StatusDone:
		var o DoneOutcome
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode done outcome: %w", err)
		}
		return o, nil
	case StatusEscaped:
		var o EscapedOutcome
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode escaped outcome: %w", err)
		}
		return o, nil
	case StatusFailed:
		var o FailedOutcome
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode failed outcome: %w", err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unknown report status %q", status)
	}
}
