package storage

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// GetReports returns matching reports, newest first. The channel set is
// compared order-insensitively after the query.
func (r *SQLRepository) GetReports(ctx context.Context, filter ports.ReportFilter) ([]domain.RunReport, error) {
	b := r.sb.Select("id", "created_at", "name", "collector_type", "status", "year", "month", "day", "channels", "meta").
		From("reports").
		OrderBy("created_at DESC", "id DESC")
	if filter.Name != "" {
		b = b.Where(sq.Eq{"name": filter.Name})
	}
	if filter.Scope != nil {
		b = b.Where(scopeEq("", *filter.Scope))
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}

	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reports query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.RunReport
	for rows.Next() {
		var (
			report               domain.RunReport
			createdAt, status    string
			channelsRaw, metaRaw string
		)
		if err := rows.Scan(&report.ID, &createdAt, &report.Name, &report.CollectorType, &status,
			&report.Scope.Year, &report.Scope.Month, &report.Scope.Day, &channelsRaw, &metaRaw); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if report.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(channelsRaw), &report.Channels); err != nil {
			return nil, fmt.Errorf("decode channels of report %s: %w", report.ID, err)
		}
		if report.Outcome, err = domain.DecodeOutcome(domain.ReportStatus(status), []byte(metaRaw)); err != nil {
			return nil, fmt.Errorf("report %s: %w", report.ID, err)
		}
		if filter.Channels != nil && !domain.SameChannels(report.Channels, filter.Channels) {
			continue
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return reports, nil
}

// SaveReport appends a report under a fresh time-ordered id.
func (r *SQLRepository) SaveReport(ctx context.Context, report domain.RunReport) (string, error) {
	if err := report.Validate(); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate report id: %w", err)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = r.now()
	}
	channels := report.Channels
	if channels == nil {
		channels = []string{}
	}
	channelsRaw, err := json.Marshal(channels)
	if err != nil {
		return "", fmt.Errorf("encode channels: %w", err)
	}
	meta, err := domain.EncodeOutcome(report.Outcome)
	if err != nil {
		return "", fmt.Errorf("encode outcome: %w", err)
	}
	name := report.Name
	if name == "" {
		name = domain.ReportName
	}

	stmt, args, err := r.sb.Insert("reports").
		Columns("id", "created_at", "name", "collector_type", "status", "year", "month", "day", "channels", "meta").
		Values(id.String(), formatTime(report.CreatedAt), name, report.CollectorType, string(report.Status()),
			report.Scope.Year, report.Scope.Month, report.Scope.Day, string(channelsRaw), string(meta)).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build report insert: %w", err)
	}
	if err := retryOnBusy(ctx, func() error {
		_, execErr := r.db.ExecContext(ctx, stmt, args...)
		return execErr
	}); err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	return id.String(), nil
}
