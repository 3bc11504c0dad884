// Package history persists one record per completed analysis and serves the
// dashboard aggregations over it. Two backends share the same SQL shape:
// SQLite for single-node deployments and MySQL for shared ones.
package history

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

// sqlStore holds the queries shared by both backends. Timestamps are stored
// as RFC 3339 UTC strings so cutoff comparisons work identically on SQLite
// and MySQL.
type sqlStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Add inserts one scan record.
func (s *sqlStore) Add(ctx context.Context, record *core.ScanRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_history (
			id, scanned_at, sender, subject, body_length, link_count,
			header_score, domain_score, body_score, intent_score,
			adaptive_score, link_score, final_score, verdict
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.ScannedAt.UTC().Format(time.RFC3339),
		record.Sender,
		record.Subject,
		record.BodyLength,
		record.LinkCount,
		record.HeaderScore,
		record.DomainScore,
		record.BodyScore,
		record.IntentScore,
		record.AdaptiveScore,
		record.LinkScore,
		record.FinalScore,
		string(record.Verdict),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	return nil
}

// Stats aggregates the scans of the last days into the dashboard view.
func (s *sqlStore) Stats(ctx context.Context, days int) (*core.DashboardStats, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	records, err := s.queryRecords(ctx, `
		SELECT id, scanned_at, sender, subject, body_length, link_count,
			header_score, domain_score, body_score, intent_score,
			adaptive_score, link_score, final_score, verdict
		FROM scan_history
		WHERE scanned_at >= ?
		ORDER BY scanned_at DESC
	`, cutoff)
	if err != nil {
		return nil, err
	}

	return buildStats(records), nil
}

// ExportCSV renders the full history as CSV, newest scan first.
func (s *sqlStore) ExportCSV(ctx context.Context) (string, error) {
	records, err := s.allRecords(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{
		"id", "timestamp", "sender", "subject", "body_length", "links_count",
		"header_score", "domain_score", "body_score", "bert_score",
		"feedback_score", "link_score", "final_score", "verdict",
	}
	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.ID,
			record.ScannedAt.Format(time.RFC3339),
			record.Sender,
			record.Subject,
			strconv.Itoa(record.BodyLength),
			strconv.Itoa(record.LinkCount),
			formatScore(record.HeaderScore),
			formatScore(record.DomainScore),
			formatScore(record.BodyScore),
			formatScore(record.IntentScore),
			formatScore(record.AdaptiveScore),
			formatScore(record.LinkScore),
			formatScore(record.FinalScore),
			string(record.Verdict),
		}
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.String(), nil
}

// ExportJSON renders the full history as a JSON array, newest scan first.
func (s *sqlStore) ExportJSON(ctx context.Context) ([]byte, error) {
	records, err := s.allRecords(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []core.ScanRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan history: %w", err)
	}
	return data, nil
}

func (s *sqlStore) allRecords(ctx context.Context) ([]core.ScanRecord, error) {
	return s.queryRecords(ctx, `
		SELECT id, scanned_at, sender, subject, body_length, link_count,
			header_score, domain_score, body_score, intent_score,
			adaptive_score, link_score, final_score, verdict
		FROM scan_history
		ORDER BY scanned_at DESC
	`)
}

func (s *sqlStore) queryRecords(ctx context.Context, query string, args ...any) ([]core.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var records []core.ScanRecord
	for rows.Next() {
		var record core.ScanRecord
		var scannedAt, verdict string
		if err := rows.Scan(
			&record.ID,
			&scannedAt,
			&record.Sender,
			&record.Subject,
			&record.BodyLength,
			&record.LinkCount,
			&record.HeaderScore,
			&record.DomainScore,
			&record.BodyScore,
			&record.IntentScore,
			&record.AdaptiveScore,
			&record.LinkScore,
			&record.FinalScore,
			&verdict,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339, scannedAt)
		if err != nil {
			s.logger.Warn("Skipping history row with bad timestamp",
				zap.String("id", record.ID), zap.Error(err))
			continue
		}
		record.ScannedAt = ts
		record.Verdict = core.Verdict(verdict)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan history: %w", err)
	}
	return records, nil
}

func (s *sqlStore) close() error {
	return s.db.Close()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
