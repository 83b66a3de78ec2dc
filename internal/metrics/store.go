package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"meal-planner/internal/database"
	"meal-planner/internal/mealsapi"

	"go.uber.org/zap"
)

// CallMetric records metadata for a single meals API call.
type CallMetric struct {
	Operation  string
	Method     string
	Path       string
	StatusCode int
	Outcome    string
	LatencyMS  int64
	Timestamp  time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ mealsapi.Observer = (*Store)(nil)

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("metrics"), now: time.Now}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m CallMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_calls (operation, method, path, status_code, outcome, latency_ms, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Operation, m.Method, m.Path, m.StatusCode, m.Outcome, m.LatencyMS, database.FormatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("failed to insert call metric: %w", err)
	}
	return nil
}

// ObserveCall records a finished meals API call. Failures to record are
// logged and otherwise ignored.
func (s *Store) ObserveCall(call mealsapi.Call) {
	if err := s.Record(context.Background(), MapCall(call, s.now())); err != nil {
		s.logger.Warn("failed to record call metric", zap.String("op", call.Op), zap.Error(err))
	}
}

// DailyUsage represents call totals for a single day.
type DailyUsage struct {
	Date         string
	Calls        int
	Failures     int
	AvgLatencyMS int64
}

// GetDailyUsage retrieves usage for the last N days, newest day first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := database.FormatTime(s.now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp) AS day,
		       COUNT(*),
		       SUM(CASE WHEN outcome = 'ok' THEN 0 ELSE 1 END),
		       CAST(AVG(latency_ms) AS INTEGER)
		FROM api_calls
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	results := []DailyUsage{}
	for rows.Next() {
		var (
			u   DailyUsage
			day sql.NullString
		)
		if err := rows.Scan(&day, &u.Calls, &u.Failures, &u.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		u.Date = "Unknown"
		if day.Valid {
			u.Date = day.String
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily usage: %w", err)
	}
	return results, nil
}

// Cleanup removes records older than the specified number of days and
// reports how many were removed.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(s.now().AddDate(0, 0, -olderThanDays))
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_calls WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up call metrics: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed call metrics: %w", err)
	}
	return n, nil
}

// MapCall converts a mealsapi.Call to a CallMetric.
func MapCall(call mealsapi.Call, at time.Time) CallMetric {
	return CallMetric{
		Operation:  call.Op,
		Method:     call.Method,
		Path:       call.Path,
		StatusCode: call.StatusCode,
		Outcome:    call.Outcome(),
		LatencyMS:  call.Latency.Milliseconds(),
		Timestamp:  at.UTC(),
	}
}
