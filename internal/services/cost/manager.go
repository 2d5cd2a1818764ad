package cost

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// ActivityRecord is one generation call stored in the usage ledger.
type ActivityRecord struct {
	Timestamp    time.Time
	Command      string
	Provider     string
	Model        string
	TokensInput  int
	TokensOutput int
	CostUSD      float64
	DurationMs   int64
}

type BudgetStatus struct {
	IsExceeded   bool
	PercentUsed  float64
	TodayTotal   float64
	Estimated    float64
	Limit        float64
	IsWarning    bool
	WarningLevel int // 50, 75, 90
}

// ModelStats aggregates the ledger for one provider/model pair.
type ModelStats struct {
	Provider     string
	Model        string
	CallCount    int
	TokensInput  int
	TokensOutput int
	TotalCost    float64
}

// Manager keeps the usage ledger in a SQLite database. It is separate from
// the audit log, which is never read back.
type Manager struct {
	db          *sql.DB
	budgetDaily float64
	now         func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS activity (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	command TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	tokens_input INTEGER NOT NULL DEFAULT 0,
	tokens_output INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity(timestamp);
`

// DefaultDBPath is where the ledger lives unless configured otherwise.
func DefaultDBPath(homeDir string) string {
	return filepath.Join(homeDir, ".ai-commit", "usage.db")
}

// NewManager opens (and creates if needed) the ledger at dbPath.
func NewManager(dbPath string, budgetDaily float64) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("error creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return &Manager{
		db:          db,
		budgetDaily: budgetDaily,
		now:         time.Now,
	}, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// SaveActivity saves an activity record
func (m *Manager) SaveActivity(ctx context.Context, record ActivityRecord) error {
	slog.Debug("saving activity record",
		"command", record.Command,
		"provider", record.Provider,
		"model", record.Model,
		"tokens_input", record.TokensInput,
		"tokens_output", record.TokensOutput,
		"cost_usd", record.CostUSD)

	if record.Timestamp.IsZero() {
		record.Timestamp = m.now()
	}

	_, err := m.db.ExecContext(ctx,
		`INSERT INTO activity (timestamp, command, provider, model, tokens_input, tokens_output, cost_usd, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.UnixMilli(),
		record.Command,
		record.Provider,
		record.Model,
		record.TokensInput,
		record.TokensOutput,
		record.CostUSD,
		record.DurationMs,
	)
	if err != nil {
		slog.Error("failed to write activity record", "error", err)
		return fmt.Errorf("error saving activity: %w", err)
	}
	return nil
}

// CheckBudget checks whether spending estimatedCost more today would go over
// the daily budget. A budget of zero disables the check.
func (m *Manager) CheckBudget(ctx context.Context, estimatedCost float64) (*BudgetStatus, error) {
	slog.Debug("checking budget",
		"estimated_cost", estimatedCost,
		"budget_daily", m.budgetDaily)

	if m.budgetDaily <= 0 {
		return &BudgetStatus{}, nil
	}

	todayTotal, err := m.GetDailyTotal(ctx)
	if err != nil {
		return nil, err
	}

	percentUsed := (todayTotal / m.budgetDaily) * 100

	status := &BudgetStatus{
		IsExceeded:  todayTotal >= m.budgetDaily || todayTotal+estimatedCost > m.budgetDaily,
		PercentUsed: percentUsed,
		TodayTotal:  todayTotal,
		Estimated:   estimatedCost,
		Limit:       m.budgetDaily,
	}

	switch {
	case percentUsed >= 90:
		status.IsWarning = true
		status.WarningLevel = 90
	case percentUsed >= 75:
		status.IsWarning = true
		status.WarningLevel = 75
	case percentUsed >= 50:
		status.IsWarning = true
		status.WarningLevel = 50
	}

	slog.Info("budget check completed",
		"today_total", todayTotal,
		"percent_used", percentUsed,
		"is_exceeded", status.IsExceeded)

	return status, nil
}

// GetDailyTotal gets the total spent today, local time.
func (m *Manager) GetDailyTotal(ctx context.Context) (float64, error) {
	now := m.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return m.totalBetween(ctx, start, start.AddDate(0, 0, 1))
}

// GetMonthlyTotal gets the total spent this month, local time.
func (m *Manager) GetMonthlyTotal(ctx context.Context) (float64, error) {
	start := m.monthStart()
	return m.totalBetween(ctx, start, start.AddDate(0, 1, 0))
}

func (m *Manager) monthStart() time.Time {
	now := m.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func (m *Manager) totalBetween(ctx context.Context, from, to time.Time) (float64, error) {
	var total sql.NullFloat64
	err := m.db.QueryRowContext(ctx,
		`SELECT SUM(cost_usd) FROM activity WHERE timestamp >= ? AND timestamp < ?`,
		from.UnixMilli(), to.UnixMilli(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("error reading ledger totals: %w", err)
	}
	return RoundUSD(total.Float64), nil
}

// GetHistory returns the records since the given instant, oldest first.
func (m *Manager) GetHistory(ctx context.Context, since time.Time) ([]ActivityRecord, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT timestamp, command, provider, model, tokens_input, tokens_output, cost_usd, duration_ms
		 FROM activity WHERE timestamp >= ? ORDER BY timestamp, id`,
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]ActivityRecord, 0)
	for rows.Next() {
		var (
			r  ActivityRecord
			ts int64
		)
		if err := rows.Scan(&ts, &r.Command, &r.Provider, &r.Model, &r.TokensInput, &r.TokensOutput, &r.CostUSD, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("error reading history: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts).In(m.now().Location())
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetTodayHistory returns today's records, oldest first.
func (m *Manager) GetTodayHistory(ctx context.Context) ([]ActivityRecord, error) {
	now := m.now()
	return m.GetHistory(ctx, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))
}

// GetMonthlyBreakdown groups this month's records by provider and model,
// most expensive first.
func (m *Manager) GetMonthlyBreakdown(ctx context.Context) ([]ModelStats, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT provider, model, COUNT(*), SUM(tokens_input), SUM(tokens_output), SUM(cost_usd)
		 FROM activity WHERE timestamp >= ?
		 GROUP BY provider, model`,
		m.monthStart().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("error reading breakdown: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make([]ModelStats, 0)
	for rows.Next() {
		var s ModelStats
		if err := rows.Scan(&s.Provider, &s.Model, &s.CallCount, &s.TokensInput, &s.TokensOutput, &s.TotalCost); err != nil {
			return nil, fmt.Errorf("error reading breakdown: %w", err)
		}
		s.TotalCost = RoundUSD(s.TotalCost)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].TotalCost != stats[j].TotalCost {
			return stats[i].TotalCost > stats[j].TotalCost
		}
		return stats[i].Model < stats[j].Model
	})
	return stats, nil
}
