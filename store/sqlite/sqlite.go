/*
Package sqlite provides a SQLite-backed implementation of calendar.Store.

PURPOSE:
  Persists recurring rules, calendar items and notifications. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  recurring_rules: Recurring obligations behind FIXED_COST items
  calendar_items:  Concrete date-anchored entries (user, holiday, occurrence)
  notifications:   User-facing records of mutations

UNIQUENESS:
  Idempotent materialization is enforced by the database, not by
  check-then-insert:
  - idx_unique_rule_occurrence: one occurrence per (user, rule, date)
  - idx_unique_holiday: one generated holiday per (user, date, category, title)
  InsertItemIfAbsent / InsertHolidayIfAbsent use INSERT OR IGNORE and report
  via RowsAffected whether a row was actually created, so two concurrent
  materializations of the same month converge on one row set.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - calendar/store.go: Interface definitions
  - calendar/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/calendar-engine/calendar"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339
)

// Store implements calendar.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Recurring rules (subscriptions behind FIXED_COST items)
	CREATE TABLE IF NOT EXISTS recurring_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		amount TEXT NOT NULL,
		frequency TEXT NOT NULL,
		day_of_month INTEGER NOT NULL,
		day_of_week INTEGER,
		month_of_year INTEGER,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_user_active
		ON recurring_rules(user_id, active);
	CREATE INDEX IF NOT EXISTS idx_rules_signature
		ON recurring_rules(user_id, title, amount, frequency);

	-- Calendar items
	CREATE TABLE IF NOT EXISTS calendar_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		importance TEXT NOT NULL,
		title TEXT NOT NULL,
		log TEXT NOT NULL DEFAULT '',
		done BOOLEAN NOT NULL DEFAULT FALSE,
		amount TEXT,
		source TEXT NOT NULL,
		rule_id INTEGER,
		notified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_user_date
		ON calendar_items(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_items_user_category_date
		ON calendar_items(user_id, category, date);
	CREATE INDEX IF NOT EXISTS idx_items_rule
		ON calendar_items(rule_id) WHERE rule_id IS NOT NULL;

	-- CRITICAL: At most one occurrence of a rule per day. This is what
	-- makes concurrent month materializations converge instead of racing.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_rule_occurrence
		ON calendar_items(user_id, rule_id, date)
		WHERE rule_id IS NOT NULL;

	-- CRITICAL: At most one generated holiday per (user, day, title).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_holiday
		ON calendar_items(user_id, date, category, title)
		WHERE source IN ('HOLIDAY_MAJOR', 'HOLIDAY_MINOR');

	-- Notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		importance TEXT NOT NULL,
		message TEXT NOT NULL,
		item_id INTEGER,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications(user_id, read);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ITEM STORE (calendar.ItemStore interface)
// =============================================================================

const itemColumns = `id, user_id, date, start_time, end_time, category, importance,
	title, log, done, amount, source, rule_id, notified, created_at, updated_at`

// SaveItem inserts a new item (ID 0) or updates an existing one.
func (s *Store) SaveItem(ctx context.Context, item *calendar.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveItemTx(ctx, s.db, item)
}

// SaveItems persists a batch atomically.
func (s *Store) SaveItems(ctx context.Context, items []*calendar.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := s.saveItemTx(ctx, tx, item); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) saveItemTx(ctx context.Context, db execer, item *calendar.Item) error {
	now := time.Now().UTC()
	item.UpdatedAt = now

	if item.ID == 0 {
		item.CreatedAt = now
		query := `
			INSERT INTO calendar_items
			(user_id, date, start_time, end_time, category, importance, title, log,
			 done, amount, source, rule_id, notified, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		res, err := db.ExecContext(ctx, query,
			item.UserID, item.Date.String(), item.StartTime, item.EndTime,
			item.Category, item.Importance, item.Title, item.Log,
			item.Done, nullDecimal(item.Amount), item.Source, nullRuleID(item.RuleID),
			item.Notified, now.Format(tsLayout), now.Format(tsLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read item id: %w", err)
		}
		item.ID = calendar.ItemID(id)
		return nil
	}

	query := `
		UPDATE calendar_items SET
			date = ?, start_time = ?, end_time = ?, category = ?, importance = ?,
			title = ?, log = ?, done = ?, amount = ?, source = ?, rule_id = ?,
			notified = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	_, err := db.ExecContext(ctx, query,
		item.Date.String(), item.StartTime, item.EndTime, item.Category, item.Importance,
		item.Title, item.Log, item.Done, nullDecimal(item.Amount), item.Source,
		nullRuleID(item.RuleID), item.Notified, now.Format(tsLayout),
		item.ID, item.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// GetItem returns the item, or nil if it does not exist for this user.
func (s *Store) GetItem(ctx context.Context, userID calendar.UserID, id calendar.ItemID) (*calendar.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + itemColumns + ` FROM calendar_items WHERE id = ? AND user_id = ?`
	items, err := s.queryItems(ctx, query, id, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (s *Store) FindItemsByDay(ctx context.Context, userID calendar.UserID, date calendar.Date) ([]calendar.Item, error) {
	return s.FindItemsByRange(ctx, userID, date, date)
}

func (s *Store) FindItemsByRange(ctx context.Context, userID calendar.UserID, from, to calendar.Date) ([]calendar.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + itemColumns + `
		FROM calendar_items
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, start_time ASC, id ASC
	`
	return s.queryItems(ctx, query, userID, from.String(), to.String())
}

func (s *Store) FindItemsByRangeAndCategory(ctx context.Context, userID calendar.UserID, from, to calendar.Date, cat calendar.Category) ([]calendar.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + itemColumns + `
		FROM calendar_items
		WHERE user_id = ? AND category = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, start_time ASC, id ASC
	`
	return s.queryItems(ctx, query, userID, cat, from.String(), to.String())
}

func (s *Store) FindItemsByRule(ctx context.Context, userID calendar.UserID, ruleID calendar.RuleID, from, to calendar.Date) ([]calendar.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + itemColumns + `
		FROM calendar_items
		WHERE user_id = ? AND rule_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, start_time ASC, id ASC
	`
	return s.queryItems(ctx, query, userID, ruleID, from.String(), to.String())
}

// InsertItemIfAbsent inserts a rule occurrence; the unique index on
// (user_id, rule_id, date) turns a duplicate into a no-op.
func (s *Store) InsertItemIfAbsent(ctx context.Context, item *calendar.Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertIgnore(ctx, item)
}

// InsertHolidayIfAbsent inserts a generated holiday; the unique index on
// (user_id, date, category, title) turns a duplicate into a no-op.
func (s *Store) InsertHolidayIfAbsent(ctx context.Context, item *calendar.Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertIgnore(ctx, item)
}

func (s *Store) insertIgnore(ctx context.Context, item *calendar.Item) (bool, error) {
	now := time.Now().UTC()
	query := `
		INSERT OR IGNORE INTO calendar_items
		(user_id, date, start_time, end_time, category, importance, title, log,
		 done, amount, source, rule_id, notified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		item.UserID, item.Date.String(), item.StartTime, item.EndTime,
		item.Category, item.Importance, item.Title, item.Log,
		item.Done, nullDecimal(item.Amount), item.Source, nullRuleID(item.RuleID),
		item.Notified, now.Format(tsLayout), now.Format(tsLayout),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to read item id: %w", err)
	}
	item.ID = calendar.ItemID(id)
	item.CreatedAt = now
	item.UpdatedAt = now
	return true, nil
}

func (s *Store) FindItemsBySource(ctx context.Context, sources ...calendar.Source) ([]calendar.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(sources) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sources)), ", ")
	query := `
		SELECT ` + itemColumns + `
		FROM calendar_items
		WHERE source IN (` + placeholders + `)
		ORDER BY user_id ASC, date ASC, id ASC
	`
	args := make([]any, len(sources))
	for i, src := range sources {
		args[i] = src
	}
	return s.queryItems(ctx, query, args...)
}

func (s *Store) FindUnnotifiedByDay(ctx context.Context, date calendar.Date, cat calendar.Category) ([]calendar.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + itemColumns + `
		FROM calendar_items
		WHERE date = ? AND category = ? AND notified = FALSE
		ORDER BY user_id ASC, id ASC
	`
	return s.queryItems(ctx, query, date.String(), cat)
}

func (s *Store) DeleteItem(ctx context.Context, id calendar.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM calendar_items WHERE id = ?", id)
	return err
}

func (s *Store) DeleteItems(ctx context.Context, ids []calendar.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM calendar_items WHERE id IN ("+placeholders+")", args...)
	return err
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]calendar.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []calendar.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(rows *sql.Rows) (calendar.Item, error) {
	var (
		item      calendar.Item
		date      string
		amount    sql.NullString
		ruleID    sql.NullInt64
		createdAt string
		updatedAt string
	)

	err := rows.Scan(
		&item.ID, &item.UserID, &date, &item.StartTime, &item.EndTime,
		&item.Category, &item.Importance, &item.Title, &item.Log, &item.Done,
		&amount, &item.Source, &ruleID, &item.Notified, &createdAt, &updatedAt,
	)
	if err != nil {
		return item, fmt.Errorf("failed to scan item: %w", err)
	}

	item.Date, err = calendar.ParseDate(date)
	if err != nil {
		return item, fmt.Errorf("failed to parse item date: %w", err)
	}
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return item, fmt.Errorf("failed to parse item amount: %w", err)
		}
		item.Amount = &d
	}
	if ruleID.Valid {
		rid := calendar.RuleID(ruleID.Int64)
		item.RuleID = &rid
	}
	item.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	item.UpdatedAt, _ = time.Parse(tsLayout, updatedAt)
	return item, nil
}

// =============================================================================
// RULE STORE (calendar.RuleStore interface)
// =============================================================================

const ruleColumns = `id, user_id, title, amount, frequency, day_of_month,
	day_of_week, month_of_year, active, created_at`

func (s *Store) SaveRule(ctx context.Context, rule *calendar.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == 0 {
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = time.Now().UTC()
		}
		query := `
			INSERT INTO recurring_rules
			(user_id, title, amount, frequency, day_of_month, day_of_week, month_of_year, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		res, err := s.db.ExecContext(ctx, query,
			rule.UserID, rule.Title, rule.Amount.String(), rule.Frequency,
			rule.DayOfMonth, nullInt(rule.DayOfWeek), nullInt(rule.MonthOfYear),
			rule.Active, rule.CreatedAt.Format(tsLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to insert rule: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read rule id: %w", err)
		}
		rule.ID = calendar.RuleID(id)
		return nil
	}

	query := `
		UPDATE recurring_rules SET
			title = ?, amount = ?, frequency = ?, day_of_month = ?,
			day_of_week = ?, month_of_year = ?, active = ?
		WHERE id = ? AND user_id = ?
	`
	_, err := s.db.ExecContext(ctx, query,
		rule.Title, rule.Amount.String(), rule.Frequency, rule.DayOfMonth,
		nullInt(rule.DayOfWeek), nullInt(rule.MonthOfYear), rule.Active,
		rule.ID, rule.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, id calendar.RuleID) (*calendar.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, err := s.queryRules(ctx, `SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return &rules[0], nil
}

func (s *Store) FindActiveRules(ctx context.Context, userID calendar.UserID) ([]calendar.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + ruleColumns + `
		FROM recurring_rules
		WHERE user_id = ? AND active = TRUE
		ORDER BY created_at ASC, id ASC
	`
	return s.queryRules(ctx, query, userID)
}

// FindRulesBySignature narrows candidates in SQL and finishes the match in
// Go, since the anchors' null handling is part of the Signature.
func (s *Store) FindRulesBySignature(ctx context.Context, sig calendar.Signature) ([]calendar.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + ruleColumns + `
		FROM recurring_rules
		WHERE user_id = ? AND title = ? AND amount = ? AND frequency = ?
		ORDER BY created_at ASC, id ASC
	`
	candidates, err := s.queryRules(ctx, query, sig.UserID, sig.Title, sig.Amount, sig.Frequency)
	if err != nil {
		return nil, err
	}
	var rules []calendar.Rule
	for _, r := range candidates {
		if r.Signature() == sig {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

func (s *Store) AllRules(ctx context.Context) ([]calendar.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + ruleColumns + ` FROM recurring_rules ORDER BY created_at ASC, id ASC`
	return s.queryRules(ctx, query)
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]calendar.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []calendar.Rule
	for rows.Next() {
		var (
			rule        calendar.Rule
			amount      string
			dayOfWeek   sql.NullInt64
			monthOfYear sql.NullInt64
			createdAt   string
		)
		if err := rows.Scan(
			&rule.ID, &rule.UserID, &rule.Title, &amount, &rule.Frequency,
			&rule.DayOfMonth, &dayOfWeek, &monthOfYear, &rule.Active, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rule amount: %w", err)
		}
		if dayOfWeek.Valid {
			v := int(dayOfWeek.Int64)
			rule.DayOfWeek = &v
		}
		if monthOfYear.Valid {
			v := int(monthOfYear.Int64)
			rule.MonthOfYear = &v
		}
		rule.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// =============================================================================
// NOTIFICATION STORE (calendar.NotificationStore interface)
// =============================================================================

func (s *Store) SaveNotification(ctx context.Context, n *calendar.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == 0 {
		n.CreatedAt = time.Now().UTC()
		query := `
			INSERT INTO notifications (user_id, type, importance, message, item_id, read, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		res, err := s.db.ExecContext(ctx, query,
			n.UserID, n.Type, n.Importance, n.Message, nullItemID(n.ItemID),
			n.Read, n.CreatedAt.Format(tsLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read notification id: %w", err)
		}
		n.ID = calendar.NotificationID(id)
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = ? WHERE id = ? AND user_id = ?",
		n.Read, n.ID, n.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, userID calendar.UserID, id calendar.NotificationID) (*calendar.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, type, importance, message, item_id, read, created_at
		FROM notifications WHERE id = ? AND user_id = ?
	`
	notifications, err := s.queryNotifications(ctx, query, id, userID)
	if err != nil {
		return nil, err
	}
	if len(notifications) == 0 {
		return nil, nil
	}
	return &notifications[0], nil
}

func (s *Store) FindNotifications(ctx context.Context, userID calendar.UserID, unreadOnly bool) ([]calendar.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, type, importance, message, item_id, read, created_at
		FROM notifications
		WHERE user_id = ?
	`
	args := []any{userID}
	if unreadOnly {
		query += " AND read = FALSE"
	}
	query += " ORDER BY created_at DESC, id DESC"
	return s.queryNotifications(ctx, query, args...)
}

func (s *Store) queryNotifications(ctx context.Context, query string, args ...any) ([]calendar.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []calendar.Notification
	for rows.Next() {
		var (
			n         calendar.Notification
			itemID    sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Importance, &n.Message, &itemID, &n.Read, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if itemID.Valid {
			id := calendar.ItemID(itemID.Int64)
			n.ItemID = &id
		}
		n.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"calendar_items", "recurring_rules", "notifications"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullRuleID(id *calendar.RuleID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func nullItemID(id *calendar.ItemID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
