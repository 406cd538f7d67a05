package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/acegen/internal/models"
	"github.com/desertthunder/acegen/internal/shared"
)

// CheckRepository implements models.Repository[*models.CheckRecord] for the
// availability check cache.
//
// One row is kept per infohash; refreshing a probe outcome updates the
// existing row instead of inserting history.
type CheckRepository struct {
	db *sql.DB
}

// NewCheckRepository creates a new CheckRepository with the given database connection
func NewCheckRepository(db *sql.DB) *CheckRepository {
	return &CheckRepository{db: db}
}

// Create inserts a new [models.CheckRecord] into the database with generated ID and sequence
func (r *CheckRepository) Create(record *models.CheckRecord) error {
	sequence, err := NextSequence(r.db, "checks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO checks (id, sequence, infohash, alive, detail, checked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		record.Infohash(),
		record.Alive(),
		record.Detail(),
		record.CheckedAt(),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert check record: %w", err)
	}

	return nil
}

// Get retrieves a check record by ID, excluding soft-deleted records
func (r *CheckRepository) Get(id string) (*models.CheckRecord, error) {
	query := `
		SELECT id, sequence, infohash, alive, detail, checked_at, created_at, updated_at, deleted_at
		FROM checks
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByInfohash retrieves the freshest check record for an infohash
func (r *CheckRepository) GetByInfohash(infohash string) (*models.CheckRecord, error) {
	query := `
		SELECT id, sequence, infohash, alive, detail, checked_at, created_at, updated_at, deleted_at
		FROM checks
		WHERE infohash = ? AND deleted_at IS NULL
		ORDER BY checked_at DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query, infohash))
}

// Update refreshes the probe outcome of an existing record
func (r *CheckRepository) Update(record *models.CheckRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE checks
		SET alive = ?, detail = ?, checked_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		record.Alive(),
		record.Detail(),
		record.CheckedAt(),
		now,
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update check record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("check record not found or already deleted: %s", record.ID())
	}

	return nil
}

// Delete soft-deletes a check record by ID
func (r *CheckRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE checks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete check record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("check record not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all check records matching the given criteria, excluding soft-deleted records
func (r *CheckRepository) List(criteria map[string]any) ([]*models.CheckRecord, error) {
	query := `
		SELECT id, sequence, infohash, alive, detail, checked_at, created_at, updated_at, deleted_at
		FROM checks
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if infohash, ok := criteria["infohash"].(string); ok && infohash != "" {
		query += " AND infohash = ?"
		args = append(args, infohash)
	}

	if alive, ok := criteria["alive"].(bool); ok {
		query += " AND alive = ?"
		args = append(args, alive)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query check records: %w", err)
	}
	defer rows.Close()

	var records []*models.CheckRecord
	for rows.Next() {
		record, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// DeleteOlderThan hard-deletes records whose probe outcome predates cutoff
// and returns how many rows were removed. Used by cache maintenance.
func (r *CheckRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM checks WHERE checked_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune check records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// CheckStats summarizes the state of the check cache.
type CheckStats struct {
	Total  int
	Alive  int
	Dead   int
	Newest time.Time
	Oldest time.Time
}

// Stats reports counts and the age range of cached results.
func (r *CheckRepository) Stats() (*CheckStats, error) {
	stats := &CheckStats{}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN alive THEN 1 ELSE 0 END), 0)
		FROM checks
		WHERE deleted_at IS NULL
	`
	if err := r.db.QueryRow(query).Scan(&stats.Total, &stats.Alive); err != nil {
		return nil, fmt.Errorf("failed to count check records: %w", err)
	}
	stats.Dead = stats.Total - stats.Alive

	if stats.Total > 0 {
		var newest, oldest sql.NullTime
		query = "SELECT MAX(checked_at), MIN(checked_at) FROM checks WHERE deleted_at IS NULL"
		if err := r.db.QueryRow(query).Scan(&newest, &oldest); err != nil {
			return nil, fmt.Errorf("failed to read check record age range: %w", err)
		}
		if newest.Valid {
			stats.Newest = newest.Time
		}
		if oldest.Valid {
			stats.Oldest = oldest.Time
		}
	}

	return stats, nil
}

// scanOne scans a single [sql.Row] into a [models.CheckRecord]
func (r *CheckRepository) scanOne(row *sql.Row) (*models.CheckRecord, error) {
	var (
		id        string
		sequence  int
		infohash  string
		alive     bool
		detail    string
		checkedAt time.Time
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &infohash, &alive, &detail, &checkedAt, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan check record: %w", err)
	}

	record := models.NewCheckRecord(sequence, infohash, alive, detail)
	record.SetID(id)
	record.SetCheckedAt(checkedAt)
	record.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		record.SetDeletedAt(&deletedAt.Time)
	}

	return record, nil
}

// scanRow scans a row from [sql.Rows] into a [models.CheckRecord]
func (r *CheckRepository) scanRow(rows *sql.Rows) (*models.CheckRecord, error) {
	var (
		id        string
		sequence  int
		infohash  string
		alive     bool
		detail    string
		checkedAt time.Time
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &infohash, &alive, &detail, &checkedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan check record: %w", err)
	}

	record := models.NewCheckRecord(sequence, infohash, alive, detail)
	record.SetID(id)
	record.SetCheckedAt(checkedAt)
	record.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		record.SetDeletedAt(&deletedAt.Time)
	}

	return record, nil
}
