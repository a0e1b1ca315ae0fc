package database

import (
	"database/sql"
	"time"
)

const selectRecords = `
	SELECT id, timestamp, hook, job, action, path, object_type, status, error_message
	FROM removals
`

// GetRecent returns the N most recent removal attempts
func (d *HistoryDB) GetRecent(limit int) ([]Record, error) {
	return d.queryRecords(selectRecords+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetByHook returns removal attempts made by hook, newest first
func (d *HistoryDB) GetByHook(hook string, limit int) ([]Record, error) {
	return d.queryRecords(selectRecords+`
	WHERE hook = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, hook, limit)
}

// GetByStatus returns removal attempts with the given status, newest first
func (d *HistoryDB) GetByStatus(status string, limit int) ([]Record, error) {
	return d.queryRecords(selectRecords+`
	WHERE status = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, status, limit)
}

// Stats holds aggregated statistics
type Stats struct {
	TotalRemoved int
	TotalErrors  int
	ByHook       map[string]int
	ByJob        map[string]int
	StartDate    time.Time
	EndDate      time.Time
}

// GetStats returns removal statistics for the last days
func (d *HistoryDB) GetStats(days int) (*Stats, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	stats := &Stats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN status = ? THEN 1 END),
			COUNT(CASE WHEN status = ? THEN 1 END)
		FROM removals
		WHERE timestamp >= ?
	`, StatusRemoved, StatusError, since).Scan(&stats.TotalRemoved, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.ByHook, err = d.countBy("hook", since)
	if err != nil {
		return nil, err
	}
	stats.ByJob, err = d.countBy("job", since)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// countBy groups successful removals by column; column is never user input
func (d *HistoryDB) countBy(column string, since time.Time) (map[string]int, error) {
	rows, err := d.db.Query(`
	SELECT `+column+`, COUNT(*)
	FROM removals
	WHERE status = ? AND timestamp >= ?
	GROUP BY `+column, StatusRemoved, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// DeleteOldRecords removes records older than specified days
func (d *HistoryDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM removals WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryRecords executes a query and scans the rows into records
func (d *HistoryDB) queryRecords(query string, args ...interface{}) ([]Record, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var errMsg sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.Timestamp,
			&rec.Hook,
			&rec.Job,
			&rec.Action,
			&rec.Path,
			&rec.ObjectType,
			&rec.Status,
			&errMsg,
		); err != nil {
			return nil, err
		}
		rec.ErrorMessage = errMsg.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
