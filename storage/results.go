package storage

import (
	"database/sql"
	"fmt"

	"androidagent/models"

	"github.com/google/uuid"
)

// ResultRecord is a persisted command result.
type ResultRecord struct {
	ID string `json:"id"`
	models.CommandResult
}

// ResultLog keeps the history of executed commands.
type ResultLog struct {
	db *sql.DB
}

func NewResultLog(db *sql.DB) *ResultLog {
	return &ResultLog{db: db}
}

// Record appends a result and returns its generated id.
func (l *ResultLog) Record(result models.CommandResult) (string, error) {
	id := uuid.NewString()
	_, err := l.db.Exec(
		`INSERT INTO command_results (id, command_type, success, message, timestamp) VALUES (?, ?, ?, ?, ?)`,
		id, result.CommandType, result.Success, result.Message, result.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("record result: %w", err)
	}
	return id, nil
}

// Recent returns up to limit results, newest first.
func (l *ResultLog) Recent(limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(
		`SELECT id, command_type, success, message, timestamp FROM command_results
		 ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	records := make([]ResultRecord, 0, limit)
	for rows.Next() {
		var r ResultRecord
		if err := rows.Scan(&r.ID, &r.CommandType, &r.Success, &r.Message, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
