package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"vibration-monitor/utils"
)

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	// Busy timeout in milliseconds
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &SQLiteClient{db: db}, nil
}

func createTables(db *sql.DB) error {
	createExamplesTable := `
    CREATE TABLE IF NOT EXISTS examples (
        category TEXT PRIMARY KEY,
        signal TEXT NOT NULL,
        sampling_rate INTEGER NOT NULL DEFAULT 12000,
        source TEXT,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );
    `

	if _, err := db.Exec(createExamplesTable); err != nil {
		return fmt.Errorf("error creating examples table: %w", err)
	}
	return nil
}

func (db *SQLiteClient) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// StoreExample inserts or replaces the example for its category.
func (db *SQLiteClient) StoreExample(ctx context.Context, example Example) error {
	if !IsKnownCategory(example.Category) {
		return fmt.Errorf("unknown example category %q", example.Category)
	}

	signalJSON, err := json.Marshal(example.Signal)
	if err != nil {
		return fmt.Errorf("error marshaling signal: %w", err)
	}
	if example.CreatedAt.IsZero() {
		example.CreatedAt = time.Now().UTC()
	}

	_, err = db.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO examples (category, signal, sampling_rate, source, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		example.Category,
		string(signalJSON),
		example.SamplingRate,
		example.Source,
		example.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error storing example: %w", err)
	}
	return nil
}

func (db *SQLiteClient) GetExample(ctx context.Context, category string) (Example, error) {
	row := db.db.QueryRowContext(ctx,
		"SELECT category, signal, sampling_rate, source, created_at FROM examples WHERE category = ?",
		category,
	)

	var ex Example
	var signalJSON string
	var source sql.NullString
	err := row.Scan(&ex.Category, &signalJSON, &ex.SamplingRate, &source, &ex.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Example{}, ErrNotFound
		}
		return Example{}, fmt.Errorf("failed to retrieve example: %w", err)
	}
	ex.Source = source.String

	if err := json.Unmarshal([]byte(signalJSON), &ex.Signal); err != nil {
		return Example{}, fmt.Errorf("error unmarshaling signal: %w", err)
	}
	return ex, nil
}

// ListCategories returns the categories that currently have an example.
func (db *SQLiteClient) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, "SELECT category FROM examples ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
