// Copyright 2025 Spec3 Chatbot Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package feedback records user feedback on chatbot answers. It supports
// append-only JSON-line file storage and SQLite storage. The chat contract
// itself stays stateless; feedback is an operational log on the side.
package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	StorageTypeFile   = "file"
	StorageTypeSQLite = "sqlite"

	RatingHelpful    = "helpful"
	RatingNotHelpful = "not_helpful"
)

// Record is one piece of feedback on a chat turn
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Rating    string    `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds storage configuration for the feedback store
type Config struct {
	StorageType string `json:"storage_type"`
	FilePath    string `json:"file_path"`
	DBPath      string `json:"db_path"`
}

// Store persists feedback records to the configured backend
type Store struct {
	config Config
	logger *zap.Logger
	db     *sql.DB
	mu     sync.Mutex
}

// NewStore creates a feedback store for the configured backend
func NewStore(config Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		config: config,
		logger: logger,
	}

	switch config.StorageType {
	case StorageTypeFile:
		if err := s.initFileStorage(); err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
	case StorageTypeSQLite:
		if err := s.initSQLiteStorage(); err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.StorageType)
	}

	return s, nil
}

func (s *Store) initFileStorage() error {
	dir := filepath.Dir(s.config.FilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create feedback directory: %w", err)
	}

	if _, err := os.Stat(s.config.FilePath); os.IsNotExist(err) {
		file, err := os.Create(s.config.FilePath)
		if err != nil {
			return fmt.Errorf("failed to create feedback file: %w", err)
		}
		_ = file.Close()
	}

	return nil
}

func (s *Store) initSQLiteStorage() error {
	dir := filepath.Dir(s.config.DBPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create feedback database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			rating TEXT NOT NULL,
			comment TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create feedback table: %w", err)
	}

	s.db = db
	return nil
}

// Save records one feedback entry. The ID and timestamp are assigned here.
func (s *Store) Save(record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Rating != RatingHelpful && record.Rating != RatingNotHelpful {
		return Record{}, fmt.Errorf("invalid rating: %s", record.Rating)
	}

	record.ID = uuid.New().String()
	record.Timestamp = time.Now().UTC()

	var err error
	switch s.config.StorageType {
	case StorageTypeFile:
		err = s.saveToFile(record)
	case StorageTypeSQLite:
		err = s.saveToSQLite(record)
	default:
		err = fmt.Errorf("unsupported storage type: %s", s.config.StorageType)
	}
	if err != nil {
		return Record{}, err
	}

	s.logger.Info("Feedback recorded",
		zap.String("id", record.ID),
		zap.String("rating", record.Rating),
		zap.String("session_id", record.SessionID))

	return record, nil
}

func (s *Store) saveToFile(record Record) error {
	file, err := os.OpenFile(s.config.FilePath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open feedback file: %w", err)
	}
	defer func() { _ = file.Close() }()

	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	if _, err := file.WriteString(string(jsonData) + "\n"); err != nil {
		return fmt.Errorf("failed to write feedback to file: %w", err)
	}

	return nil
}

func (s *Store) saveToSQLite(record Record) error {
	if s.db == nil {
		return fmt.Errorf("SQLite database not initialized")
	}

	insertSQL := `
		INSERT INTO feedback (id, session_id, message, response, rating, comment, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(insertSQL,
		record.ID,
		record.SessionID,
		record.Message,
		record.Response,
		record.Rating,
		record.Comment,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback into SQLite: %w", err)
	}

	return nil
}

// Recent retrieves the most recent feedback entries (SQLite only)
func (s *Store) Recent(limit int) ([]Record, error) {
	if s.config.StorageType != StorageTypeSQLite {
		return nil, fmt.Errorf("Recent only supported for SQLite storage")
	}
	if s.db == nil {
		return nil, fmt.Errorf("SQLite database not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, session_id, message, response, rating, comment, timestamp
		FROM feedback
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var record Record
		var sessionID, comment sql.NullString

		err := rows.Scan(
			&record.ID,
			&sessionID,
			&record.Message,
			&record.Response,
			&record.Rating,
			&comment,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}

		if sessionID.Valid {
			record.SessionID = sessionID.String
		}
		if comment.Valid {
			record.Comment = comment.String
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback rows: %w", err)
	}

	return records, nil
}

// Ping reports whether the storage backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	switch s.config.StorageType {
	case StorageTypeSQLite:
		if s.db == nil {
			return fmt.Errorf("SQLite database not initialized")
		}
		return s.db.PingContext(ctx)
	case StorageTypeFile:
		_, err := os.Stat(s.config.FilePath)
		return err
	default:
		return fmt.Errorf("unsupported storage type: %s", s.config.StorageType)
	}
}

// Close releases any open resources
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}

	return nil
}
