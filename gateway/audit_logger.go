// Copyright 2025 Warden
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

package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// AuditLogger appends immutable records of every authorization and
// execution decision. Writes are queued and batched off the request path;
// audit durability is best-effort relative to request success, so a failed
// audit write never turns a successful upstream call into a failed
// response.
type AuditLogger struct {
	db           *sql.DB
	batchWriter  *auditBatchWriter
	auditQueue   chan *AuditEntry
	wg           sync.WaitGroup
	shutdownChan chan struct{}
	closeOnce    sync.Once
}

// AuditEntry is one append-only audit row.
type AuditEntry struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	AgentName     string    `json:"agent_name"`
	TargetService string    `json:"target_service"`
	Action        string    `json:"action"`
	AuthMethod    string    `json:"auth_method"`
	AuthResult    string    `json:"auth_result"` // "success" or "failure"
	EventType     string    `json:"event_type"`
	TenantID      string    `json:"tenant_id,omitempty"`
	LatencyMs     int64     `json:"latency_ms"`
	ErrorCode     string    `json:"error_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// auditBatchWriter accumulates entries and writes them in one transaction.
type auditBatchWriter struct {
	db        *sql.DB
	batchSize int
	entries   []*AuditEntry
	mu        sync.Mutex
}

// NewAuditLogger creates an audit logger on the given database. A nil db
// yields a no-op logger that drains its queue without persisting; the
// gateway stays available even when the audit store is absent or degraded.
func NewAuditLogger(db *sql.DB) *AuditLogger {
	logger := &AuditLogger{
		db:           db,
		auditQueue:   make(chan *AuditEntry, 10000),
		shutdownChan: make(chan struct{}),
	}

	if db != nil {
		if err := createAuditTables(db); err != nil {
			log.Printf("Failed to create audit tables: %v", err)
		}
		logger.batchWriter = &auditBatchWriter{
			db:        db,
			batchSize: 100,
			entries:   make([]*AuditEntry, 0, 100),
		}
	}

	logger.wg.Add(1)
	go logger.processQueue()

	return logger
}

// Record enqueues one audit entry. It never blocks the caller and never
// returns an error; failures are logged server-side and swallowed.
func (l *AuditLogger) Record(entry *AuditEntry) {
	if entry.ID == "" {
		entry.ID = "audit_" + uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	select {
	case l.auditQueue <- entry:
	default:
		// Queue is full; drop the entry rather than block the request path.
		log.Printf("Audit queue full, dropping entry %s", entry.ID)
	}
}

// Shutdown flushes pending entries and stops the background worker.
func (l *AuditLogger) Shutdown() {
	l.closeOnce.Do(func() {
		close(l.shutdownChan)
	})
	l.wg.Wait()
}

// IsHealthy checks connectivity to the audit store.
func (l *AuditLogger) IsHealthy() bool {
	if l.db == nil {
		return true // No-op logger is always healthy
	}
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return l.db.PingContext(ctx) == nil
}

func (l *AuditLogger) processQueue() {
	defer l.wg.Done()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.auditQueue:
			if l.batchWriter != nil {
				l.batchWriter.add(entry)
			}
		case <-ticker.C:
			if l.batchWriter != nil {
				l.batchWriter.lockAndFlush()
			}
		case <-l.shutdownChan:
			// Drain anything still queued, then flush.
			for {
				select {
				case entry := <-l.auditQueue:
					if l.batchWriter != nil {
						l.batchWriter.add(entry)
					}
				default:
					if l.batchWriter != nil {
						l.batchWriter.lockAndFlush()
					}
					return
				}
			}
		}
	}
}

func (b *auditBatchWriter) add(entry *AuditEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
	if len(b.entries) >= b.batchSize {
		b.flush()
	}
}

func (b *auditBatchWriter) lockAndFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flush()
}

// flush writes buffered entries; the caller must hold b.mu.
func (b *auditBatchWriter) flush() {
	if len(b.entries) == 0 {
		return
	}
	if err := b.write(b.entries); err != nil {
		log.Printf("Failed to write audit batch: %v", err)
	}
	b.entries = b.entries[:0]
}

func (b *auditBatchWriter) write(entries []*AuditEntry) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO audit_logs (
			id, agent_id, agent_name, target_service, action,
			auth_method, auth_result, event_type, tenant_id,
			latency_ms, error_code, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		_, err = stmt.Exec(
			entry.ID, entry.AgentID, entry.AgentName, entry.TargetService,
			entry.Action, entry.AuthMethod, entry.AuthResult, entry.EventType,
			entry.TenantID, entry.LatencyMs, entry.ErrorCode, entry.CreatedAt,
		)
		if err != nil {
			log.Printf("Failed to insert audit entry %s: %v", entry.ID, err)
		}
	}

	return tx.Commit()
}

// AuditSearch filters audit log queries from the admin surface.
type AuditSearch struct {
	AgentID string
	Service string
	Limit   int
	Offset  int
}

// Search returns audit entries matching the criteria, newest first.
func (l *AuditLogger) Search(ctx context.Context, criteria AuditSearch) ([]*AuditEntry, error) {
	if l.db == nil {
		return []*AuditEntry{}, nil
	}

	query := `
		SELECT id, agent_id, agent_name, target_service, action,
			   auth_method, auth_result, event_type, tenant_id,
			   latency_ms, error_code, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if criteria.AgentID != "" {
		query += fmt.Sprintf(" AND agent_id = $%d", argIndex)
		args = append(args, criteria.AgentID)
		argIndex++
	}
	if criteria.Service != "" {
		query += fmt.Sprintf(" AND target_service = $%d", argIndex)
		args = append(args, criteria.Service)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	limit := criteria.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if criteria.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", criteria.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		var tenantID, errorCode sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.AgentID, &entry.AgentName, &entry.TargetService,
			&entry.Action, &entry.AuthMethod, &entry.AuthResult, &entry.EventType,
			&tenantID, &entry.LatencyMs, &errorCode, &entry.CreatedAt,
		)
		if err != nil {
			log.Printf("Error scanning audit log: %v", err)
			continue
		}
		entry.TenantID = tenantID.String
		entry.ErrorCode = errorCode.String
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// createAuditTables creates the audit tables if they don't exist
func createAuditTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id VARCHAR(255) PRIMARY KEY,
		agent_id VARCHAR(64) NOT NULL,
		agent_name VARCHAR(255),
		target_service VARCHAR(100),
		action VARCHAR(100),
		auth_method VARCHAR(50),
		auth_result VARCHAR(20) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		tenant_id VARCHAR(255),
		latency_ms BIGINT,
		error_code VARCHAR(50),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_agent_id ON audit_logs(agent_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_target_service ON audit_logs(target_service);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_event_type ON audit_logs(event_type);
	`

	_, err := db.Exec(query)
	return err
}
