// Package sqlite persists all cards of one user as a single JSON document in
// an embedded SQLite file. Every mutation rewrites the document inside one
// transaction, so the file always holds either the old or the new state.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"persona-card-service/internal/domain"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const (
	documentKey     = "persona3d.session.v2"
	documentVersion = "v2"
)

type document struct {
	Version   string                `json:"version"`
	UpdatedAt time.Time             `json:"updated_at"`
	Targets   []domain.Target       `json:"targets"`
	Records   []domain.AnswerRecord `json:"records"`
}

// CardStore implements app.CardStore on one SQLite row.
type CardStore struct {
	db *sql.DB
	// mu orders read-modify-write cycles within this process.
	mu sync.Mutex
}

// Open creates or opens the database file at path.
func Open(ctx context.Context, path string) (*CardStore, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`CREATE TABLE IF NOT EXISTS documents (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &CardStore{db: db}, nil
}

func (s *CardStore) Close() error {
	return s.db.Close()
}

func (s *CardStore) ListByTarget(ctx context.Context, targetID string) ([]domain.AnswerRecord, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.AnswerRecord
	for _, r := range doc.Records {
		if r.ScoringTargetID == targetID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *CardStore) Append(ctx context.Context, rec domain.AnswerRecord) error {
	return s.update(ctx, func(doc *document) error {
		doc.Records = append(doc.Records, rec)
		return nil
	})
}

func (s *CardStore) DeleteByTarget(ctx context.Context, targetID string) error {
	return s.update(ctx, func(doc *document) error {
		kept := doc.Records[:0]
		for _, r := range doc.Records {
			if r.ScoringTargetID != targetID {
				kept = append(kept, r)
			}
		}
		doc.Records = kept
		return nil
	})
}

func (s *CardStore) GetTarget(ctx context.Context, id string) (domain.Target, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return domain.Target{}, err
	}
	for _, t := range doc.Targets {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Target{}, domain.ErrTargetNotFound
}

func (s *CardStore) SaveTarget(ctx context.Context, t domain.Target) error {
	return s.update(ctx, func(doc *document) error {
		for i := range doc.Targets {
			if doc.Targets[i].ID == t.ID {
				doc.Targets[i] = t
				return nil
			}
		}
		doc.Targets = append(doc.Targets, t)
		return nil
	})
}

func (s *CardStore) DeleteTarget(ctx context.Context, id string) error {
	return s.update(ctx, func(doc *document) error {
		kept := doc.Targets[:0]
		for _, t := range doc.Targets {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		doc.Targets = kept
		return nil
	})
}

func (s *CardStore) ListTargets(ctx context.Context) ([]domain.Target, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Targets, nil
}

func (s *CardStore) read(ctx context.Context) (document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s.db)
}

// update applies fn to the stored document and writes it back atomically.
func (s *CardStore) update(ctx context.Context, fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := load(ctx, tx)
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	doc.Version = documentVersion
	doc.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		documentKey, string(data), doc.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// load returns the stored document. A missing or unreadable document yields
// an empty one so a corrupt file never blocks new answers.
func load(ctx context.Context, q queryer) (document, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, documentKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return document{Version: documentVersion}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read document: %w", err)
	}
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Printf("sqlite document unreadable, starting empty: %v", err)
		return document{Version: documentVersion}, nil
	}
	return doc, nil
}
