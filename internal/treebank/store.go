// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package treebank persists grown proof trees in SQLite so that later runs
// can reuse them instead of growing new ones. Trees are grouped into buckets
// keyed by depth and generation flags; a bucket that reaches its size cap
// is cleared before the next insert.
package treebank

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// DefaultMaxBucketSize is used when TreeBankConfig.MaxBucketSize is unset.
const DefaultMaxBucketSize = 100

// Key selects a bucket.
type Key struct {
	Depth int
	Flags string
}

func (k Key) String() string { return fmt.Sprintf("depth=%d|%s", k.Depth, k.Flags) }

// Entry is one stored tree.
type Entry struct {
	ID         string               `json:"id" yaml:"id"`
	Bucket     string               `json:"bucket" yaml:"bucket"`
	Depth      int                  `json:"depth" yaml:"depth"`
	Hypothesis string               `json:"hypothesis" yaml:"hypothesis"`
	CreatedAt  time.Time            `json:"created_at" yaml:"created_at"`
	Tree       *prooftree.ProofTree `json:"-" yaml:"-"`
}

// BucketSummary counts the trees of one bucket.
type BucketSummary struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Trees  int    `json:"trees" yaml:"trees"`
}

// Store manages the tree bank database.
type Store struct {
	db        *sql.DB
	maxBucket int
}

// Open opens or creates the tree bank at cfg.Path and creates the schema
// if it does not exist.
func Open(cfg types.TreeBankConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("tree bank path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating tree bank directory: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxBucket := cfg.MaxBucketSize
	if maxBucket <= 0 {
		maxBucket = DefaultMaxBucketSize
	}
	s := &Store{db: db, maxBucket: maxBucket}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trees (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			bucket TEXT NOT NULL,
			depth INTEGER NOT NULL,
			hypothesis TEXT NOT NULL,
			tree TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trees_bucket ON trees(bucket)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Put stores tree under key and returns its ID. A full bucket is emptied
// first.
func (s *Store) Put(ctx context.Context, key Key, tree *prooftree.ProofTree) (string, error) {
	root, err := tree.Root()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("marshaling tree: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM trees WHERE bucket = ?`, key.String()).Scan(&n); err != nil {
		return "", fmt.Errorf("counting bucket: %w", err)
	}
	if n >= s.maxBucket {
		if _, err := tx.ExecContext(ctx, `DELETE FROM trees WHERE bucket = ?`, key.String()); err != nil {
			return "", fmt.Errorf("clearing bucket: %w", err)
		}
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO trees (id, bucket, depth, hypothesis, tree, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, key.String(), tree.Depth(), root.Formula.Rep(), string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("inserting tree: %w", err)
	}
	return id, tx.Commit()
}

// Pop removes a random tree of the bucket and returns it, or false when the
// bucket is empty. A popped tree is never handed out again.
func (s *Store) Pop(ctx context.Context, key Key) (*Entry, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`DELETE FROM trees WHERE rowid = (
			SELECT rowid FROM trees WHERE bucket = ? ORDER BY RANDOM() LIMIT 1
		) RETURNING id, bucket, depth, hypothesis, tree, created_at`,
		key.String())
	if err != nil {
		return nil, false, fmt.Errorf("popping from bucket: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil || len(entries) == 0 {
		return nil, false, err
	}
	return entries[0], true, nil
}

// Entries returns every stored tree, oldest first.
func (s *Store) Entries(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bucket, depth, hypothesis, tree, created_at FROM trees ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying trees: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		var (
			e         Entry
			data      string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Bucket, &e.Depth, &e.Hypothesis, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning tree: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.Tree = prooftree.New()
		if err := json.Unmarshal([]byte(data), e.Tree); err != nil {
			return nil, fmt.Errorf("decoding tree %s: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Buckets counts the trees per bucket.
func (s *Store) Buckets(ctx context.Context) ([]BucketSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, count(*) FROM trees GROUP BY bucket ORDER BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("querying buckets: %w", err)
	}
	defer rows.Close()
	var out []BucketSummary
	for rows.Next() {
		var b BucketSummary
		if err := rows.Scan(&b.Bucket, &b.Trees); err != nil {
			return nil, fmt.Errorf("scanning bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// exportEntry is the YAML form of an Entry with its tree flattened.
type exportEntry struct {
	Entry `yaml:",inline"`
	Nodes []prooftree.NodeRecord `yaml:"nodes"`
}

// ExportYAML writes every stored tree to w.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	entries, err := s.Entries(ctx)
	if err != nil {
		return err
	}
	out := make([]exportEntry, len(entries))
	for i, e := range entries {
		out[i] = exportEntry{Entry: *e, Nodes: e.Tree.Records()}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return nil
}
