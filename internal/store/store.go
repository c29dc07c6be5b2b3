// Package store persists derived artifacts in SQLite: cached embedding
// vectors and knowledge base import hashes. Interview state itself is
// never persisted; sessions live and die with the process.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		hash TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		dim INTEGER NOT NULL,
		vec BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetEmbedding returns the cached vector for a text and model, or nil if
// absent.
func (s *Store) GetEmbedding(text, model string) ([]float32, error) {
	var dim int
	var blob []byte
	err := s.db.QueryRow(
		`SELECT dim, vec FROM embeddings WHERE hash = ?`, embeddingKey(text, model),
	).Scan(&dim, &blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(blob) != dim*4 {
		return nil, fmt.Errorf("embedding blob size %d does not match dim %d", len(blob), dim)
	}
	return decodeVector(blob, dim), nil
}

// PutEmbedding stores or replaces the cached vector for a text and model.
func (s *Store) PutEmbedding(text, model string, vec []float32) error {
	_, err := s.db.Exec(
		`INSERT INTO embeddings (hash, model, dim, vec) VALUES (?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET model = ?, dim = ?, vec = ?`,
		embeddingKey(text, model), model, len(vec), encodeVector(vec),
		model, len(vec), encodeVector(vec),
	)
	return err
}

// EmbeddingCount returns the number of cached vectors.
func (s *Store) EmbeddingCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&count)
	return count, err
}

// GetImportedFileHash returns the recorded content hash for a knowledge
// file path, or empty string if the path was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the content hash for a knowledge file path.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?`,
		path, hash, hash,
	)
	return err
}

// SetMetadata upserts a key-value pair.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key, empty string if
// missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func embeddingKey(text, model string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(h[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
