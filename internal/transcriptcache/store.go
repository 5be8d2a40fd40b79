package transcriptcache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	"mediaframe/internal/logging"
	"mediaframe/internal/transcribe"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the table layout changes. A mismatched cache
// is rebuilt since its contents are reproducible.
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// timestampLayout is fixed width so stored timestamps sort lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store memoizes transcripts in SQLite. Entries are keyed by the BLAKE3
// digest of the audio bytes plus the model and language, so the same upload
// transcribed twice costs one engine call.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries    int
	AudioBytes int64
	Hits       int64
}

// Open creates or connects to the cache database at path. Schema setup runs
// under a file lock so concurrent processes do not race on first use.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("transcript cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock transcript cache: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, logger: logging.NewComponentLogger(logger, "transcriptcache")}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Lookup implements transcribe.Cache.
func (s *Store) Lookup(ctx context.Context, data []byte, model, language string) (transcribe.Transcript, bool, error) {
	digest := Digest(data)
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT payload FROM transcripts WHERE digest = ? AND model = ? AND language = ?",
			digest, model, language,
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return transcribe.Transcript{}, false, nil
	}
	if err != nil {
		return transcribe.Transcript{}, false, fmt.Errorf("query transcript: %w", err)
	}

	var transcript transcribe.Transcript
	if err := json.Unmarshal([]byte(payload), &transcript); err != nil {
		return transcribe.Transcript{}, false, fmt.Errorf("decode cached transcript: %w", err)
	}
	if err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			"UPDATE transcripts SET hit_count = hit_count + 1 WHERE digest = ? AND model = ? AND language = ?",
			digest, model, language)
		return execErr
	}); err != nil {
		s.logger.Debug("failed to record cache hit", logging.Error(err))
	}
	return transcript, true, nil
}

// Store implements transcribe.Cache. An existing entry for the same key is
// replaced.
func (s *Store) Store(ctx context.Context, data []byte, model, language string, transcript transcribe.Transcript) error {
	payload, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	digest := Digest(data)
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO transcripts (digest, model, language, payload, audio_bytes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(digest, model, language) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
			digest, model, language, string(payload), len(data), time.Now().UTC().Format(timestampLayout))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	s.logger.Debug("cached transcript",
		logging.String("digest", digest[:16]),
		logging.String("model", model),
		logging.String("language", language),
		logging.Int("segments", len(transcript.Segments)),
	)
	return nil
}

// Stats reports the number of cached transcripts, the audio volume they
// represent and how often they were reused.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COALESCE(SUM(audio_bytes), 0), COALESCE(SUM(hit_count), 0) FROM transcripts",
	).Scan(&stats.Entries, &stats.AudioBytes, &stats.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("query cache stats: %w", err)
	}
	return stats, nil
}

// Prune removes entries created before cutoff and returns how many were
// deleted.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, "DELETE FROM transcripts WHERE created_at < ?", cutoff.UTC().Format(timestampLayout))
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune transcripts: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 1 {
		var version int
		if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version == schemaVersion {
			return nil
		}
		logging.WarnWithContext(ctx, s.logger, "transcript cache schema changed", "transcript_cache_rebuilt",
			logging.Int("found_version", version),
			logging.Int("expected_version", schemaVersion),
			logging.String(logging.FieldImpact, "cached transcripts discarded"),
			logging.String(logging.FieldErrorHint, "none; the cache rebuilds itself"),
		)
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS transcripts; DROP TABLE IF EXISTS schema_version;"); err != nil {
			return fmt.Errorf("drop stale schema: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}
