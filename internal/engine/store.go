package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // pure Go SQLite driver, registers as "sqlite"
)

// walJournalSizeLimit bounds the WAL file at 64 MiB before SQLite checkpoints it.
const walJournalSizeLimit = 67108864

// Store is the persistent local index described in spec §4.1. All methods
// are synchronous and transactional per call. The reconciliation handler
// is the sole writer; watchers and the startup reconciler only read.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	stmts indexStatements
}

type indexStatements struct {
	getByPath      *sql.Stmt
	getByContentId *sql.Stmt
	getMtime       *sql.Stmt
	getRevision    *sql.Stmt
	listPaths      *sql.Stmt
	insert         *sql.Stmt
	updatePath     *sql.Stmt
	updateRevision *sql.Stmt
	updateMtime    *sql.Stmt
	deleteByID     *sql.Stmt
}

// stmtDef maps a SQL string to the prepared statement pointer it populates.
type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("engine: prepare %s: %w", defs[i].name, err)
		}

		*defs[i].dest = stmt
	}

	return nil
}

const (
	sqlGetByPath = `SELECT relative_path, content_id, revision_id, last_modified_ms
		FROM index_entries WHERE relative_path = ?`

	sqlGetByContentId = `SELECT relative_path, content_id, revision_id, last_modified_ms
		FROM index_entries WHERE content_id = ?`

	sqlGetMtime = `SELECT last_modified_ms FROM index_entries WHERE relative_path = ?`

	sqlGetRevision = `SELECT revision_id FROM index_entries WHERE relative_path = ?`

	sqlListPaths = `SELECT relative_path FROM index_entries`

	sqlInsert = `INSERT INTO index_entries
		(relative_path, content_id, revision_id, last_modified_ms) VALUES (?, ?, ?, ?)`

	sqlUpdatePath = `UPDATE index_entries SET relative_path = ? WHERE content_id = ?`

	sqlUpdateRevision = `UPDATE index_entries SET revision_id = ? WHERE relative_path = ?`

	sqlUpdateMtime = `UPDATE index_entries SET last_modified_ms = ? WHERE relative_path = ?`

	sqlDeleteByID = `DELETE FROM index_entries WHERE content_id = ?`
)

// OpenStore opens (or creates) the index database at dbPath, applies
// migrations, and prepares all statements. Use ":memory:" for tests.
func OpenStore(dbPath string, logger *slog.Logger) (*Store, error) {
	logger.Info("opening index database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("engine: open sqlite: %w", err)
	}

	ctx := context.Background()

	if err := setPragmas(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("engine: prepare statements: %w", err)
	}

	logger.Info("index database ready", slog.String("path", dbPath))

	return s, nil
}

func setPragmas(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("engine: set pragma %s: %w", p.desc, err)
		}

		logger.Debug("pragma set", slog.String("pragma", p.desc))
	}

	return nil
}

func (s *Store) prepareStatements(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.stmts.getByPath, sqlGetByPath, "getByPath"},
		{&s.stmts.getByContentId, sqlGetByContentId, "getByContentId"},
		{&s.stmts.getMtime, sqlGetMtime, "getMtime"},
		{&s.stmts.getRevision, sqlGetRevision, "getRevision"},
		{&s.stmts.listPaths, sqlListPaths, "listPaths"},
		{&s.stmts.insert, sqlInsert, "insert"},
		{&s.stmts.updatePath, sqlUpdatePath, "updatePath"},
		{&s.stmts.updateRevision, sqlUpdateRevision, "updateRevision"},
		{&s.stmts.updateMtime, sqlUpdateMtime, "updateMtime"},
		{&s.stmts.deleteByID, sqlDeleteByID, "deleteByID"},
	})
}

// Close releases the underlying database handle. Prepared statements are
// closed automatically when the connection they were prepared on closes.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntry(row interface{ Scan(...any) error }) (*IndexEntry, error) {
	e := &IndexEntry{}

	err := row.Scan(&e.RelativePath, &e.ContentId, &e.RevisionId, &e.LastModifiedMs)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// RelativePathIsKnown reports whether p has a live index entry.
func (s *Store) RelativePathIsKnown(ctx context.Context, p RelativePath) (bool, error) {
	_, err := s.GetContentId(ctx, p)
	if err == nil {
		return true, nil
	}

	var notIndexed *NotIndexedError
	if errors.As(err, &notIndexed) {
		return false, nil
	}

	return false, err
}

// ContentIdIsKnown reports whether id has a live index entry.
func (s *Store) ContentIdIsKnown(ctx context.Context, id ContentId) (bool, error) {
	_, err := s.GetPathFromContentId(ctx, id)
	if err == nil {
		return true, nil
	}

	var notIndexed *NotIndexedError
	if errors.As(err, &notIndexed) {
		return false, nil
	}

	return false, err
}

// GetContentId resolves the content id bound to p, or a *NotIndexedError.
func (s *Store) GetContentId(ctx context.Context, p RelativePath) (ContentId, error) {
	entry, err := scanEntry(s.stmts.getByPath.QueryRowContext(ctx, string(p)))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotIndexedError{Path: p}
	}

	if err != nil {
		return 0, fmt.Errorf("engine: get content id for %q: %w", p, err)
	}

	return entry.ContentId, nil
}

// GetPathFromContentId resolves the relative path bound to id, or a
// *NotIndexedError.
func (s *Store) GetPathFromContentId(ctx context.Context, id ContentId) (RelativePath, error) {
	entry, err := scanEntry(s.stmts.getByContentId.QueryRowContext(ctx, int32(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return "", &NotIndexedError{Id: id}
	}

	if err != nil {
		return "", fmt.Errorf("engine: get path for content id %d: %w", id, err)
	}

	return entry.RelativePath, nil
}

// GetLastModifiedMs returns the indexed mtime for p, or a *NotIndexedError.
func (s *Store) GetLastModifiedMs(ctx context.Context, p RelativePath) (int64, error) {
	var mtime int64

	err := s.stmts.getMtime.QueryRowContext(ctx, string(p)).Scan(&mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotIndexedError{Path: p}
	}

	if err != nil {
		return 0, fmt.Errorf("engine: get mtime for %q: %w", p, err)
	}

	return mtime, nil
}

// GetRevisionId returns the indexed revision id for p, or a *NotIndexedError.
func (s *Store) GetRevisionId(ctx context.Context, p RelativePath) (RevisionId, error) {
	var rev int32

	err := s.stmts.getRevision.QueryRowContext(ctx, string(p)).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotIndexedError{Path: p}
	}

	if err != nil {
		return 0, fmt.Errorf("engine: get revision id for %q: %w", p, err)
	}

	return RevisionId(rev), nil
}

// GetAllRelativePaths returns every live relative path in the index.
func (s *Store) GetAllRelativePaths(ctx context.Context) ([]RelativePath, error) {
	rows, err := s.stmts.listPaths.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: list relative paths: %w", err)
	}
	defer rows.Close()

	var paths []RelativePath

	for rows.Next() {
		var p RelativePath
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("engine: scan relative path: %w", err)
		}

		paths = append(paths, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("engine: iterate relative paths: %w", err)
	}

	return paths, nil
}

// InsertNewFile creates a new index entry. A torn insert cannot leave a
// partial row: single INSERT statement, single SQLite implicit transaction.
func (s *Store) InsertNewFile(ctx context.Context, p RelativePath, mtimeMs int64, id ContentId, rev RevisionId) error {
	s.logger.Debug("inserting index entry",
		slog.String("path", string(p)), slog.Int64("content_id", int64(id)))

	_, err := s.stmts.insert.ExecContext(ctx, string(p), int32(id), int32(rev), mtimeMs)
	if err != nil {
		return fmt.Errorf("engine: insert index entry %q: %w", p, err)
	}

	return nil
}

// UpdateRelativePath rebinds the entry for id to newPath, used on rename/move.
func (s *Store) UpdateRelativePath(ctx context.Context, id ContentId, newPath RelativePath) error {
	s.logger.Debug("updating relative path",
		slog.Int64("content_id", int64(id)), slog.String("new_path", string(newPath)))

	_, err := s.stmts.updatePath.ExecContext(ctx, string(newPath), int32(id))
	if err != nil {
		return fmt.Errorf("engine: update relative path for content id %d: %w", id, err)
	}

	return nil
}

// UpdateRevisionId bumps the revision id stored for p.
func (s *Store) UpdateRevisionId(ctx context.Context, p RelativePath, rev RevisionId) error {
	_, err := s.stmts.updateRevision.ExecContext(ctx, int32(rev), string(p))
	if err != nil {
		return fmt.Errorf("engine: update revision id for %q: %w", p, err)
	}

	return nil
}

// UpdateLastModifiedTimestamp stores a fresh mtime for p.
func (s *Store) UpdateLastModifiedTimestamp(ctx context.Context, p RelativePath, mtimeMs int64) error {
	_, err := s.stmts.updateMtime.ExecContext(ctx, mtimeMs, string(p))
	if err != nil {
		return fmt.Errorf("engine: update mtime for %q: %w", p, err)
	}

	return nil
}

// DeleteFile removes the index entry for id.
func (s *Store) DeleteFile(ctx context.Context, id ContentId) error {
	s.logger.Debug("deleting index entry", slog.Int64("content_id", int64(id)))

	_, err := s.stmts.deleteByID.ExecContext(ctx, int32(id))
	if err != nil {
		return fmt.Errorf("engine: delete index entry for content id %d: %w", id, err)
	}

	return nil
}
