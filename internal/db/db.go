package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloudfiles/internal/metrics"
	"cloudfiles/internal/models"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	// ErrStorage wraps every failure reported by the database driver:
	// constraint violations, I/O errors, locked databases.
	ErrStorage = errors.New("storage operation failed")
	// ErrNotFound is returned by Get when no record has the filename.
	ErrNotFound = errors.New("file not found")
)

const (
	createFilesTable = `CREATE TABLE IF NOT EXISTS files (
		filename TEXT PRIMARY KEY,
		upload_time TEXT,
		additional_info TEXT
	)`

	upsertFile = `INSERT INTO files (filename, upload_time, additional_info)
		VALUES (?, ?, ?)
		ON CONFLICT (filename) DO UPDATE SET
			upload_time = excluded.upload_time,
			additional_info = excluded.additional_info`

	selectAllFiles   = "SELECT filename, upload_time FROM files"
	selectFiles      = "SELECT filename, upload_time, additional_info FROM files ORDER BY filename"
	selectFile       = "SELECT filename, upload_time, additional_info FROM files WHERE filename = ?"
	updateFilename   = "UPDATE files SET filename = ? WHERE filename = ?"
	deleteFileByName = "DELETE FROM files WHERE filename = ?"
)

// Options selects the driver and connection behaviour. MaxIdleConns of
// zero closes the physical connection after every operation.
type Options struct {
	Driver       string
	DSN          string
	MaxIdleConns int
}

// DB is the Record Store: the only owner of the files table.
type DB struct {
	sql     *sql.DB
	driver  string
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Open connects to the backing store and ensures the schema exists.
// m may be nil.
func Open(ctx context.Context, opts Options, log *zap.Logger, m *metrics.Metrics) (*DB, error) {
	sqlDB, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	db := &DB{
		sql:     sqlDB,
		driver:  opts.Driver,
		log:     log.Named("store"),
		metrics: m,
	}

	if err := db.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the files table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, createFilesTable)
		return err
	})
	return db.finish("ensure_schema", "", err)
}

// Upsert inserts a record or fully replaces the one with the same filename.
func (db *DB) Upsert(ctx context.Context, filename, uploadTime, additionalInfo string) error {
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, db.rebind(upsertFile), filename, uploadTime, additionalInfo)
		return err
	})
	return db.finish("upsert", filename, err)
}

// ListAll maps every filename to its upload time. It is the unordered
// view of the store; pages that need a stable order use List.
func (db *DB) ListAll(ctx context.Context) (map[string]string, error) {
	files := make(map[string]string)
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, selectAllFiles)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			var uploadTime sql.NullString
			if err := rows.Scan(&name, &uploadTime); err != nil {
				return err
			}
			files[name] = uploadTime.String
		}
		return rows.Err()
	})
	if err := db.finish("list_all", "", err); err != nil {
		return nil, err
	}
	return files, nil
}

// List returns every record ordered by filename.
func (db *DB) List(ctx context.Context) ([]models.File, error) {
	var files []models.File
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, selectFiles)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			file, err := scanFile(rows)
			if err != nil {
				return err
			}
			files = append(files, file)
		}
		return rows.Err()
	})
	if err := db.finish("list", "", err); err != nil {
		return nil, err
	}
	return files, nil
}

func (db *DB) Get(ctx context.Context, filename string) (models.File, error) {
	var file models.File
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		file, err = scanFile(conn.QueryRowContext(ctx, db.rebind(selectFile), filename))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		db.metrics.ObserveStore("get", nil)
		return models.File{}, fmt.Errorf("get %q: %w", filename, ErrNotFound)
	}
	if err := db.finish("get", filename, err); err != nil {
		return models.File{}, err
	}
	return file, nil
}

// Rename changes the filename of one record. Renaming a filename that
// does not exist affects no rows and is not an error. Renaming onto an
// existing filename fails with the engine's primary key violation.
func (db *DB) Rename(ctx context.Context, oldFilename, newFilename string) error {
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, db.rebind(updateFilename), newFilename, oldFilename)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			db.log.Debug("rename matched no record", zap.String("filename", oldFilename))
		}
		return nil
	})
	return db.finish("rename", oldFilename, err)
}

// Delete removes the record. Deleting an absent filename is a no-op.
func (db *DB) Delete(ctx context.Context, filename string) error {
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, db.rebind(deleteFileByName), filename)
		return err
	})
	return db.finish("delete", filename, err)
}

func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.sql.Close()
}

// withConn runs fn on a connection dedicated to this call and releases
// it on every exit path.
func (db *DB) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := db.sql.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

// finish records the outcome of an operation. Failures are logged here
// and returned wrapped in ErrStorage so the caller decides what to do.
func (db *DB) finish(operation, filename string, err error) error {
	db.metrics.ObserveStore(operation, err)
	if err == nil {
		return nil
	}

	db.log.Error("store operation failed",
		zap.String("operation", operation),
		zap.String("filename", filename),
		zap.Error(err),
	)
	if filename == "" {
		return fmt.Errorf("%s: %w: %w", operation, ErrStorage, err)
	}
	return fmt.Errorf("%s %q: %w: %w", operation, filename, ErrStorage, err)
}

// rebind rewrites ? placeholders to $n for drivers that need it.
func (db *DB) rebind(query string) string {
	if db.driver != "postgres" {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (models.File, error) {
	var file models.File
	var uploadTime, info sql.NullString
	if err := s.Scan(&file.Filename, &uploadTime, &info); err != nil {
		return models.File{}, err
	}
	file.UploadTime = uploadTime.String
	file.AdditionalInfo = info.String
	return file, nil
}
