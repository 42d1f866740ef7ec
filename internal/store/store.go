// Package store keeps sqdoc containers in a sqlite library keyed by document
// id.
package store

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"spanedit/pkg/sqdoc"
)

var (
	ErrNotFound  = errors.New("store: document not found")
	ErrAmbiguous = errors.New("store: ambiguous document reference")
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id       TEXT PRIMARY KEY,
	title    TEXT NOT NULL,
	author   TEXT NOT NULL,
	created  INTEGER NOT NULL,
	modified INTEGER NOT NULL,
	sealed   INTEGER NOT NULL,
	blob     BLOB NOT NULL
);`

// Entry describes a stored document without loading it.
type Entry struct {
	ID       uuid.UUID
	Title    string
	Author   string
	Created  time.Time
	Modified time.Time
	Sealed   bool
	Size     int
}

// Store is a single sqlite connection and is not safe for concurrent use.
type Store struct {
	conn *sqlite.Conn
	log  *zap.Logger
}

// Open opens or creates the library at path. ":memory:" gives a private
// in-memory library.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate}
	if path == ":memory:" {
		flags = append(flags, sqlite.OpenMemory)
	} else {
		flags = append(flags, sqlite.OpenWAL)
	}
	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare library schema: %w", err)
	}
	return &Store{conn: conn, log: log.Named("store")}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Put stores doc under its metadata id, replacing an earlier version. A
// document without an id gets a fresh one.
func (s *Store) Put(doc *sqdoc.Document, opts sqdoc.SaveOptions) (id uuid.UUID, err error) {
	if doc.Metadata.ID == uuid.Nil {
		if doc.Metadata.ID, err = uuid.NewV7(); err != nil {
			return uuid.Nil, err
		}
	}
	blob, err := sqdoc.Marshal(doc, opts)
	if err != nil {
		return uuid.Nil, err
	}
	var sealed int64
	if opts.Encryption.Enabled {
		sealed = 1
	}

	defer sqlitex.Save(s.conn)(&err)
	err = sqlitex.Execute(s.conn,
		`INSERT OR REPLACE INTO documents (id, title, author, created, modified, sealed, blob) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			doc.Metadata.ID.String(), doc.Metadata.Title, doc.Metadata.Author,
			doc.Metadata.CreatedUnix, doc.Metadata.ModifiedUnix,
			sealed, blob,
		}})
	if err != nil {
		return uuid.Nil, fmt.Errorf("store document %s: %w", doc.Metadata.ID, err)
	}
	s.log.Debug("Document stored", zap.Stringer("id", doc.Metadata.ID), zap.Int("size", len(blob)))
	return doc.Metadata.ID, nil
}

// Raw returns the stored container bytes.
func (s *Store) Raw(id uuid.UUID) ([]byte, error) {
	var (
		blob  []byte
		found bool
	)
	err := sqlitex.Execute(s.conn, `SELECT blob FROM documents WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id.String()},
			ResultFunc: func(stmt *sqlite.Stmt) (err error) {
				found = true
				blob, err = io.ReadAll(stmt.ColumnReader(0))
				return err
			},
		})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return blob, nil
}

func (s *Store) Get(id uuid.UUID, opts sqdoc.LoadOptions) (*sqdoc.Document, error) {
	blob, err := s.Raw(id)
	if err != nil {
		return nil, err
	}
	return sqdoc.Unmarshal(blob, opts)
}

func (s *Store) Delete(id uuid.UUID) error {
	if err := sqlitex.Execute(s.conn, `DELETE FROM documents WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id.String()}}); err != nil {
		return err
	}
	if s.conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns all entries ordered by title in natural order.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := sqlitex.Execute(s.conn,
		`SELECT id, title, author, created, modified, sealed, length(blob) FROM documents`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			id, err := uuid.Parse(stmt.ColumnText(0))
			if err != nil {
				s.log.Warn("Skipping entry with bad id", zap.String("id", stmt.ColumnText(0)), zap.Error(err))
				return nil
			}
			entries = append(entries, Entry{
				ID:       id,
				Title:    stmt.ColumnText(1),
				Author:   stmt.ColumnText(2),
				Created:  time.Unix(stmt.ColumnInt64(3), 0),
				Modified: time.Unix(stmt.ColumnInt64(4), 0),
				Sealed:   stmt.ColumnInt64(5) != 0,
				Size:     stmt.ColumnInt(6),
			})
			return nil
		}})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Title != entries[j].Title {
			return natural.Less(entries[i].Title, entries[j].Title)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
	return entries, nil
}

// Resolve turns a full id or a unique id prefix into a document id.
func (s *Store) Resolve(ref string) (uuid.UUID, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if ref == "" {
		return uuid.Nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	var matches []string
	err := sqlitex.Execute(s.conn, `SELECT id FROM documents WHERE substr(id, 1, ?) = ?`,
		&sqlitex.ExecOptions{
			Args: []any{len(ref), ref},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				matches = append(matches, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return uuid.Nil, err
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return uuid.Parse(matches[0])
	}
	return uuid.Nil, fmt.Errorf("%w: %s matches %d documents", ErrAmbiguous, ref, len(matches))
}
