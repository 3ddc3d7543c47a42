package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// Store persists dashboards in SQLite. Widget arrangements are stored as a
// JSON config column; providers are re-bound against the catalog on read.
type Store struct {
	db      *sql.DB
	catalog dashboard.CatalogSource
	now     func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

var _ dashboard.DashboardStore = (*Store)(nil)

// Open connects to the SQLite database at path (":memory:" works) and runs
// the schema migration. The catalog is used to re-bind widget providers when
// dashboards are loaded.
func Open(path string, catalog dashboard.CatalogSource, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlitestore: path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	return NewStore(db, catalog, opts...)
}

// NewStore wraps an existing database handle and runs the schema migration.
func NewStore(db *sql.DB, catalog dashboard.CatalogSource, opts ...Option) (*Store, error) {
	s := &Store{db: db, catalog: catalog, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dashboards (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT DEFAULT '',
		config TEXT NOT NULL DEFAULT '{}',
		is_default INTEGER NOT NULL DEFAULT 0,
		is_shared INTEGER NOT NULL DEFAULT 0,
		share_token TEXT DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dashboards_user_id ON dashboards(user_id);
	CREATE INDEX IF NOT EXISTS idx_dashboards_share_token ON dashboards(share_token);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, d dashboard.Dashboard) (dashboard.Dashboard, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := s.now()
	d.CreatedAt = now
	d.UpdatedAt = now

	config, err := dashboard.EncodeConfig(d.Config)
	if err != nil {
		return dashboard.Dashboard{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dashboard.Dashboard{}, fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	if d.IsDefault {
		if err := clearDefault(ctx, tx, d.UserID); err != nil {
			return dashboard.Dashboard{}, err
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO dashboards (id, user_id, name, description, config, is_default, is_shared, share_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Name, d.Description, string(config), d.IsDefault, d.IsShared, d.ShareToken, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return dashboard.Dashboard{}, fmt.Errorf("sqlitestore: insert dashboard: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return dashboard.Dashboard{}, fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return d, nil
}

func (s *Store) Update(ctx context.Context, d dashboard.Dashboard) (dashboard.Dashboard, error) {
	d.UpdatedAt = s.now()

	config, err := dashboard.EncodeConfig(d.Config)
	if err != nil {
		return dashboard.Dashboard{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dashboard.Dashboard{}, fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	if d.IsDefault {
		if err := clearDefault(ctx, tx, d.UserID); err != nil {
			return dashboard.Dashboard{}, err
		}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE dashboards
		 SET name = ?, description = ?, config = ?, is_default = ?, is_shared = ?, share_token = ?, updated_at = ?
		 WHERE id = ?`,
		d.Name, d.Description, string(config), d.IsDefault, d.IsShared, d.ShareToken, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return dashboard.Dashboard{}, fmt.Errorf("sqlitestore: update dashboard: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return dashboard.Dashboard{}, dashboard.ErrDashboardNotFound
	}
	if err := tx.Commit(); err != nil {
		return dashboard.Dashboard{}, fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return d, nil
}

func (s *Store) Get(ctx context.Context, id string) (dashboard.Dashboard, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	return s.scanDashboard(row)
}

func (s *Store) List(ctx context.Context, userID string) ([]dashboard.Dashboard, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list dashboards: %w", err)
	}
	defer rows.Close()

	var out []dashboard.Dashboard
	for rows.Next() {
		d, err := s.scanDashboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: list dashboards: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dashboards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete dashboard: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return dashboard.ErrDashboardNotFound
	}
	return nil
}

func (s *Store) Default(ctx context.Context, userID string) (dashboard.Dashboard, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE user_id = ? AND is_default = 1`, userID)
	d, err := s.scanDashboard(row)
	if errors.Is(err, dashboard.ErrDashboardNotFound) {
		return dashboard.Dashboard{}, dashboard.ErrNoDefaultDashboard
	}
	return d, err
}

// SetDefault marks one dashboard default and clears the flag from the user's
// other dashboards in the same transaction, so a crash between the two writes
// cannot leave two defaults behind.
func (s *Store) SetDefault(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	if err := clearDefault(ctx, tx, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE dashboards SET is_default = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		s.now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: set default: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return dashboard.ErrDashboardNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

func (s *Store) SetShareToken(ctx context.Context, id, token string) (dashboard.Dashboard, error) {
	shared := token != ""
	res, err := s.db.ExecContext(ctx,
		`UPDATE dashboards SET is_shared = ?, share_token = ?, updated_at = ? WHERE id = ?`,
		shared, token, s.now(), id,
	)
	if err != nil {
		return dashboard.Dashboard{}, fmt.Errorf("sqlitestore: set share token: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return dashboard.Dashboard{}, dashboard.ErrDashboardNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) ByShareToken(ctx context.Context, token string) (dashboard.Dashboard, error) {
	if token == "" {
		return dashboard.Dashboard{}, dashboard.ErrNotShared
	}
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE share_token = ? AND is_shared = 1`, token)
	d, err := s.scanDashboard(row)
	if errors.Is(err, dashboard.ErrDashboardNotFound) {
		return dashboard.Dashboard{}, dashboard.ErrNotShared
	}
	return d, err
}

const selectColumns = `SELECT id, user_id, name, description, config, is_default, is_shared, share_token, created_at, updated_at FROM dashboards`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanDashboard(row rowScanner) (dashboard.Dashboard, error) {
	var (
		d      dashboard.Dashboard
		config string
	)
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &config,
		&d.IsDefault, &d.IsShared, &d.ShareToken, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return dashboard.Dashboard{}, dashboard.ErrDashboardNotFound
	}
	if err != nil {
		return dashboard.Dashboard{}, fmt.Errorf("sqlitestore: scan dashboard: %w", err)
	}
	cfg, err := dashboard.DecodeConfig([]byte(config), s.catalog)
	if err != nil {
		return dashboard.Dashboard{}, err
	}
	d.Config = cfg
	return d, nil
}

func clearDefault(ctx context.Context, tx *sql.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE dashboards SET is_default = 0 WHERE user_id = ? AND is_default = 1`, userID); err != nil {
		return fmt.Errorf("sqlitestore: clear default: %w", err)
	}
	return nil
}
