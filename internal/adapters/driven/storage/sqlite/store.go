package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/askme/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// the tenant and FAQ store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.askme/data/askme.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".askme", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "askme.db")

	// WAL lets readers rebuild indexes while an upload is being written.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// TenantStore returns a TenantStore interface backed by this store.
func (s *Store) TenantStore() driven.TenantStore {
	return &tenantStore{store: s}
}

// FAQStore returns a FAQStore interface backed by this store.
func (s *Store) FAQStore() driven.FAQStore {
	return &faqStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// unavailable marks a database failure as retryable storage unavailability.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ==================== Tenant Store ====================

// tenantStore implements driven.TenantStore.
type tenantStore struct {
	store *Store
}

var _ driven.TenantStore = (*tenantStore)(nil)

// CreateTenant stores a new tenant and its settings in one transaction.
func (s *tenantStore) CreateTenant(ctx context.Context, tenant *domain.Tenant, settings domain.TenantSettings) error {
	if tenant.ID == "" || tenant.APIKey == "" {
		return fmt.Errorf("%w: tenant id and api key are required", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tenants (id, name, api_key, created_at) VALUES (?, ?, ?, ?)
	`, tenant.ID, tenant.Name, tenant.APIKey, tenant.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("saving tenant: %w", domain.ErrAlreadyExists)
	}
	if err != nil {
		return unavailable("saving tenant", err)
	}

	for k, v := range settings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (tenant_id, setting_key, setting_value) VALUES (?, ?, ?)
		`, tenant.ID, k, v); err != nil {
			return unavailable("saving setting", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing tenant", err)
	}
	return nil
}

// GetTenant retrieves a tenant by ID.
func (s *tenantStore) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, api_key, created_at FROM tenants WHERE id = ?
	`, id)
	return scanTenant(row)
}

// GetTenantByAPIKey resolves an API key to its tenant.
func (s *tenantStore) GetTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, api_key, created_at FROM tenants WHERE api_key = ?
	`, apiKey)
	return scanTenant(row)
}

// ListTenants returns all tenants ordered by creation time.
func (s *tenantStore) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, api_key, created_at FROM tenants ORDER BY created_at, id
	`)
	if err != nil {
		return nil, unavailable("querying tenants", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant //nolint:prealloc // size unknown from query
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.APIKey, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating tenants", err)
	}
	return tenants, nil
}

// DeleteTenant removes a tenant; FAQs and settings go with it.
func (s *tenantStore) DeleteTenant(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return unavailable("deleting tenant", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetSettings returns all settings for a tenant.
func (s *tenantStore) GetSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error) {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT setting_key, setting_value FROM settings WHERE tenant_id = ?
	`, tenantID)
	if err != nil {
		return nil, unavailable("querying settings", err)
	}
	defer rows.Close()

	settings := domain.TenantSettings{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating settings", err)
	}
	return settings, nil
}

// SetSetting stores or replaces a single tenant setting.
func (s *tenantStore) SetSetting(ctx context.Context, tenantID, key, value string) error {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return err
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO settings (tenant_id, setting_key, setting_value) VALUES (?, ?, ?)
		ON CONFLICT(tenant_id, setting_key) DO UPDATE SET setting_value = excluded.setting_value
	`, tenantID, key, value)
	if err != nil {
		return unavailable("saving setting", err)
	}
	return nil
}

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.APIKey, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("scanning tenant", err)
	}
	return &t, nil
}

// ==================== FAQ Store ====================

// faqStore implements driven.FAQStore.
type faqStore struct {
	store *Store
}

var _ driven.FAQStore = (*faqStore)(nil)

// AddFAQBulk inserts all FAQs in a single transaction.
func (s *faqStore) AddFAQBulk(ctx context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error {
	return s.write(ctx, tenantID, faqs, embeddings, false)
}

// ReplaceFAQs deletes the tenant's FAQs and inserts the new set in one
// transaction.
func (s *faqStore) ReplaceFAQs(ctx context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error {
	return s.write(ctx, tenantID, faqs, embeddings, true)
}

func (s *faqStore) write(
	ctx context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32, replace bool,
) error {
	if len(faqs) != len(embeddings) {
		return fmt.Errorf("%w: %d faqs but %d embeddings", domain.ErrInvalidInput, len(faqs), len(embeddings))
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM tenants WHERE id = ?", tenantID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("replacing faqs: %w", domain.ErrNotFound)
		}
		if err != nil {
			return unavailable("checking tenant", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM faqs WHERE tenant_id = ?", tenantID); err != nil {
			return unavailable("deleting faqs", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faqs (id, tenant_id, question, answer, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return unavailable("preparing insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, f := range faqs {
		_, err := stmt.ExecContext(ctx, uuid.NewString(), tenantID, f.Question, f.Answer,
			float32SliceToBytes(embeddings[i]), now)
		if err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return fmt.Errorf("saving faq: %w", domain.ErrNotFound)
			}
			return unavailable("saving faq", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing faqs", err)
	}
	return nil
}

// GetFAQs returns the tenant's FAQs in insertion order.
func (s *faqStore) GetFAQs(ctx context.Context, tenantID string) ([]domain.FAQ, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, question, answer, embedding, created_at
		FROM faqs WHERE tenant_id = ? ORDER BY seq
	`, tenantID)
	if err != nil {
		return nil, unavailable("querying faqs", err)
	}
	defer rows.Close()

	faqs := []domain.FAQ{}
	for rows.Next() {
		var f domain.FAQ
		var blob []byte
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Question, &f.Answer, &blob, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning faq: %w", err)
		}
		f.Embedding = bytesToFloat32Slice(blob)
		faqs = append(faqs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating faqs", err)
	}
	return faqs, nil
}

// CountFAQs returns the number of FAQs for a tenant.
func (s *faqStore) CountFAQs(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM faqs WHERE tenant_id = ?", tenantID).Scan(&n)
	if err != nil {
		return 0, unavailable("counting faqs", err)
	}
	return n, nil
}

// DeleteFAQs removes every FAQ for a tenant.
func (s *faqStore) DeleteFAQs(ctx context.Context, tenantID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM faqs WHERE tenant_id = ?", tenantID); err != nil {
		return unavailable("deleting faqs", err)
	}
	return nil
}

// float32SliceToBytes converts []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return []byte{}
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
