// Package badger provides tenant and FAQ stores backed by BadgerDB.
//
// Records are msgpack-encoded. Keys are laid out so that a tenant's FAQs
// sort by a per-tenant sequence number, which keeps prefix iteration in
// insertion order:
//
//	t/<tenant-id>                 tenant record
//	k/<api-key>                   tenant id
//	s/<tenant-id>/<setting-key>   setting value
//	n/<tenant-id>                 next FAQ sequence (uint64, big-endian)
//	f/<tenant-id>/<seq>           FAQ record
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/ports/driven"
	"github.com/custodia-labs/askme/internal/logger"
)

// Ensure the wrappers implement the interfaces.
var (
	_ driven.TenantStore = (*tenantStore)(nil)
	_ driven.FAQStore    = (*faqStore)(nil)
)

// Options configures the store.
type Options struct {
	// Dir holds the badger data files. Defaults to ~/.askme/data/badger.
	Dir string

	// InMemory runs badger without touching disk.
	InMemory bool
}

// Store is a BadgerDB-backed storage exposing the tenant and FAQ stores.
type Store struct {
	db  *badger.DB
	dir string
}

// NewStore opens (or creates) a badger database.
func NewStore(opts Options) (*Store, error) {
	dir := opts.Dir
	if !opts.InMemory {
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("getting home directory: %w", err)
			}
			dir = filepath.Join(home, ".askme", "data", "badger")
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	dbOpts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &Store{db: db, dir: dir}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the data directory, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.dir
}

// TenantStore returns a TenantStore backed by this store.
func (s *Store) TenantStore() driven.TenantStore {
	return &tenantStore{db: s.db}
}

// FAQStore returns a FAQStore backed by this store.
func (s *Store) FAQStore() driven.FAQStore {
	return &faqStore{db: s.db}
}

type tenantRecord struct {
	ID        string    `msgpack:"id"`
	Name      string    `msgpack:"name"`
	APIKey    string    `msgpack:"api_key"`
	CreatedAt time.Time `msgpack:"created_at"`
}

type faqRecord struct {
	ID        string    `msgpack:"id"`
	Question  string    `msgpack:"q"`
	Answer    string    `msgpack:"a"`
	Embedding []float32 `msgpack:"e"`
	CreatedAt time.Time `msgpack:"created_at"`
}

func tenantKey(id string) []byte { return []byte("t/" + id) }
func apiKeyKey(key string) []byte { return []byte("k/" + key) }
func settingsPrefix(id string) []byte { return []byte("s/" + id + "/") }
func settingKey(id, key string) []byte { return []byte("s/" + id + "/" + key) }
func sequenceKey(id string) []byte { return []byte("n/" + id) }
func faqPrefix(id string) []byte { return []byte("f/" + id + "/") }

func faqKey(id string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(faqPrefix(id), seq)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

// tenantStore implements driven.TenantStore.
type tenantStore struct {
	db *badger.DB
}

func (s *tenantStore) CreateTenant(_ context.Context, tenant *domain.Tenant, settings domain.TenantSettings) error {
	if tenant.ID == "" || tenant.APIKey == "" {
		return domain.ErrInvalidInput
	}
	rec, err := msgpack.Marshal(tenantRecord{
		ID:        tenant.ID,
		Name:      tenant.Name,
		APIKey:    tenant.APIKey,
		CreatedAt: tenant.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding tenant: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range [][]byte{tenantKey(tenant.ID), apiKeyKey(tenant.APIKey)} {
			if _, err := txn.Get(k); err == nil {
				return domain.ErrAlreadyExists
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		if err := txn.Set(tenantKey(tenant.ID), rec); err != nil {
			return err
		}
		if err := txn.Set(apiKeyKey(tenant.APIKey), []byte(tenant.ID)); err != nil {
			return err
		}
		for k, v := range settings {
			if err := txn.Set(settingKey(tenant.ID, k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	if err != nil {
		return unavailable("create tenant", err)
	}
	return nil
}

func (s *tenantStore) GetTenant(_ context.Context, id string) (*domain.Tenant, error) {
	var tenant *domain.Tenant
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		tenant, err = getTenant(txn, id)
		return err
	})
	return tenant, translate("get tenant", err)
}

func (s *tenantStore) GetTenantByAPIKey(_ context.Context, apiKey string) (*domain.Tenant, error) {
	var tenant *domain.Tenant
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(apiKeyKey(apiKey))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		tenant, err = getTenant(txn, string(id))
		return err
	})
	return tenant, translate("get tenant by api key", err)
}

func (s *tenantStore) ListTenants(_ context.Context) ([]domain.Tenant, error) {
	tenants := []domain.Tenant{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("t/")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec tenantRecord
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			tenants = append(tenants, rec.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("list tenants", err)
	}
	slices.SortStableFunc(tenants, func(a, b domain.Tenant) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return tenants, nil
}

func (s *tenantStore) DeleteTenant(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		tenant, err := getTenant(txn, id)
		if err != nil {
			return err
		}
		keys := [][]byte{tenantKey(id), apiKeyKey(tenant.APIKey), sequenceKey(id)}
		keys = append(keys, collectKeys(txn, settingsPrefix(id))...)
		keys = append(keys, collectKeys(txn, faqPrefix(id))...)
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return translate("delete tenant", err)
}

func (s *tenantStore) GetSettings(_ context.Context, tenantID string) (domain.TenantSettings, error) {
	settings := domain.TenantSettings{}
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(tenantKey(tenantID)); err != nil {
			return err
		}
		prefix := settingsPrefix(tenantID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			key := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			settings[key] = string(val)
		}
		return nil
	})
	if err != nil {
		return nil, translate("get settings", err)
	}
	return settings, nil
}

func (s *tenantStore) SetSetting(_ context.Context, tenantID, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tenantKey(tenantID)); err != nil {
			return err
		}
		return txn.Set(settingKey(tenantID, key), []byte(value))
	})
	return translate("set setting", err)
}

// faqStore implements driven.FAQStore.
type faqStore struct {
	db *badger.DB
}

func (s *faqStore) AddFAQBulk(_ context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error {
	if len(faqs) != len(embeddings) {
		return fmt.Errorf("add faqs: %d faqs but %d embeddings: %w", len(faqs), len(embeddings), domain.ErrInvalidInput)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return putFAQs(txn, tenantID, faqs, embeddings)
	})
	return translate("add faqs", err)
}

// ReplaceFAQs drops the tenant's FAQ keys and writes the new set in the
// same transaction.
func (s *faqStore) ReplaceFAQs(_ context.Context, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error {
	if len(faqs) != len(embeddings) {
		return fmt.Errorf("replace faqs: %d faqs but %d embeddings: %w", len(faqs), len(embeddings), domain.ErrInvalidInput)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range collectKeys(txn, faqPrefix(tenantID)) {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return putFAQs(txn, tenantID, faqs, embeddings)
	})
	return translate("replace faqs", err)
}

// putFAQs appends records after the tenant's current sequence.
func putFAQs(txn *badger.Txn, tenantID string, faqs []domain.FAQInput, embeddings [][]float32) error {
	if _, err := txn.Get(tenantKey(tenantID)); err != nil {
		return err
	}
	now := time.Now().UTC()
	seq, err := nextSequence(txn, tenantID)
	if err != nil {
		return err
	}
	for i, f := range faqs {
		rec, err := msgpack.Marshal(faqRecord{
			ID:        uuid.NewString(),
			Question:  f.Question,
			Answer:    f.Answer,
			Embedding: embeddings[i],
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if err := txn.Set(faqKey(tenantID, seq), rec); err != nil {
			return err
		}
		seq++
	}
	return txn.Set(sequenceKey(tenantID), binary.BigEndian.AppendUint64(nil, seq))
}

func (s *faqStore) GetFAQs(_ context.Context, tenantID string) ([]domain.FAQ, error) {
	faqs := []domain.FAQ{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = faqPrefix(tenantID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec faqRecord
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			faqs = append(faqs, domain.FAQ{
				ID:        rec.ID,
				TenantID:  tenantID,
				Question:  rec.Question,
				Answer:    rec.Answer,
				Embedding: rec.Embedding,
				CreatedAt: rec.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("get faqs", err)
	}
	return faqs, nil
}

func (s *faqStore) CountFAQs(_ context.Context, tenantID string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = faqPrefix(tenantID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, unavailable("count faqs", err)
	}
	return count, nil
}

func (s *faqStore) DeleteFAQs(_ context.Context, tenantID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range collectKeys(txn, faqPrefix(tenantID)) {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("delete faqs", err)
	}
	return nil
}

func getTenant(txn *badger.Txn, id string) (*domain.Tenant, error) {
	item, err := txn.Get(tenantKey(id))
	if err != nil {
		return nil, err
	}
	var rec tenantRecord
	if err := item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}
	t := rec.toDomain()
	return &t, nil
}

func (r tenantRecord) toDomain() domain.Tenant {
	return domain.Tenant{ID: r.ID, Name: r.Name, APIKey: r.APIKey, CreatedAt: r.CreatedAt}
}

func nextSequence(txn *badger.Txn, tenantID string) (uint64, error) {
	item, err := txn.Get(sequenceKey(tenantID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(val), nil
}

func collectKeys(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// translate maps badger errors onto domain errors.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrAlreadyExists):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return unavailable(op, err)
	}
}

// badgerLogger routes badger warnings and errors through the process logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{}) { logger.Error("badger: "+strings.TrimSpace(f), v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { logger.Warn("badger: "+strings.TrimSpace(f), v...) }
func (badgerLogger) Infof(f string, v ...interface{}) { logger.Debug("badger: "+strings.TrimSpace(f), v...) }
func (badgerLogger) Debugf(string, ...interface{}) {}
