package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/core/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestTenant(t *testing.T, store *Store, id string) {
	t.Helper()
	require.NoError(t, store.TenantStore().CreateTenant(context.Background(), &domain.Tenant{
		ID:        id,
		Name:      "Tenant " + id,
		APIKey:    "key-" + id,
		CreatedAt: time.Now().UTC(),
	}, domain.TenantSettings{domain.TenantSettingTopK: "5"}))
}

func TestTenantStore_CreateAndResolve(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestTenant(t, store, "t1")

	got, err := store.TenantStore().GetTenantByAPIKey(ctx, "key-t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "Tenant t1", got.Name)

	settings, err := store.TenantStore().GetSettings(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "5", settings[domain.TenantSettingTopK])

	_, err = store.TenantStore().GetTenantByAPIKey(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTenantStore_Duplicates(t *testing.T) {
	store := setupTestStore(t)
	createTestTenant(t, store, "t1")

	err := store.TenantStore().CreateTenant(context.Background(),
		&domain.Tenant{ID: "t2", APIKey: "key-t1", CreatedAt: time.Now()}, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestTenantStore_ListOrdered(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()
	for i, id := range []string{"b", "a", "c"} {
		require.NoError(t, store.TenantStore().CreateTenant(ctx, &domain.Tenant{
			ID: id, APIKey: "key-" + id, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}, nil))
	}

	tenants, err := store.TenantStore().ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 3)
	assert.Equal(t, "b", tenants[0].ID)
	assert.Equal(t, "c", tenants[2].ID)
}

func TestFAQStore_InsertionOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	fs := store.FAQStore()
	createTestTenant(t, store, "t1")

	require.NoError(t, fs.AddFAQBulk(ctx, "t1",
		[]domain.FAQInput{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}},
		[][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, fs.AddFAQBulk(ctx, "t1",
		[]domain.FAQInput{{Question: "q3", Answer: "a3"}}, [][]float32{{0.5, -0.5}}))

	got, err := fs.GetFAQs(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "q1", got[0].Question)
	assert.Equal(t, "q2", got[1].Question)
	assert.Equal(t, "q3", got[2].Question)
	assert.Equal(t, []float32{0.5, -0.5}, got[2].Embedding)
	assert.Equal(t, "t1", got[2].TenantID)

	n, err := fs.CountFAQs(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFAQStore_UnknownTenant(t *testing.T) {
	store := setupTestStore(t)
	err := store.FAQStore().AddFAQBulk(context.Background(), "ghost",
		[]domain.FAQInput{{Question: "q", Answer: "a"}}, [][]float32{{1}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFAQStore_MismatchedEmbeddings(t *testing.T) {
	store := setupTestStore(t)
	createTestTenant(t, store, "t1")
	err := store.FAQStore().AddFAQBulk(context.Background(), "t1",
		[]domain.FAQInput{{Question: "q", Answer: "a"}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFAQStore_TenantIsolation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestTenant(t, store, "a")
	createTestTenant(t, store, "ab")

	require.NoError(t, store.FAQStore().AddFAQBulk(ctx, "ab",
		[]domain.FAQInput{{Question: "q", Answer: "a"}}, [][]float32{{1}}))

	got, err := store.FAQStore().GetFAQs(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDeleteTenant_Cascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestTenant(t, store, "t1")
	require.NoError(t, store.FAQStore().AddFAQBulk(ctx, "t1",
		[]domain.FAQInput{{Question: "q", Answer: "a"}}, [][]float32{{1}}))

	require.NoError(t, store.TenantStore().DeleteTenant(ctx, "t1"))

	n, err := store.FAQStore().CountFAQs(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = store.TenantStore().GetTenantByAPIKey(ctx, "key-t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.TenantStore().DeleteTenant(ctx, "t1"), domain.ErrNotFound)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewStore(Options{Dir: dir})
	require.NoError(t, err)
	createTestTenant(t, s1, "t1")
	require.NoError(t, s1.FAQStore().AddFAQBulk(ctx, "t1",
		[]domain.FAQInput{{Question: "q", Answer: "a"}}, [][]float32{{1, 2}}))
	require.NoError(t, s1.Close())

	s2, err := NewStore(Options{Dir: dir})
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, dir, s2.Path())

	got, err := s2.FAQStore().GetFAQs(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{1, 2}, got[0].Embedding)
}

func TestFAQStore_ReplaceFAQs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	fs := store.FAQStore()
	createTestTenant(t, store, "t1")
	createTestTenant(t, store, "t2")

	require.NoError(t, fs.AddFAQBulk(ctx, "t1",
		[]domain.FAQInput{{Question: "old1", Answer: "a"}, {Question: "old2", Answer: "a"}},
		[][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, fs.AddFAQBulk(ctx, "t2",
		[]domain.FAQInput{{Question: "other", Answer: "a"}}, [][]float32{{1, 1}}))

	require.NoError(t, fs.ReplaceFAQs(ctx, "t1",
		[]domain.FAQInput{{Question: "new1", Answer: "b"}, {Question: "new2", Answer: "b"}},
		[][]float32{{2, 0}, {0, 2}}))

	got, err := fs.GetFAQs(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new1", got[0].Question)
	assert.Equal(t, "new2", got[1].Question)
	assert.Equal(t, []float32{0, 2}, got[1].Embedding)

	n, err := fs.CountFAQs(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other tenants are untouched")
}

func TestFAQStore_FailedReplaceKeepsExistingSet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	fs := store.FAQStore()
	createTestTenant(t, store, "t1")
	require.NoError(t, fs.AddFAQBulk(ctx, "t1",
		[]domain.FAQInput{{Question: "keep", Answer: "a"}}, [][]float32{{1}}))

	err := fs.ReplaceFAQs(ctx, "t1", []domain.FAQInput{{Question: "q", Answer: "a"}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = fs.ReplaceFAQs(ctx, "ghost", []domain.FAQInput{{Question: "q", Answer: "a"}}, [][]float32{{1}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := fs.GetFAQs(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].Question)
}
