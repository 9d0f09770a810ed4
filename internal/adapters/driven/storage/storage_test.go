package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/core/domain"
)

func TestOpen_Backends(t *testing.T) {
	tests := []struct {
		name    string
		backend domain.StorageBackend
	}{
		{"sqlite", domain.StorageBackendSQLite},
		{"badger", domain.StorageBackendBadger},
		{"memory", domain.StorageBackendMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Open(domain.StorageSettings{Backend: tt.backend, Path: t.TempDir()})
			require.NoError(t, err)
			defer b.Close()

			ctx := context.Background()
			tenant := &domain.Tenant{ID: "t1", Name: "T", APIKey: "k1", CreatedAt: time.Now().UTC()}
			require.NoError(t, b.TenantStore().CreateTenant(ctx, tenant, nil))
			require.NoError(t, b.FAQStore().AddFAQBulk(ctx, "t1",
				[]domain.FAQInput{{Question: "q", Answer: "a"}}, [][]float32{{1, 2, 3}}))

			got, err := b.FAQStore().GetFAQs(ctx, "t1")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, []float32{1, 2, 3}, got[0].Embedding)
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(domain.StorageSettings{Backend: "mongo"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
