package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askme/internal/core/domain"
)

func TestAsk_PrintsAnswer(t *testing.T) {
	stack := setupTestServices(t)
	tenant := stack.tenantWithFAQs(t)

	out, err := execute(t, "ask", tenant.ID, "when are you open?", "--top-k", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "We are open from nine to five.")
	assert.NotContains(t, out, "Matches:")
}

func TestAsk_ShowMatches(t *testing.T) {
	stack := setupTestServices(t)
	tenant := stack.tenantWithFAQs(t)

	out, err := execute(t, "ask", tenant.ID, "where is the office", "--show-matches", "-k", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Matches:")
	assert.Contains(t, out, "1. [")
	assert.Contains(t, out, "2. [")
}

func TestAsk_InvalidMode(t *testing.T) {
	stack := setupTestServices(t)
	tenant := stack.tenantWithFAQs(t)

	_, err := execute(t, "ask", tenant.ID, "hello", "--mode", "shout")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestAsk_NoFAQs(t *testing.T) {
	stack := setupTestServices(t)
	tenant, err := stack.tenants.Create(t.Context(), "empty", nil)
	require.NoError(t, err)

	_, err = execute(t, "ask", tenant.ID, "anything")

	assert.ErrorIs(t, err, domain.ErrNoResults)
}

func TestAsk_UnknownTenant(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "ask", "missing", "anything")

	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestAsk_RequiresTwoArgs(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "ask", "tenant-only")

	assert.Error(t, err)
}

func TestAsk_NotConfigured(t *testing.T) {
	SetServices(Services{})

	_, err := execute(t, "ask", "t", "q")

	assert.ErrorIs(t, err, errAskServiceMissing)
}
