package audit

import (
	"context"
	"errors"
	"testing"

	"coop-backoffice/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	entries []*Entry
	err     error
}

func (m *memStore) Append(ctx context.Context, entry *Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func testCtx() context.Context {
	p := domain.NewPrincipal(7, "secretary", domain.RoleSecretary, []string{domain.PermLoanApprove}, nil)
	ctx := domain.WithPrincipal(context.Background(), p)
	return domain.WithRequestMeta(ctx, domain.RequestMeta{
		IPAddress: "10.0.0.1",
		UserAgent: "go-test",
		RequestID: "req-123",
	})
}

func TestWrapSuccess(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	tk := &ticket{ID: 3, Code: "T-3", Open: true}
	result, err := ic.Wrap(testCtx(), Op{Name: "ticket_close", Args: []interface{}{tk}}, func(ctx context.Context) (interface{}, error) {
		tk.Open = false
		return tk, nil
	})
	require.NoError(t, err)
	assert.Same(t, tk, result)

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, "TICKET_CLOSE", e.Action)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, uint(7), e.ActorUserID)
	assert.Equal(t, "ticket", e.EntityType)
	assert.Equal(t, uint(3), e.EntityID)
	assert.Equal(t, "req-123", e.RequestID)
	assert.Equal(t, "10.0.0.1", e.IPAddress)
	assert.Equal(t, "go-test", e.UserAgent)

	// Pre-state captured before fn mutated the entity
	old, ok := e.OldValues.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, old["Open"])
	newVals, ok := e.NewValues.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, newVals["Open"])
}

func TestWrapActionOverride(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	_, err := ic.Wrap(testCtx(), Op{Name: "loan_approval", Action: "LOAN_APPROVAL"}, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "LOAN_APPROVAL", store.entries[0].Action)
}

func TestWrapFailure(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	boom := errors.New("boom")
	_, err := ic.Wrap(testCtx(), Op{Name: "ticket_close", Args: []interface{}{uint(3)}}, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, "TICKET_CLOSE_FAILED", e.Action)
	assert.Equal(t, StatusFailed, e.Status)
	assert.Equal(t, uint(3), e.EntityID)

	newVals, ok := e.NewValues.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "boom", newVals["error"])
}

func TestWrapFailureStoreErrorDoesNotMaskOriginal(t *testing.T) {
	store := &memStore{err: errors.New("store down")}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	boom := errors.New("boom")
	_, err := ic.Wrap(testCtx(), Op{Name: "op"}, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestWrapSuccessStoreErrorFailsOperation(t *testing.T) {
	storeErr := errors.New("store down")
	store := &memStore{err: storeErr}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	ran := false
	_, err := ic.Wrap(testCtx(), Op{Name: "op"}, func(ctx context.Context) (interface{}, error) {
		ran = true
		return nil, nil
	})
	assert.True(t, ran)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}

func TestWrapNoPrincipalPermitted(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	ran := false
	_, err := ic.Wrap(context.Background(), Op{Name: "op"}, func(ctx context.Context) (interface{}, error) {
		ran = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, store.entries)
}

func TestWrapNoPrincipalRefused(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), true)

	ran := false
	_, err := ic.Wrap(context.Background(), Op{Name: "op"}, func(ctx context.Context) (interface{}, error) {
		ran = true
		return nil, nil
	})
	require.ErrorIs(t, err, domain.ErrUnauditable)
	assert.False(t, ran)
	assert.Empty(t, store.entries)
}

func TestWrapNestedLogsOnce(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	_, err := ic.Wrap(testCtx(), Op{Name: "outer"}, func(ctx context.Context) (interface{}, error) {
		return ic.Wrap(ctx, Op{Name: "inner"}, func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})
	})
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "OUTER", store.entries[0].Action)
}

func TestWrapRefinesIdentityFromResult(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	_, err := ic.Wrap(testCtx(), Op{Name: "ticket_create"}, func(ctx context.Context) (interface{}, error) {
		// Simulates an insert assigning the id
		return &ticket{ID: 42, Code: "T-42"}, nil
	})
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "ticket", store.entries[0].EntityType)
	assert.Equal(t, uint(42), store.entries[0].EntityID)
}

func TestWrapPanicRecordsFailedEntry(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	require.Panics(t, func() {
		_, _ = ic.Wrap(testCtx(), Op{Name: "op"}, func(ctx context.Context) (interface{}, error) {
			panic("kaboom")
		})
	})

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, "OP_FAILED", e.Action)
	assert.Equal(t, StatusFailed, e.Status)

	newVals, ok := e.NewValues.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "kaboom", newVals["error"])
	assert.Equal(t, "panic", newVals["errorType"])
}

func TestWrapGeneratesRequestIDWhenMissing(t *testing.T) {
	store := &memStore{}
	ic := NewInterceptor(store, zerolog.Nop(), false)

	p := domain.NewPrincipal(1, "u", domain.RoleOfficer, nil, nil)
	ctx := domain.WithPrincipal(context.Background(), p)

	_, err := ic.Wrap(ctx, Op{Name: "op"}, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	assert.NotEmpty(t, store.entries[0].RequestID)
}
