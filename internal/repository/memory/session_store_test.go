package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripsnc/internal/domain"
	"ripsnc/internal/repository/memory"
	"ripsnc/internal/rips"
)

func newSession(t *testing.T, updated time.Time) *domain.Session {
	t.Helper()
	doc, err := rips.Parse([]byte(`{"numFactura":"FE-1","usuarios":[{"numDocumentoIdentificacion":"1"}]}`))
	require.NoError(t, err)
	return &domain.Session{ID: uuid.New(), Note: doc, CreatedAt: updated, UpdatedAt: updated}
}

func TestSessionStore_CreateGetIsolated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	sess := newSession(t, time.Now())
	require.NoError(t, store.Create(ctx, sess))

	sess.Note.Usuarios = nil

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Note.Usuarios, 1, "stored copy is independent of the caller")

	got.Note.Usuarios[0].SetField(rips.FieldCodSexo, rips.NewText("M"))
	again, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, again.Note.Usuarios[0].Field(rips.FieldCodSexo).Blank())
}

func TestSessionStore_SaveDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	sess := newSession(t, time.Now())

	assert.ErrorIs(t, store.Save(ctx, sess), domain.ErrSessionNotFound)
	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, store.Create(ctx, sess))
	sess.NoteName = "nota.json"
	require.NoError(t, store.Save(ctx, sess))
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "nota.json", got.NoteName)

	require.NoError(t, store.Delete(ctx, sess.ID))
	assert.ErrorIs(t, store.Delete(ctx, sess.ID), domain.ErrSessionNotFound)
}

func TestSessionStore_ListAndSweep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	now := time.Now()
	old := newSession(t, now.Add(-2*time.Hour))
	fresh := newSession(t, now)
	require.NoError(t, store.Create(ctx, old))
	require.NoError(t, store.Create(ctx, fresh))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, fresh.ID, list[0].ID)
	assert.Equal(t, "FE-1", list[0].NumFactura)

	n, err := store.Sweep(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
