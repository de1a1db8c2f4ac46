package termsheet

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/estate-backend/internal/database"
	"github.com/javajoker/estate-backend/internal/templates"
)

const pngSignature = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func fixedNow() time.Time {
	return time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
}

func newTestStore(kv KV) *Store {
	s := NewStore(kv, "termSheets:test-owner")
	s.now = fixedNow
	return s
}

func sampleDraft() Draft {
	return Draft{
		TemplateID:      string(templates.Purchase),
		Name:            "Maple St purchase",
		PropertyAddress: "12 Maple St",
		PartyOne:        "Alice",
		PartyTwo:        "Bob",
		Date:            "2024-03-14",
		Data:            map[string]string{"closingDate": "2024-04-30"},
	}
}

func backends(t *testing.T) map[string]KV {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	return map[string]KV{
		"memory": NewMemoryKV(),
		"gorm":   NewGormKV(db),
	}
}

func TestCreateThenGet(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(kv)

			created, err := s.Create(ctx, sampleDraft())
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)

			want := TermSheet{
				ID:              created.ID,
				TemplateID:      "purchase",
				Name:            "Maple St purchase",
				PropertyAddress: "12 Maple St",
				PartyOne:        "Alice",
				PartyTwo:        "Bob",
				Date:            "2024-03-14",
				Data:            map[string]string{"closingDate": "2024-04-30"},
				CreatedAt:       fixedNow(),
			}

			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			if diff := cmp.Diff(want, *got); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(NewMemoryKV())
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Update(context.Background(), "nope", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSignatureLeavesOtherFields(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(kv)

			created, err := s.Create(ctx, sampleDraft())
			require.NoError(t, err)

			sig := pngSignature
			updated, err := s.Update(ctx, created.ID, Patch{SignatureOne: &sig})
			require.NoError(t, err)
			assert.Equal(t, sig, updated.SignatureOne)

			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)

			want := *created
			want.SignatureOne = sig
			if diff := cmp.Diff(want, *got); diff != "" {
				t.Errorf("after update (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateReplacesDataShallowly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(NewMemoryKV())

	created, err := s.Create(ctx, sampleDraft())
	require.NoError(t, err)

	name := "Renamed"
	got, err := s.Update(ctx, created.ID, Patch{Name: &name, Data: map[string]string{"purchasePrice": "$400,000"}})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, map[string]string{"purchasePrice": "$400,000"}, got.Data)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
}

func TestDeleteTwice(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(kv)

			keep, err := s.Create(ctx, sampleDraft())
			require.NoError(t, err)
			drop, err := s.Create(ctx, sampleDraft())
			require.NoError(t, err)

			removed, err := s.Delete(ctx, drop.ID)
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = s.Delete(ctx, drop.ID)
			require.NoError(t, err)
			assert.False(t, removed)

			all, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, keep.ID, all[0].ID)
		})
	}
}

func TestListKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(NewMemoryKV())

	var ids []string
	for i := 0; i < 3; i++ {
		ts, err := s.Create(ctx, sampleDraft())
		require.NoError(t, err)
		ids = append(ids, ts.ID)
	}

	all, err := s.List(ctx)
	require.NoError(t, err)

	got := make([]string, 0, len(all))
	for _, ts := range all {
		got = append(got, ts.ID)
	}
	assert.Equal(t, ids, got)
}

func TestOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryKV(), "termSheets")

	alice := svc.ForOwner("alice")
	bob := svc.ForOwner("bob")
	assert.Equal(t, "termSheets:alice", alice.Key())

	ts, err := alice.Create(ctx, sampleDraft())
	require.NoError(t, err)

	_, err = bob.Get(ctx, ts.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLastWriteWins(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	first := newTestStore(kv)
	second := newTestStore(kv)

	ts, err := first.Create(ctx, sampleDraft())
	require.NoError(t, err)

	a, b := "from first", "from second"
	_, err = first.Update(ctx, ts.ID, Patch{Terms: &a})
	require.NoError(t, err)
	_, err = second.Update(ctx, ts.ID, Patch{Terms: &b})
	require.NoError(t, err)

	got, err := first.Get(ctx, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, "from second", got.Terms)
}

func TestLegacyRecordsDecode(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	legacy := `[{"id":"old-1","templateId":"purchase","name":"Old","partyOne":"Alice","createdAt":"2023-01-01T00:00:00Z"}]`
	require.NoError(t, kv.Set(ctx, "termSheets:test-owner", []byte(legacy)))

	s := newTestStore(kv)
	got, err := s.Get(ctx, "old-1")
	require.NoError(t, err)

	want := &TermSheet{
		ID:         "old-1",
		TemplateID: "purchase",
		Name:       "Old",
		PartyOne:   "Alice",
		CreatedAt:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("legacy decode (-want +got):\n%s", diff)
	}

	doc, err := RenderDocument(got)
	require.NoError(t, err)
	assert.Contains(t, doc, "Alice")
	assert.Contains(t, doc, "[SELLER NAME]")
	assert.Contains(t, doc, "[AMOUNT]")
}

func TestCorruptCollection(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "termSheets:test-owner", []byte("{not json")))

	_, err := newTestStore(kv).List(ctx)
	assert.Error(t, err)
}

func TestRenderDocument(t *testing.T) {
	ts := &TermSheet{
		TemplateID: "purchase",
		PartyOne:   "Alice",
		PartyTwo:   "Bob",
		Data:       map[string]string{"partyOne": "Ignored", "closingDate": "2024-04-30"},
	}

	doc, err := RenderDocument(ts)
	require.NoError(t, err)
	assert.Contains(t, doc, "Alice")
	assert.Contains(t, doc, "Bob")
	assert.Contains(t, doc, "2024-04-30")
	assert.Contains(t, doc, "[AMOUNT]")
	assert.NotContains(t, doc, "Ignored")

	ts.TemplateID = "mortgage"
	_, err = RenderDocument(ts)
	assert.ErrorIs(t, err, templates.ErrTemplateNotFound)
}

func TestStoredFormatIsJSONArray(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newTestStore(kv)

	_, err := s.Create(ctx, sampleDraft())
	require.NoError(t, err)

	raw, ok, err := kv.Get(ctx, "termSheets:test-owner")
	require.NoError(t, err)
	require.True(t, ok)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Maple St purchase", decoded[0]["name"])
	assert.Equal(t, "purchase", decoded[0]["templateId"])
}
