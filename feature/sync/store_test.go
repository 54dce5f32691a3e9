package sync

import (
	"context"
	"testing"

	"membersync/feature/sync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormStore_CRUD(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Customer{}))

	store := NewStore[models.Customer](db)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, models.Customer{ID: 1, Email: "a@example.org", Username: "111A"}))
	require.NoError(t, store.Insert(ctx, models.Customer{ID: 2, Email: "b@example.org", Username: "222B"}))

	// Duplicate primary key surfaces as ErrConflict.
	err := store.Insert(ctx, models.Customer{ID: 1, Email: "dup@example.org"})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, store.Update(ctx, models.Customer{ID: 1, Email: "new@example.org", Username: "111A"}))

	items, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "new@example.org", items[0].Email)

	require.NoError(t, store.Delete(ctx, models.Customer{ID: 2}))
	items, err = store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestScopedStore_IsolatesOwners(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.LedgerTransaction{}))

	scopeFor := func(owner int64) *GormStore[models.LedgerTransaction] {
		return NewScopedStore[models.LedgerTransaction](db, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("id_socio = ?", owner)
		})
	}

	ctx := context.Background()
	ownerA := scopeFor(1)
	ownerB := scopeFor(2)

	require.NoError(t, ownerA.Insert(ctx, models.LedgerTransaction{ID: 1, OwnerID: 1, Concept: "Cuota"}))
	require.NoError(t, ownerB.Insert(ctx, models.LedgerTransaction{ID: 1, OwnerID: 2, Concept: "Cuota"}))

	// The same transaction id under different owners is two distinct rows.
	a, err := ownerA.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, int64(1), a[0].OwnerID)

	// Reconciling owner A to empty must not touch owner B's rows.
	require.NoError(t, Reconcile[models.LedgerTransaction](ctx, ownerA,
		staticFetch[models.LedgerTransaction](), nil))

	a, err = ownerA.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, a)

	b, err := ownerB.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, b, 1)
}

func TestAccountStore(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Account{}))

	store := NewAccountStore(db)
	ctx := context.Background()

	missing, err := store.Get(ctx, "111A")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Save(ctx, &models.Account{DNI: "111A", AuthToken: "tok"}))

	acct, err := store.Get(ctx, "111A")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, models.AccountKindPrimary, acct.Kind)
	assert.Equal(t, "tok", acct.AuthToken)

	// Metadata round-trips through the JSON serializer.
	require.NoError(t, store.SetUserData(ctx, "111A", models.MetaCustomerID, "42"))
	v, err := store.UserData(ctx, "111A", models.MetaCustomerID)
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	require.NoError(t, store.ClearCredential(ctx, "111A"))
	acct, err = store.Get(ctx, "111A")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Empty(t, acct.AuthToken)
	// Clearing the credential keeps the discovered metadata.
	assert.Equal(t, "42", acct.Meta(models.MetaCustomerID))

	require.NoError(t, store.Delete(ctx, "111A"))
	accounts, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	err = store.SetUserData(ctx, "111A", models.MetaCustomerID, "42")
	assert.Error(t, err)
}
