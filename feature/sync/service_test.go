package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"membersync/core/catalog/mocks"
	"membersync/core/config"
	"membersync/feature/sync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive for the test.
	sqlDB.SetMaxOpenConns(1)
	return db
}

// fakeLedger is an in-memory LedgerSource.
type fakeLedger struct {
	owners     []models.Socio
	associated map[int64][]models.Socio
	txs        map[int64][]models.LedgerTransaction
	txErr      map[int64]error
}

func (f *fakeLedger) ResolveOwner(ctx context.Context, dni string) (*models.Socio, error) {
	for _, o := range f.owners {
		if o.MatchesDNI(dni) {
			owner := o
			return &owner, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) Owners(ctx context.Context) ([]models.Socio, error) {
	return f.owners, nil
}

func (f *fakeLedger) AssociatedOwners(ctx context.Context, ownerID int64) ([]models.Socio, error) {
	return f.associated[ownerID], nil
}

func (f *fakeLedger) Transactions(ctx context.Context, ownerID int64) ([]models.LedgerTransaction, error) {
	if err := f.txErr[ownerID]; err != nil {
		return nil, err
	}
	return f.txs[ownerID], nil
}

func testEngineConfig() config.Engine {
	return config.Engine{MaxAttempts: 2, RetryDelaySeconds: 1, IntervalMinutes: 60}
}

func emptyCatalog(resources ...string) *mocks.Client {
	client := new(mocks.Client)
	for _, r := range resources {
		client.On("List", mock.Anything, r, 1, 40).Return(rawPage(), nil)
	}
	return client
}

func TestService_FullRun(t *testing.T) {
	db := newTestDB(t)

	client := new(mocks.Client)
	client.On("List", mock.Anything, "customers", 1, 40).Return(rawPage(
		`{"id":10,"email":"ana@example.org","first_name":"Ana","username":"111A","role":"subscriber"}`,
	), nil)
	client.On("List", mock.Anything, "payments", 1, 40).Return(rawPage(
		`{"id":300,"name":"Cuota anual","price":"120.00"}`,
	), nil)
	client.On("List", mock.Anything, "orders?customer=10", 1, 40).Return(rawPage(), nil)
	client.On("List", mock.Anything, "products", 1, 40).Return(rawPage(), nil)

	ledger := &fakeLedger{
		owners: []models.Socio{{IDSocio: 1, DNI: "111A", Name: "Ana"}},
		associated: map[int64][]models.Socio{
			1: {{IDSocio: 2, DNI: "222B", PrincipalID: 1}},
		},
		txs: map[int64][]models.LedgerTransaction{
			1: {
				{ID: 1, OwnerID: 1, Concept: "Cuota anual", Price: 120},
				{ID: 2, OwnerID: 1, Concept: "Cena", Price: 25},
			},
			2: {{ID: 1, OwnerID: 2, Concept: "Taquilla", Price: 10}},
		},
	}

	var notified int
	notify := func(models.Socio, models.LedgerTransaction) { notified++ }

	svc := NewService(db, client, ledger, notify, nil, testEngineConfig(), 40, zap.NewNop())
	require.NoError(t, svc.AutoMigrate())
	require.NoError(t, svc.RegisterAccount(context.Background(), "111A", "token-1"))

	run := svc.RunManual(DefaultOptions())
	<-run.Done()
	require.Equal(t, StateCompleted, run.Snapshot().State)

	// Catalog entities mirrored.
	var customers []models.Customer
	require.NoError(t, db.Find(&customers).Error)
	require.Len(t, customers, 1)
	assert.Equal(t, "111A", customers[0].Username)

	var payments []models.AvailablePayment
	require.NoError(t, db.Find(&payments).Error)
	assert.Len(t, payments, 1)

	// Derived account fields discovered during the run.
	acct, err := svc.Accounts().Get(context.Background(), "111A")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, int64(10), acct.CustomerID())
	assert.False(t, acct.IsAdmin())
	assert.Equal(t, "1", acct.Meta(models.MetaIDSocio))

	// Own and associated ledgers mirrored; the engine started on an empty
	// ledger, so nothing is announced but every row is marked.
	var txs []models.LedgerTransaction
	require.NoError(t, db.Find(&txs).Error)
	assert.Len(t, txs, 3)
	for _, tx := range txs {
		assert.True(t, tx.Notified)
	}
	assert.Zero(t, notified)
	client.AssertExpectations(t)
}

func TestService_NotifiesNewTransactionsAfterRestart(t *testing.T) {
	db := newTestDB(t)

	client := emptyCatalog("customers", "payments", "products")
	ledger := &fakeLedger{
		owners: []models.Socio{{IDSocio: 1, DNI: "111A"}},
		txs: map[int64][]models.LedgerTransaction{
			1: {{ID: 1, OwnerID: 1, Concept: "Cuota", Price: 120}},
		},
	}

	first := NewService(db, client, ledger, nil, nil, testEngineConfig(), 40, zap.NewNop())
	require.NoError(t, first.AutoMigrate())
	require.NoError(t, first.RegisterAccount(context.Background(), "111A", "token-1"))

	run := first.RunManual(DefaultOptions())
	<-run.Done()
	require.Equal(t, StateCompleted, run.Snapshot().State)

	// A new transaction lands remotely; a fresh engine over the same mirror
	// announces only the new one.
	ledger.txs[1] = append(ledger.txs[1], models.LedgerTransaction{ID: 2, OwnerID: 1, Concept: "Cena", Price: 25})

	var announced []int64
	notify := func(_ models.Socio, tx models.LedgerTransaction) { announced = append(announced, tx.ID) }

	second := NewService(db, client, ledger, notify, nil, testEngineConfig(), 40, zap.NewNop())
	run = second.RunManual(DefaultOptions())
	<-run.Done()
	require.Equal(t, StateCompleted, run.Snapshot().State)
	assert.Equal(t, []int64{2}, announced)

	// Running once more announces nothing further.
	run = second.RunManual(DefaultOptions())
	<-run.Done()
	require.Equal(t, StateCompleted, run.Snapshot().State)
	assert.Equal(t, []int64{2}, announced)
}

func TestService_AdminSeedsFullLedger(t *testing.T) {
	db := newTestDB(t)

	client := new(mocks.Client)
	client.On("List", mock.Anything, "customers", 1, 40).Return(rawPage(
		`{"id":10,"username":"999Z","role":"administrator"}`,
	), nil)
	client.On("List", mock.Anything, "payments", 1, 40).Return(rawPage(), nil)
	client.On("List", mock.Anything, "orders?customer=10", 1, 40).Return(rawPage(), nil)
	client.On("List", mock.Anything, "products", 1, 40).Return(rawPage(), nil)

	ledger := &fakeLedger{
		owners: []models.Socio{
			{IDSocio: 1, DNI: "999Z", Name: "Admin"},
			{IDSocio: 2, DNI: "111A", Name: "Ana"},
			{IDSocio: 3, DNI: "222B", Name: "Berta"},
		},
		txs: map[int64][]models.LedgerTransaction{
			1: {{ID: 1, OwnerID: 1, Concept: "Cuota"}},
			2: {{ID: 1, OwnerID: 2, Concept: "Cuota"}},
			3: {{ID: 1, OwnerID: 3, Concept: "Cuota"}},
		},
	}

	svc := NewService(db, client, ledger, nil, nil, testEngineConfig(), 40, zap.NewNop())
	require.NoError(t, svc.AutoMigrate())
	require.NoError(t, svc.RegisterAccount(context.Background(), "999Z", "admin-token"))

	run := svc.RunManual(DefaultOptions())
	<-run.Done()
	require.Equal(t, StateCompleted, run.Snapshot().State)

	// One admin login mirrors every owner's ledger and the socio directory.
	var socios []models.Socio
	require.NoError(t, db.Find(&socios).Error)
	assert.Len(t, socios, 3)

	var count int64
	require.NoError(t, db.Model(&models.LedgerTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestService_AssociatedOwnerFailureIsIsolated(t *testing.T) {
	db := newTestDB(t)

	client := emptyCatalog("customers", "payments", "products")
	ledger := &fakeLedger{
		owners: []models.Socio{{IDSocio: 1, DNI: "111A"}},
		associated: map[int64][]models.Socio{
			1: {
				{IDSocio: 2, DNI: "222B", PrincipalID: 1},
				{IDSocio: 3, DNI: "333C", PrincipalID: 1},
			},
		},
		txs: map[int64][]models.LedgerTransaction{
			1: {{ID: 1, OwnerID: 1}},
			3: {{ID: 1, OwnerID: 3}},
		},
		txErr: map[int64]error{2: fmt.Errorf("row lock timeout")},
	}

	svc := NewService(db, client, ledger, nil, nil, testEngineConfig(), 40, zap.NewNop())
	require.NoError(t, svc.AutoMigrate())
	require.NoError(t, svc.RegisterAccount(context.Background(), "111A", "token-1"))

	run := svc.RunManual(DefaultOptions())
	<-run.Done()

	// One associated owner failing never fails the run or its siblings.
	require.Equal(t, StateCompleted, run.Snapshot().State)

	var owner3 []models.LedgerTransaction
	require.NoError(t, db.Where("id_socio = ?", 3).Find(&owner3).Error)
	assert.Len(t, owner3, 1)
}

func TestService_SkipsAccountWithoutCredential(t *testing.T) {
	db := newTestDB(t)

	client := new(mocks.Client)
	ledger := &fakeLedger{}

	svc := NewService(db, client, ledger, nil, nil, testEngineConfig(), 40, zap.NewNop())
	require.NoError(t, svc.AutoMigrate())
	require.NoError(t, svc.RegisterAccount(context.Background(), "111A", ""))

	run := svc.RunManual(DefaultOptions())
	<-run.Done()

	assert.Equal(t, StateCompleted, run.Snapshot().State)
	client.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_PermanentFailureReported(t *testing.T) {
	db := newTestDB(t)

	client := new(mocks.Client)
	client.On("List", mock.Anything, "customers", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("bad gateway"))

	var reported []RunError
	onFailure := func(runID string, failure RunError) { reported = append(reported, failure) }

	svc := NewService(db, client, &fakeLedger{}, nil, onFailure, testEngineConfig(), 40, zap.NewNop())
	require.NoError(t, svc.AutoMigrate())
	require.NoError(t, svc.RegisterAccount(context.Background(), "111A", "token-1"))

	run := svc.RunManual(DefaultOptions())
	<-run.Done()

	snap := run.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, 2, snap.Attempt)
	require.Len(t, reported, 1)
	assert.Equal(t, FailureInternal, reported[0].Kind)
	assert.Contains(t, reported[0].Message, "bad gateway")
}

func TestService_ObserveAndCancelUnknownRun(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, new(mocks.Client), &fakeLedger{}, nil, nil, testEngineConfig(), 40, zap.NewNop())

	_, ok := svc.Observe("missing")
	assert.False(t, ok)
	assert.False(t, svc.Cancel("missing"))
}

func TestService_RunManualKeepsExisting(t *testing.T) {
	db := newTestDB(t)

	release := make(chan struct{})
	client := new(mocks.Client)
	client.On("List", mock.Anything, "customers", 1, 40).Run(func(mock.Arguments) {
		<-release
	}).Return(rawPage(), nil)
	client.On("List", mock.Anything, "payments", 1, 40).Return(rawPage(), nil)
	client.On("List", mock.Anything, "products", 1, 40).Return(rawPage(), nil)

	svc := NewService(db, client, &fakeLedger{}, nil, nil, testEngineConfig(), 40, zap.NewNop())
	require.NoError(t, svc.AutoMigrate())
	require.NoError(t, svc.RegisterAccount(context.Background(), "111A", "token-1"))

	first := svc.RunManual(DefaultOptions())
	second := svc.RunManual(DefaultOptions())
	assert.Same(t, first, second)

	close(release)
	select {
	case <-first.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}
