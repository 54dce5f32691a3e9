package sync

import (
	"context"
	"fmt"
	"strings"

	"membersync/core/ledger"
	"membersync/feature/sync/models"

	"gorm.io/gorm"
)

// LedgerSource is the consumed surface of the legacy member ledger.
//
// ResolveOwner returns (nil, nil) when no socio matches the DNI; an
// unresolved owner is a local skip decision, never an error.
type LedgerSource interface {
	ResolveOwner(ctx context.Context, dni string) (*models.Socio, error)
	Owners(ctx context.Context) ([]models.Socio, error)
	AssociatedOwners(ctx context.Context, ownerID int64) ([]models.Socio, error)
	Transactions(ctx context.Context, ownerID int64) ([]models.LedgerTransaction, error)
}

// mysqlLedgerSource reads the legacy MySQL ledger. Every call opens its own
// connection and closes it before returning, per the legacy server's
// connection cap (see core/ledger).
type mysqlLedgerSource struct {
	cfg  ledger.Config
	open func(cfg ledger.Config) (*gorm.DB, error)
}

// NewLedgerSource creates a LedgerSource over the legacy MySQL database.
func NewLedgerSource(cfg ledger.Config) LedgerSource {
	return &mysqlLedgerSource{cfg: cfg, open: ledger.Open}
}

func (s *mysqlLedgerSource) withConn(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	db, err := s.open(s.cfg)
	if err != nil {
		return fmt.Errorf("ledger %s: %w", op, err)
	}
	defer ledger.Close(db)

	if err := fn(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("ledger %s: %w", op, err)
	}
	return nil
}

func (s *mysqlLedgerSource) ResolveOwner(ctx context.Context, dni string) (*models.Socio, error) {
	var matches []models.Socio
	err := s.withConn(ctx, "resolve owner", func(db *gorm.DB) error {
		normalized := strings.ToUpper(strings.TrimSpace(dni))
		return db.Where("UPPER(TRIM(dni)) = ?", normalized).Limit(1).Find(&matches).Error
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

func (s *mysqlLedgerSource) Owners(ctx context.Context) ([]models.Socio, error) {
	var owners []models.Socio
	err := s.withConn(ctx, "list owners", func(db *gorm.DB) error {
		return db.Find(&owners).Error
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}

func (s *mysqlLedgerSource) AssociatedOwners(ctx context.Context, ownerID int64) ([]models.Socio, error) {
	var associated []models.Socio
	err := s.withConn(ctx, "list associated owners", func(db *gorm.DB) error {
		return db.Where("id_socio_principal = ?", ownerID).Find(&associated).Error
	})
	if err != nil {
		return nil, err
	}
	return associated, nil
}

func (s *mysqlLedgerSource) Transactions(ctx context.Context, ownerID int64) ([]models.LedgerTransaction, error) {
	var txs []models.LedgerTransaction
	err := s.withConn(ctx, "list transactions", func(db *gorm.DB) error {
		// The local-only notified column does not exist remotely, so the
		// select list is explicit.
		return db.Select(models.LedgerTransaction{}.RemoteColumns()).
			Where("id_socio = ?", ownerID).
			Find(&txs).Error
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}
