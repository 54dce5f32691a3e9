package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"membersync/feature/sync/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stepProgress adapts a run into the reconciler's per-item progress callback.
func stepProgress(run *Run, step string) ProgressFunc {
	return func(current, total int) {
		run.Report(step, current, total)
	}
}

// syncAccountEntities drives the catalog reconcilers for one account in the
// fixed order customers → payments → orders → events. An error here aborts
// the whole run and escalates to the retry scheduler; per-account isolation
// applies only to associated-owner ledger sync.
func (s *Service) syncAccountEntities(ctx context.Context, run *Run, acct *models.Account) error {
	opts := run.Options
	l := s.logger.With(zap.String("account", acct.DNI))

	if opts.SyncCustomers {
		store := NewStore[models.Customer](s.db)
		if err := Reconcile(ctx, store, s.fetcher.Customers(nil), stepProgress(run, "customers")); err != nil {
			return fmt.Errorf("customer sync for %s: %w", acct.DNI, err)
		}
		if err := s.discoverCustomer(ctx, acct); err != nil {
			return err
		}
	}

	if opts.SyncPayments {
		store := NewStore[models.AvailablePayment](s.db)
		if err := Reconcile(ctx, store, s.fetcher.Payments(nil), stepProgress(run, "payments")); err != nil {
			return fmt.Errorf("payment sync for %s: %w", acct.DNI, err)
		}
	}

	if opts.SyncOrders {
		customerID := acct.CustomerID()
		if customerID == 0 {
			// Not discovered yet; orders cannot be scoped without it.
			l.Info("Skipping order sync, customer id not yet discovered")
		} else {
			store := NewScopedStore[models.Order](s.db, func(tx *gorm.DB) *gorm.DB {
				return tx.Where("customer_id = ?", customerID)
			})
			if err := Reconcile(ctx, store, s.fetcher.Orders(customerID, nil), stepProgress(run, "orders")); err != nil {
				return fmt.Errorf("order sync for %s: %w", acct.DNI, err)
			}
		}
	}

	if opts.SyncEvents {
		store := NewStore[models.Event](s.db)
		fetch := s.fetcher.Events(opts.IgnoreCache, stepProgress(run, "events"))
		if err := Reconcile(ctx, store, fetch, stepProgress(run, "events")); err != nil {
			return fmt.Errorf("event sync for %s: %w", acct.DNI, err)
		}
	}

	return nil
}

// discoverCustomer fills in the account's derived catalog fields the first
// time the mirrored customer matching its DNI appears.
func (s *Service) discoverCustomer(ctx context.Context, acct *models.Account) error {
	var customers []models.Customer
	if err := s.db.WithContext(ctx).Find(&customers).Error; err != nil {
		return fmt.Errorf("customer lookup for %s: %w", acct.DNI, err)
	}

	for _, c := range customers {
		if !strings.EqualFold(strings.TrimSpace(c.Username), strings.TrimSpace(acct.DNI)) {
			continue
		}
		changed := false
		if acct.Meta(models.MetaCustomerID) != strconv.FormatInt(c.ID, 10) {
			acct.SetMeta(models.MetaCustomerID, strconv.FormatInt(c.ID, 10))
			changed = true
		}
		admin := strconv.FormatBool(c.IsAdmin())
		if acct.Meta(models.MetaIsAdmin) != admin {
			acct.SetMeta(models.MetaIsAdmin, admin)
			changed = true
		}
		if changed {
			if err := s.accounts.Save(ctx, acct); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// syncAccountLedger mirrors the ledger for one account. An unresolved owner
// is a skip, not a failure; an administrator seeds the entire ledger before
// its own so one admin login populates every owner locally.
func (s *Service) syncAccountLedger(ctx context.Context, run *Run, acct *models.Account) error {
	l := s.logger.With(zap.String("account", acct.DNI))

	owner, err := s.ledger.ResolveOwner(ctx, acct.DNI)
	if err != nil {
		return err
	}
	if owner == nil {
		l.Warn("No ledger owner matches account DNI, skipping ledger sync")
		return nil
	}

	if acct.Meta(models.MetaIDSocio) == "" {
		acct.SetMeta(models.MetaIDSocio, strconv.FormatInt(owner.IDSocio, 10))
		if err := s.accounts.Save(ctx, acct); err != nil {
			return err
		}
	}

	if acct.IsAdmin() {
		owners, err := s.ledger.Owners(ctx)
		if err != nil {
			return err
		}
		for _, o := range owners {
			if err := s.syncOwnerLedger(ctx, run, o); err != nil {
				return err
			}
		}
		if run.Options.SyncSocios {
			store := NewStore[models.Socio](s.db)
			fetch := func(ctx context.Context, _ []models.Socio) ([]models.Socio, error) {
				return owners, nil
			}
			if err := Reconcile(ctx, store, fetch, stepProgress(run, "socios")); err != nil {
				return fmt.Errorf("socio sync: %w", err)
			}
		}
	}

	return s.syncOwnerLedger(ctx, run, *owner)
}

// syncOwnerLedger reconciles one owner's transactions and flushes pending
// notifications.
func (s *Service) syncOwnerLedger(ctx context.Context, run *Run, owner models.Socio) error {
	store := NewScopedStore[models.LedgerTransaction](s.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id_socio = ?", owner.IDSocio)
	})

	fetch := func(ctx context.Context, cached []models.LedgerTransaction) ([]models.LedgerTransaction, error) {
		remote, err := s.ledger.Transactions(ctx, owner.IDSocio)
		if err != nil {
			return nil, err
		}
		// The notified flag exists only locally; carry it across the upsert
		// so re-fetching an unchanged transaction never re-announces it.
		notified := make(map[int64]bool, len(cached))
		for _, c := range cached {
			if c.Notified {
				notified[c.ID] = true
			}
		}
		for i := range remote {
			if notified[remote[i].ID] {
				remote[i].Notified = true
			}
		}
		return remote, nil
	}

	step := fmt.Sprintf("ledger %d", owner.IDSocio)
	if err := Reconcile(ctx, store, fetch, stepProgress(run, step)); err != nil {
		return fmt.Errorf("ledger sync for owner %d: %w", owner.IDSocio, err)
	}

	return s.notifier.DiffAndNotify(ctx, owner, store, s.firstRun)
}

// syncAssociatedOwners is the second pass: for every account, fetch the
// financially associated owners of its socio and mirror each of their
// ledgers. One associated owner failing is logged and must not abort its
// siblings or the outer loop.
func (s *Service) syncAssociatedOwners(ctx context.Context, run *Run, accounts []models.Account) {
	for i := range accounts {
		if ctx.Err() != nil {
			return
		}
		acct := &accounts[i]
		if acct.AuthToken == "" {
			continue
		}

		owner, err := s.ledger.ResolveOwner(ctx, acct.DNI)
		if err != nil {
			s.logger.Warn("Owner resolution failed during associated pass",
				zap.String("account", acct.DNI), zap.Error(err))
			continue
		}
		if owner == nil {
			continue
		}

		associated, err := s.ledger.AssociatedOwners(ctx, owner.IDSocio)
		if err != nil {
			s.logger.Warn("Failed to list associated owners",
				zap.Int64("owner", owner.IDSocio), zap.Error(err))
			continue
		}

		for _, assoc := range associated {
			if ctx.Err() != nil {
				return
			}
			if err := s.syncOwnerLedger(ctx, run, assoc); err != nil {
				s.logger.Warn("Associated owner sync failed",
					zap.Int64("owner", owner.IDSocio),
					zap.Int64("associated", assoc.IDSocio),
					zap.Error(err))
				continue
			}
		}
	}
}
