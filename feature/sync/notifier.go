package sync

import (
	"context"

	"membersync/feature/sync/models"

	"go.uber.org/zap"
)

// NotifyFunc delivers one transaction notification. It is fire-and-forget;
// the notifier never inspects a result.
type NotifyFunc func(owner models.Socio, tx models.LedgerTransaction)

// Notifier emits exactly one notification per ledger transaction.
//
// The notified flag is persisted before the next run can observe the row, so
// a transaction that survives any number of re-fetches is still announced
// only once. On the engine's very first run (local ledger empty beforehand)
// every pending transaction is marked without being announced, so a fresh
// install does not flood the user with historical movements.
type Notifier struct {
	notify NotifyFunc
	logger *zap.Logger
}

// NewNotifier creates a notifier delivering through fn. A nil fn mutes
// delivery but still marks rows, which keeps the flag semantics intact.
func NewNotifier(fn NotifyFunc, logger *zap.Logger) *Notifier {
	return &Notifier{notify: fn, logger: logger}
}

// DiffAndNotify walks the owner's reconciled transactions and announces the
// ones not yet notified, marking each as it goes.
func (n *Notifier) DiffAndNotify(ctx context.Context, owner models.Socio, store Store[models.LedgerTransaction], firstRun bool) error {
	txs, err := store.ListAll(ctx)
	if err != nil {
		return err
	}

	announced := 0
	for _, tx := range txs {
		if tx.Notified {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if !firstRun && n.notify != nil {
			n.notify(owner, tx)
			announced++
		}

		tx.Notified = true
		if err := store.Update(ctx, tx); err != nil {
			return err
		}
	}

	if announced > 0 {
		n.logger.Info("Announced ledger transactions",
			zap.Int64("owner", owner.IDSocio),
			zap.Int("count", announced),
		)
	}
	return nil
}
