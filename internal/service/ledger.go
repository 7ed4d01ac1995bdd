package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"stellar-pets-api/internal/logger"
	"stellar-pets-api/internal/metrics"
	"stellar-pets-api/internal/notify"
	"stellar-pets-api/internal/repository"
)

// Deps are the collaborators shared by both ledgers. Nil fields get defaults:
// ContextGate, a discarding sink, the system clock and a discarding logger.
type Deps struct {
	Store  repository.Store
	Auth   AuthGate
	Sink   notify.Sink
	Clock  Clock
	Logger logrus.FieldLogger
}

type ledgerBase struct {
	name  string
	store repository.Store
	auth  AuthGate
	sink  notify.Sink
	clock Clock
	log   *logrus.Entry
	locks *ownerLocks
}

func newLedgerBase(name string, d Deps) ledgerBase {
	b := ledgerBase{
		name:  name,
		store: d.Store,
		auth:  d.Auth,
		sink:  d.Sink,
		clock: d.Clock,
		locks: newOwnerLocks(),
	}
	if b.auth == nil {
		b.auth = ContextGate{}
	}
	if b.sink == nil {
		b.sink = notify.Nop{}
	}
	if b.clock == nil {
		b.clock = SystemClock{}
	}
	b.log = logger.Component(d.Logger, name+"_ledger")
	return b
}

// observe records the outcome of op. Called deferred with the named error result.
func (b *ledgerBase) observe(op, owner string, start time.Time, err error) {
	class := errorClass(err)
	metrics.ObserveLedgerOp(b.name, op, class, time.Since(start))

	if err == nil {
		return
	}
	entry := b.log.WithFields(logrus.Fields{"op": op, "owner": owner, "result": class})
	if IsClientError(err) {
		entry.WithError(err).Debug("operation rejected")
	} else {
		entry.WithError(err).Error("operation failed")
	}
}

// publish delivers events of a committed operation. Delivery failures are logged;
// the ledger state has already changed and is not rolled back.
func (b *ledgerBase) publish(ctx context.Context, events ...notify.Event) {
	for _, e := range events {
		if err := b.sink.Publish(ctx, e); err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{
				"topic": e.Topic,
				"owner": e.Owner,
			}).Warn("failed to publish event")
		}
	}
}

// authorize validates owner and runs the auth gate.
func (b *ledgerBase) authorize(ctx context.Context, owner string) error {
	if err := ValidateOwner(owner); err != nil {
		return err
	}
	return b.auth.RequireAuth(ctx, owner)
}
