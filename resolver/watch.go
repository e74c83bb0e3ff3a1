// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/htlc/escrow"
	"github.com/luxfi/htlc/events"
	"github.com/luxfi/htlc/factory"
)

// WatchAndComplete consumes a protocol record feed and propagates revealed
// secrets across legs: when a withdrawal on one leg exposes its pre-image,
// the counter-leg escrow for the same order hash is withdrawn with it. The
// loop runs until ctx is cancelled or the feed closes.
//
// Completion is best effort. A counter-leg that is already terminal, or whose
// window has not opened yet, is logged and skipped; the record log is
// append-only, so a later feed replay can retry.
func (r *Resolver) WatchAndComplete(ctx context.Context, feed <-chan events.Event, fac *factory.EscrowFactory) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-feed:
			if !ok {
				return nil
			}
			wd, isWithdrawal := ev.(events.EscrowWithdrawn)
			if !isWithdrawal {
				continue
			}
			r.propagateSecret(wd, fac)
		}
	}
}

func (r *Resolver) propagateSecret(wd events.EscrowWithdrawn, fac *factory.EscrowFactory) {
	counter, ok := fac.Escrow(wd.OrderHash, wd.Leg.Other())
	if !ok {
		return
	}
	if counter.Completed() {
		return
	}

	r.mu.Lock()
	r.secrets[wd.OrderHash] = append([]byte(nil), wd.Secret...)
	r.hashes[wd.OrderHash] = counter.Hashlock()
	r.mu.Unlock()

	err := counter.Withdraw(r.address, wd.Secret)
	if errors.Is(err, escrow.ErrUnauthorized) {
		// Not the taker on this leg; fall back to the public window.
		err = counter.PublicWithdraw(r.address, wd.Secret)
	}
	switch {
	case err == nil:
		r.log.Info(fmt.Sprintf("propagated secret for %s to %s leg",
			wd.OrderHash.Hex(), wd.Leg.Other()))
	case errors.Is(err, escrow.ErrAlreadyCompleted):
		// Lost the race; nothing left to do.
	default:
		r.log.Warn(fmt.Sprintf("counter-leg withdrawal for %s failed: %v",
			wd.OrderHash.Hex(), err))
	}
}
