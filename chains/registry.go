// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chains

import (
	"sync"

	"github.com/luxfi/geth/common"
)

// Registry is a chain-id to remote-identity directory. It is kept
// per-resolver and, separately, per-factory as a global directory.
// Registration is additive and idempotent: re-registering a chain id
// replaces the binding.
type Registry struct {
	bindings map[uint64]Binding
	locals   map[localKey]common.Address

	mu sync.RWMutex
}

type localKey struct {
	chainID  uint64
	identity string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[uint64]Binding),
		locals:   make(map[localKey]common.Address),
	}
}

// Register validates and stores a binding, replacing any existing binding
// for the same chain id.
func (r *Registry) Register(chainID uint64, scheme Scheme, identity RemoteIdentity) error {
	b, err := NewBinding(chainID, scheme, identity)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[chainID] = b
	return nil
}

// RegisterBatch registers parallel slices of bindings. All three slices must
// have the same length; on any validation failure nothing is stored.
func (r *Registry) RegisterBatch(chainIDs []uint64, schemes []Scheme, identities []RemoteIdentity) error {
	if len(chainIDs) != len(schemes) || len(chainIDs) != len(identities) {
		return ErrArrayLengthMismatch
	}

	staged := make([]Binding, 0, len(chainIDs))
	for i := range chainIDs {
		b, err := NewBinding(chainIDs[i], schemes[i], identities[i])
		if err != nil {
			return err
		}
		staged = append(staged, b)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range staged {
		r.bindings[b.ChainID] = b
	}
	return nil
}

// Supported reports whether a chain id has a binding.
func (r *Registry) Supported(chainID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[chainID]
	return ok
}

// Get returns the binding for a chain id.
func (r *Registry) Get(chainID uint64) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[chainID]
	return b, ok
}

// Remove drops the binding for a chain id, if any.
func (r *Registry) Remove(chainID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, chainID)
}

// ChainIDs returns the registered chain ids in unspecified order.
func (r *Registry) ChainIDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint64, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	return ids
}

// BindLocal records the local address a remote identity maps to. Used by the
// factory to translate an order's remote maker into a local escrow party.
func (r *Registry) BindLocal(chainID uint64, identity RemoteIdentity, local common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locals[localKey{chainID, string(identity)}] = local
}

// LocalFor looks up the local address bound to a remote identity.
func (r *Registry) LocalFor(chainID uint64, identity RemoteIdentity) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	local, ok := r.locals[localKey{chainID, string(identity)}]
	return local, ok
}
