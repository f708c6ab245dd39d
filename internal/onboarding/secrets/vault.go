package secrets

import (
	"sync"
	"time"

	id "satnam/pkg/domain"
)

// Vault holds one secret per participant in memory only. With a lifetime
// set, each entry is wiped when its timer fires; Put restarts the timer.
type Vault struct {
	lifetime  time.Duration
	scheduler Scheduler

	mu      sync.Mutex
	entries map[id.ParticipantID]*vaultEntry
}

type vaultEntry struct {
	buf   *Buffer
	timer Timer
}

type VaultOption func(*Vault)

// WithLifetime wipes each entry d after it was stored.
func WithLifetime(d time.Duration) VaultOption {
	return func(v *Vault) {
		if d > 0 {
			v.lifetime = d
		}
	}
}

func WithVaultScheduler(s Scheduler) VaultOption {
	return func(v *Vault) {
		if s != nil {
			v.scheduler = s
		}
	}
}

func NewVault(opts ...VaultOption) *Vault {
	v := &Vault{
		scheduler: realScheduler{},
		entries:   make(map[id.ParticipantID]*vaultEntry),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Put stores secret for pid, taking ownership and wiping any previous one.
func (v *Vault) Put(pid id.ParticipantID, secret []byte) {
	e := &vaultEntry{buf: NewBuffer(secret)}

	v.mu.Lock()
	defer v.mu.Unlock()
	if old, ok := v.entries[pid]; ok {
		old.wipe()
	}
	v.entries[pid] = e
	if v.lifetime > 0 {
		e.timer = v.scheduler.AfterFunc(v.lifetime, func() { v.expire(pid, e) })
	}
}

// expire wipes e unless it was already replaced or removed.
func (v *Vault) expire(pid id.ParticipantID, e *vaultEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.entries[pid] == e {
		delete(v.entries, pid)
	}
	e.buf.Wipe()
}

// Get returns a copy of pid's secret, or false when none is held.
// The caller should wipe the copy.
func (v *Vault) Get(pid id.ParticipantID) ([]byte, bool) {
	v.mu.Lock()
	e, ok := v.entries[pid]
	v.mu.Unlock()
	if !ok || e.buf.Wiped() {
		return nil, false
	}
	return e.buf.Read(), true
}

// Has reports whether a secret is held for pid.
func (v *Vault) Has(pid id.ParticipantID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[pid]
	return ok && !e.buf.Wiped()
}

// Wipe discards pid's secret. Returns false when none was held.
func (v *Vault) Wipe(pid id.ParticipantID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[pid]
	if !ok {
		return false
	}
	e.wipe()
	delete(v.entries, pid)
	return true
}

// WipeAll discards every secret.
func (v *Vault) WipeAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for pid, e := range v.entries {
		e.wipe()
		delete(v.entries, pid)
	}
}

func (e *vaultEntry) wipe() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.buf.Wipe()
}
