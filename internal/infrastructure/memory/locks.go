package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errLockTimeout = errors.New("tiempo de espera del lock agotado")

// keyedLocks mutex por clave; claves distintas no se bloquean entre sí.
type keyedLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{slots: make(map[string]chan struct{})}
}

func (k *keyedLocks) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[key] = ch
	}
	return ch
}

func (k *keyedLocks) acquire(ctx context.Context, key string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case k.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errLockTimeout
	}
}

func (k *keyedLocks) release(key string) {
	<-k.slot(key)
}
