package allocation

import (
	"context"
	"sync"
)

// skuLocks выдаёт по одному эксклюзивному слоту на SKU.
// Ожидание слота прерывается отменой ctx.
type skuLocks struct {
	mu    sync.Mutex
	slots map[string]*skuSlot
}

type skuSlot struct {
	ch      chan struct{}
	holders int
}

func newSKULocks() *skuLocks {
	return &skuLocks{slots: make(map[string]*skuSlot)}
}

// Acquire блокирует SKU и возвращает функцию освобождения.
// Слот удаляется из карты, когда его больше никто не ждёт.
func (l *skuLocks) Acquire(ctx context.Context, sku string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[sku]
	if !ok {
		slot = &skuSlot{ch: make(chan struct{}, 1)}
		l.slots[sku] = slot
	}
	slot.holders++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.leave(sku, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.leave(sku, slot)
		})
	}, nil
}

func (l *skuLocks) leave(sku string, slot *skuSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.holders--
	if slot.holders == 0 {
		delete(l.slots, sku)
	}
}

func (l *skuLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
