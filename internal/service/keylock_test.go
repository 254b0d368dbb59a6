package service

import (
	"sync"
	"testing"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	locks := newKeyLock()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Go(func() {
			unlock := locks.Lock("k")
			defer unlock()
			v := counter
			counter = v + 1
		})
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
	if locks.size() != 0 {
		t.Fatalf("expected released keys to be removed, %d remain", locks.size())
	}
}

func TestKeyLockIndependentKeys(t *testing.T) {
	locks := newKeyLock()
	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		unlock()
		close(done)
	}()
	<-done
}
