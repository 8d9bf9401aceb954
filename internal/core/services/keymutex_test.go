package services

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutex_SerializesSameKey(t *testing.T) {
	km := newKeyMutex()

	var inSection, maxInSection int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := km.Lock("k")
			defer release()

			if n := atomic.AddInt32(&inSection, 1); n > atomic.LoadInt32(&maxInSection) {
				atomic.StoreInt32(&maxInSection, n)
			}
			atomic.AddInt32(&inSection, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInSection))
}

func TestKeyMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := newKeyMutex()

	releaseA := km.Lock("a")
	done := make(chan struct{})
	go func() {
		releaseB := km.Lock("b")
		releaseB()
		close(done)
	}()

	<-done
	releaseA()
}

func TestKeyMutex_EntriesAreReclaimed(t *testing.T) {
	km := newKeyMutex()

	release := km.Lock("k")
	release()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}
