package mutex

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()

	var km KeyedMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("chat:1")
			defer km.Unlock("chat:1")
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if km.Len() != 0 {
		t.Errorf("Len() = %d after all unlocks, want 0", km.Len())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	t.Parallel()

	var km KeyedMutex
	km.Lock("a")
	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")
}

func TestKeyedMutexUnlockUnknownKey(t *testing.T) {
	t.Parallel()

	var km KeyedMutex
	km.Unlock("missing")
	if km.Len() != 0 {
		t.Errorf("Len() = %d, want 0", km.Len())
	}
}
