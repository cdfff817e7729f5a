package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocker_SerializesSameKey(t *testing.T) {
	l := New[int64]()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(7)
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.size())
}

func TestLocker_IndependentKeys(t *testing.T) {
	l := New[int64]()

	unlockA := l.Lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock(2)
		unlockB()
		close(done)
	}()

	<-done
	unlockA()
	assert.Equal(t, 0, l.size())
}
