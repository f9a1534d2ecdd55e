package present

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatcher_PreservesProgramOrder(t *testing.T) {
	d := NewDispatcher(16, zap.NewNop().Sugar())

	var order []int
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		i := i
		d.Post(func() {
			order = append(order, i)
			wg.Done()
		})
	}
	wg.Wait()
	d.Stop()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestDispatcher_SerializesConcurrentPosters(t *testing.T) {
	d := NewDispatcher(128, zap.NewNop().Sugar())

	// counter is unguarded on purpose: the dispatcher is the only thing
	// allowed to touch it, exactly like the queue and the state machine
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				wg.Add(1)
				d.Post(func() {
					counter++
					wg.Done()
				})
			}
		}()
	}
	wg.Wait()
	d.Stop()

	assert.Equal(t, 400, counter)
}

func TestDispatcher_StopDrainsPendingTasks(t *testing.T) {
	d := NewDispatcher(32, zap.NewNop().Sugar())

	ran := 0
	for i := 0; i < 20; i++ {
		d.Post(func() { ran++ })
	}
	d.Stop()

	assert.Equal(t, 20, ran)
}

func TestDispatcher_PostAfterStopIsDropped(t *testing.T) {
	d := NewDispatcher(4, zap.NewNop().Sugar())
	d.Stop()

	// must not panic or block
	d.Post(func() { t.Fatal("task ran after stop") })
}
