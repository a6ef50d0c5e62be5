package rqueue

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExactlyOnce(t *testing.T) {
	const producers, perProducer = 4, 250
	q := New(10, 32, 1337)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if !q.Push(p*perProducer + i) {
					t.Errorf("Push failed on an open queue")
				}
			}
		}(p)
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	var got []int
	var mu sync.Mutex
	var consumers sync.WaitGroup
	for c := 0; c < 3; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				item, ok := q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				got = append(got, item.(int))
				mu.Unlock()
			}
		}()
	}
	consumers.Wait()

	assert.Len(t, got, producers*perProducer)
	sorted := append([]int(nil), got...)
	sort.Ints(sorted)
	for i, v := range sorted {
		if v != i {
			t.Fatalf("Expected every item exactly once. Item %d is %d", i, v)
		}
	}
	assert.NotEqual(t, sorted, got, "items should come out scrambled")
}

func TestBlocksWhenFull(t *testing.T) {
	q := New(0, 2, 1)
	assert.True(t, q.Push(1))
	assert.True(t, q.Push(2))

	pushed := make(chan bool)
	go func() { pushed <- q.Push(3) }()

	select {
	case <-pushed:
		t.Fatal("Push should block on a full queue")
	case <-time.After(50 * time.Millisecond):
	}

	_, ok := q.Pop()
	assert.True(t, ok)
	assert.True(t, <-pushed)
	assert.Equal(t, 2, q.Len())
}

func TestMinThreshold(t *testing.T) {
	q := New(2, 10, 1)
	q.Push("a")
	q.Push("b")

	popped := make(chan interface{})
	go func() {
		item, _ := q.Pop()
		popped <- item
	}()
	select {
	case <-popped:
		t.Fatal("Pop should wait until more than min items are queued")
	case <-time.After(50 * time.Millisecond):
	}
	q.Push("c")
	assert.NotNil(t, <-popped)

	// closing drains below the threshold
	q.Close()
	var rest int
	for {
		if _, ok := q.Pop(); !ok {
			break
		}
		rest++
	}
	assert.Equal(t, 2, rest)
	assert.False(t, q.Push("d"))
}

func TestNewClampsThresholds(t *testing.T) {
	q := New(5, 3, 1)
	assert.Equal(t, 2, q.min)
	q = New(-1, 0, 1)
	assert.Equal(t, 0, q.min)
	assert.True(t, q.Push(1))
}
