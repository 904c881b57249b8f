package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_Submit(t *testing.T) {
	p := New(4, nil)
	defer p.Close()

	var counter int64
	for i := 0; i < 100; i++ {
		p.Submit(func() {
			atomic.AddInt64(&counter, 1)
		})
	}
	p.Wait()

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := New(3, nil)
	defer p.Close()

	var current, peak int64
	for i := 0; i < 30; i++ {
		p.Submit(func() {
			n := atomic.AddInt64(&current, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&current, -1)
		})
	}
	p.Wait()

	if peak > 3 {
		t.Errorf("peak concurrency %d exceeds capacity 3", peak)
	}
	if p.Running() > p.Cap() {
		t.Errorf("Running() = %d exceeds Cap() = %d", p.Running(), p.Cap())
	}
}

func TestPool_PanicDoesNotKillPool(t *testing.T) {
	p := New(1, nil)
	defer p.Close()

	p.Submit(func() { panic("boom") })

	var ran atomic.Bool
	p.Submit(func() { ran.Store(true) })
	p.Wait()

	if !ran.Load() {
		t.Error("task after a panic must still run")
	}
}

func TestPool_Close(t *testing.T) {
	p := New(4, nil)

	var counter int64
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			atomic.AddInt64(&counter, 1)
		})
	}
	p.Close()

	if counter != 10 {
		t.Errorf("Expected 10 tasks to complete before Close returns, got %d", counter)
	}
	if !p.IsClosed() {
		t.Error("expected IsClosed")
	}
	if p.Submit(func() {}) {
		t.Error("Submit after Close must return false")
	}
	p.Close()
}

func TestPool_ConcurrentSubmit(t *testing.T) {
	p := New(8, nil)
	defer p.Close()

	var counter int64
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				p.Submit(func() { atomic.AddInt64(&counter, 1) })
			}
		}()
	}
	wg.Wait()
	p.Wait()

	if counter != 500 {
		t.Errorf("Expected 500, got %d", counter)
	}
}

func TestPool_SubmitRacingClose(t *testing.T) {
	p := New(2, nil)

	var accepted, ran int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if p.Submit(func() { atomic.AddInt64(&ran, 1) }) {
					atomic.AddInt64(&accepted, 1)
				}
			}
		}()
	}
	p.Close()
	wg.Wait()

	if ran != accepted {
		t.Errorf("accepted %d tasks but ran %d", accepted, ran)
	}
}
