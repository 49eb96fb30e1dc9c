package session

import (
	"sync"
	"testing"
)

func TestTrigger_SetAndClear(t *testing.T) {
	var tr Trigger

	if tr.TestAndClear() {
		t.Fatal("fresh trigger should not be pending")
	}

	tr.Set()
	if !tr.Pending() {
		t.Fatal("expected trigger to be pending after Set")
	}
	if !tr.TestAndClear() {
		t.Fatal("expected TestAndClear to report pending trigger")
	}
	if tr.TestAndClear() {
		t.Fatal("trigger should be cleared after TestAndClear")
	}
}

// TestTrigger_Coalesces verifies repeated sets collapse into one pending event
func TestTrigger_Coalesces(t *testing.T) {
	var tr Trigger
	for i := 0; i < 5; i++ {
		tr.Set()
	}

	hits := 0
	for i := 0; i < 5; i++ {
		if tr.TestAndClear() {
			hits++
		}
	}
	if hits != 1 {
		t.Errorf("expected exactly 1 consumed trigger, got %d", hits)
	}
}

// TestTrigger_ConcurrentSet sets from many goroutines while one consumer clears
// Run with: go test -race
func TestTrigger_ConcurrentSet(t *testing.T) {
	var tr Trigger
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Set()
		}()
	}

	consumed := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if tr.TestAndClear() {
				consumed++
			}
		}
	}()

	wg.Wait()
	<-done
	if tr.TestAndClear() {
		consumed++
	}
	if consumed < 1 || consumed > 20 {
		t.Errorf("consumed %d triggers, want between 1 and 20", consumed)
	}
}
