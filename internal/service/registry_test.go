package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

func testSession(id string) *Session {
	return NewSession(battle.NewMatch(id, battle.DefaultConfig(), battle.NewPlayer("p-"+id, "h-"+id), time.Unix(0, 0)))
}

func TestRegistryInsertGetRemove(t *testing.T) {
	r := NewRegistry(8)
	s := testSession("m1")
	if err := r.Insert(s); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := r.Insert(testSession("m1")); !errors.Is(err, ErrDuplicateMatch) {
		t.Errorf("duplicate Insert = %v, want ErrDuplicateMatch", err)
	}
	got, ok := r.Get("m1")
	if !ok || got != s {
		t.Fatalf("Get returned %v, %v", got, ok)
	}
	if !r.Remove("m1") {
		t.Fatal("Remove returned false")
	}
	if r.Remove("m1") {
		t.Error("second Remove returned true")
	}
	if _, ok := r.Get("m1"); ok {
		t.Error("session still registered")
	}
	if err := s.Do(func(*battle.Match) error { return nil }); !errors.Is(err, battle.ErrMatchNotFound) {
		t.Errorf("Do after Remove = %v, want ErrMatchNotFound", err)
	}
}

func TestRegistryRemoveWaitsForCommand(t *testing.T) {
	r := NewRegistry(1)
	s := testSession("m1")
	if err := r.Insert(s); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Do(func(*battle.Match) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	removed := make(chan struct{})
	go func() {
		r.Remove("m1")
		close(removed)
	}()

	select {
	case <-removed:
		t.Fatal("Remove returned while a command held the match")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight command: %v", err)
	}
	<-removed
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry(16)
	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("m%d", i)
			if err := r.Insert(testSession(id)); err != nil {
				t.Errorf("Insert %s: %v", id, err)
			}
			if i%2 == 0 {
				r.Remove(id)
			}
		}()
	}
	wg.Wait()
	if got := r.Len(); got != 100 {
		t.Errorf("Len() = %d, want 100", got)
	}

	seen := 0
	r.Range(func(*Session) bool {
		seen++
		return true
	})
	if seen != 100 {
		t.Errorf("Range visited %d, want 100", seen)
	}

	seen = 0
	r.Range(func(*Session) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Errorf("Range after stop visited %d, want 1", seen)
	}
}

func TestSessionRecoversPanic(t *testing.T) {
	s := testSession("m1")
	err := s.Do(func(m *battle.Match) error {
		var grid *battle.Grid
		grid.ReceiveShot(0, 0)
		return nil
	})
	if !errors.Is(err, battle.ErrInternal) {
		t.Fatalf("Do() = %v, want ErrInternal", err)
	}
	if err := s.Do(func(*battle.Match) error { return nil }); err != nil {
		t.Errorf("session unusable after panic: %v", err)
	}
}

func TestTakeResultOnce(t *testing.T) {
	s := testSession("m1")
	_ = s.Do(func(m *battle.Match) error {
		if r := s.takeResult(); r != nil {
			t.Error("result before finish")
		}
		m.Status = battle.StatusFinished
		m.Reason = battle.ReasonTimeout
		if r := s.takeResult(); r == nil || r.Reason != "timeout" {
			t.Errorf("takeResult() = %+v", r)
		}
		if r := s.takeResult(); r != nil {
			t.Error("result returned twice")
		}
		return nil
	})
}
