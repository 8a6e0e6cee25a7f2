package session

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	langs := testLanguages(t)
	return NewRegistry(func(language string) (*Session, error) {
		return New(&fakeModel{}, langs, "sys", language)
	})
}

func TestRegistryOpenAndWith(t *testing.T) {
	r := newTestRegistry(t)
	id, err := r.Open("thai")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}

	err = r.With(id, func(s *Session) error {
		if s.ActiveLanguage() != "thai" {
			t.Errorf("active = %q", s.ActiveLanguage())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
}

func TestRegistryUnknownSession(t *testing.T) {
	r := newTestRegistry(t)
	err := r.With("missing", func(*Session) error { return nil })
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("With err = %v", err)
	}
	if err := r.Close("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Close err = %v", err)
	}
}

func TestRegistryOpenRejectsUnknownLanguage(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Open("klingon"); err == nil {
		t.Fatal("expected error")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	r := newTestRegistry(t)
	ids := make([]string, 4)
	for i := range ids {
		id, err := r.Open("english")
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(n int, id string) {
			defer wg.Done()
			for j := 0; j <= n; j++ {
				_ = r.With(id, func(s *Session) error {
					_, err := s.SubmitUserTurn(context.Background(), "hi")
					return err
				})
			}
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		_ = r.With(id, func(s *Session) error {
			if want := 1 + 2*(i+1); s.Len() != want {
				t.Errorf("session %d len = %d, want %d", i, s.Len(), want)
			}
			return nil
		})
	}

	if err := r.Close(ids[0]); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 3 {
		t.Errorf("Len after close = %d", r.Len())
	}
}
