package di

import (
	"sync"
	"sync/atomic"
	"testing"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

func TestRegisterToken_LazyAndSingleton(t *testing.T) {
	c := NewContainer()
	tok := NewToken[greeter]("test:greeter")

	var calls atomic.Int32
	RegisterToken(c, tok, func(sr ServiceRegistry) greeter {
		calls.Add(1)
		return english{}
	})

	if calls.Load() != 0 {
		t.Fatal("factory should not run before first Get")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := GetToken(c, tok).Greet(); got != "hello" {
				t.Errorf("Greet() = %q", got)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("factory calls = %d, want 1", calls.Load())
	}
}

func TestRegister_ValueAndDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("name", "orca")

	tok := NewToken[string]("test:upper")
	RegisterToken(c, tok, func(sr ServiceRegistry) string {
		return sr.Get("name").(string) + "!"
	})

	if got := GetToken(c, tok); got != "orca!" {
		t.Errorf("GetToken = %q, want orca!", got)
	}
	if !c.Has("name") || c.Has("missing") {
		t.Error("Has reported wrong registrations")
	}
}

func TestGet_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unregistered service")
		}
	}()
	NewContainer().Get("missing")
}
