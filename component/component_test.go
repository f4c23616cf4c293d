package component

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	*m.events = append(*m.events, "start:"+m.name)
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	*m.events = append(*m.events, "stop:"+m.name)
	return m.stopErr
}

func (m *mockComponent) Health(context.Context) Health {
	return Health{Name: m.name, Status: StatusHealthy}
}

type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() Description {
	return Description{Type: "rest", Details: "https://api.example.com/"}
}

func TestRegistry_Lifecycle(t *testing.T) {
	var events []string
	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		if err := r.Register(&mockComponent{name: name, events: &events}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	want := "start:a,start:b,start:c,stop:c,stop:b,stop:a"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "a", events: &events})
	if err := r.Register(&mockComponent{name: "a", events: &events}); err == nil {
		t.Error("expected duplicate error")
	}
}

func TestRegistry_StartFailureSkipsUnstarted(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "a", events: &events})
	_ = r.Register(&mockComponent{name: "b", events: &events, startErr: errors.New("boom")})
	_ = r.Register(&mockComponent{name: "c", events: &events})

	if err := r.StartAll(context.Background()); err == nil || !strings.Contains(err.Error(), "failed to start b") {
		t.Fatalf("expected start failure, got %v", err)
	}
	_ = r.StopAll(context.Background())
	want := "start:a,start:b,stop:a"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRegistry_StopJoinsErrors(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "a", events: &events, stopErr: errors.New("a down")})
	_ = r.Register(&mockComponent{name: "b", events: &events, stopErr: errors.New("b down")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "a down") || !strings.Contains(err.Error(), "b down") {
		t.Errorf("expected both errors, got %v", err)
	}
}

func TestRegistry_LookupHealthAndDescriptions(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "plain", events: &events})
	_ = r.Register(&describedComponent{mockComponent{name: "github", events: &events}})

	if r.Get("github") == nil || r.Get("nope") != nil {
		t.Error("unexpected Get result")
	}
	health := r.HealthAll(context.Background())
	if len(health) != 2 || health[1].Status != StatusHealthy {
		t.Errorf("unexpected health %v", health)
	}
	desc := r.Descriptions()
	if desc[0].Name != "plain" || desc[1].Name != "github" || desc[1].Type != "rest" {
		t.Errorf("unexpected descriptions %+v", desc)
	}
}
