package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestTry(t *testing.T) {
	tests := []struct {
		name     string
		links    []string
		broken   map[string]bool
		want     string
		wantErr  bool
		wantLast bool
	}{
		{name: "first wins", links: []string{"pg", "yaml"}, want: "pg"},
		{name: "falls through", links: []string{"pg", "yaml", "cache"}, broken: map[string]bool{"pg": true}, want: "yaml"},
		{name: "all broken", links: []string{"pg", "yaml"}, broken: map[string]bool{"pg": true, "yaml": true}, wantErr: true, wantLast: true},
		{name: "empty", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChain[string](BreakerConfig{Threshold: 3})
			for _, l := range tt.links {
				c.Append(l, l)
			}
			got, from, err := Try(c, func(v string) (string, error) {
				if tt.broken[v] {
					return "", errTest
				}
				return "from " + v, nil
			})
			if tt.wantErr {
				if !errors.Is(err, ErrExhausted) {
					t.Fatalf("err = %v, want ErrExhausted", err)
				}
				if errors.Is(err, errTest) != tt.wantLast {
					t.Fatalf("err = %v, last failure wrapped = %v", err, !tt.wantLast)
				}
				return
			}
			if err != nil {
				t.Fatalf("Try: %v", err)
			}
			if got != "from "+tt.want || from != tt.want {
				t.Errorf("Try = %q from %q, want link %q", got, from, tt.want)
			}
		})
	}
}

func TestChain_SkipsOpenLinks(t *testing.T) {
	type attempt struct {
		name string
		err  error
	}
	var seen []attempt
	c := NewChain[int](BreakerConfig{Threshold: 1, Cooldown: time.Hour})
	c.Attempted = func(name string, err error) { seen = append(seen, attempt{name, err}) }
	c.Append("one", 1)
	c.Append("two", 2)

	oddFails := func(v int) (int, error) {
		if v%2 == 1 {
			return 0, errTest
		}
		return v * 10, nil
	}
	for range 2 {
		if got, _, err := Try(c, oddFails); err != nil || got != 20 {
			t.Fatalf("Try = %d, %v", got, err)
		}
	}

	want := []attempt{{"one", errTest}, {"two", nil}, {"one", ErrBreakerOpen}, {"two", nil}}
	if len(seen) != len(want) {
		t.Fatalf("attempts = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i].name != want[i].name || !errors.Is(seen[i].err, want[i].err) {
			t.Errorf("attempt %d = %+v, want %+v", i, seen[i], want[i])
		}
	}

	states := c.States()
	if c.Len() != 2 || states[0] != (LinkState{"one", StateOpen}) || states[1] != (LinkState{"two", StateClosed}) {
		t.Errorf("States() = %+v", states)
	}
}
