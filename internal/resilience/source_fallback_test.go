package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/halidom/internal/entity"
	"github.com/MrWong99/halidom/internal/observe"
)

var errTest = errors.New("test error")

type failingSource struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSource) Load(context.Context) (*entity.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, errTest
}

type recordingCache struct {
	saved []*entity.Snapshot
}

func (r *recordingCache) Save(snap *entity.Snapshot) error {
	r.saved = append(r.saved, snap)
	return nil
}

func smallSnapshot() *entity.Snapshot {
	return &entity.Snapshot{
		Adventurers: []*entity.Adventurer{{
			Name: "Euden", Rarity: 5, Element: entity.Flame, WeaponType: entity.Sword,
		}},
	}
}

func sourceMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}
	return m, reader
}

func loadCount(t *testing.T, reader *sdkmetric.ManualReader, source, status string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "halidom.source.loads" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("halidom.source.loads has type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				src, _ := dp.Attributes.Value("source")
				st, _ := dp.Attributes.Value("status")
				if src.AsString() == source && st.AsString() == status {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestSourceFallback_UsesFirstHealthySource(t *testing.T) {
	t.Parallel()
	m, reader := sourceMetrics(t)
	primary := &failingSource{}
	cache := &recordingCache{}

	sf := NewSourceFallback(BreakerConfig{Threshold: 2, Cooldown: time.Hour},
		WithSourceMetrics(m), WithCache("cache", cache))
	sf.Add("postgres", primary)
	sf.Add("files", entity.NewMemSource(smallSnapshot()))
	sf.Add("cache", entity.NewMemSource(smallSnapshot()))

	for range 3 {
		snap, err := sf.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if snap.Version == "" {
			t.Fatal("served snapshot is not sealed")
		}
	}

	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2 before the breaker opens", primary.calls)
	}
	if len(cache.saved) != 3 {
		t.Errorf("cache saved %d snapshots, want 3", len(cache.saved))
	}
	if got := loadCount(t, reader, "postgres", observe.StatusError); got != 2 {
		t.Errorf("postgres errors = %d, want 2", got)
	}
	if got := loadCount(t, reader, "postgres", "skipped"); got != 1 {
		t.Errorf("postgres skipped = %d, want 1", got)
	}
	if got := loadCount(t, reader, "files", observe.StatusOK); got != 3 {
		t.Errorf("files ok = %d, want 3", got)
	}
	if states := sf.States(); states[0].State != StateOpen {
		t.Errorf("primary state = %v, want open", states[0].State)
	}
}

func TestSourceFallback_CacheServedIsNotRewritten(t *testing.T) {
	t.Parallel()
	m, _ := sourceMetrics(t)
	cache := &recordingCache{}

	sf := NewSourceFallback(BreakerConfig{Threshold: 5},
		WithSourceMetrics(m), WithCache("cache", cache))
	sf.Add("postgres", &failingSource{})
	sf.Add("cache", entity.NewMemSource(smallSnapshot()))

	if _, err := sf.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cache.saved) != 0 {
		t.Errorf("cache rewrote its own snapshot %d times", len(cache.saved))
	}
}

func TestSourceFallback_AllFail(t *testing.T) {
	t.Parallel()
	m, _ := sourceMetrics(t)

	sf := NewSourceFallback(BreakerConfig{Threshold: 5},
		WithSourceMetrics(m))
	sf.Add("postgres", &failingSource{})
	sf.Add("empty", entity.NewMemSource(nil))

	_, err := sf.Load(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, entity.ErrNoSnapshot) {
		t.Fatalf("err = %v, want the last source error", err)
	}
}

func TestSourceFallback_CancelledContext(t *testing.T) {
	t.Parallel()
	m, _ := sourceMetrics(t)
	sf := NewSourceFallback(BreakerConfig{Threshold: 1},
		WithSourceMetrics(m))
	sf.Add("mem", entity.NewMemSource(smallSnapshot()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sf.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sf.States()[0].State != StateClosed {
		t.Error("cancellation tripped the breaker")
	}
}
