package entity_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/halidom/internal/entity"
)

// mockRows implements pgx.Rows over (kind, data) pairs.
type mockRows struct {
	data [][2]any
	idx  int
	err  error
}

func (r *mockRows) Close()                                       {}
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != 2 {
		return fmt.Errorf("scan: expected 2 destinations, got %d", len(dest))
	}
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*[]byte) = row[1].([]byte)
	return nil
}

// mockDB records Exec calls and serves canned rows.
type mockDB struct {
	mu       sync.Mutex
	rows     *mockRows
	queryErr error
	execErr  error
	execs    []string
	args     [][]any
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.rows, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs = append(m.execs, sql)
	m.args = append(m.args, args)
	return pgconn.CommandTag{}, m.execErr
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestPostgresSource_Load(t *testing.T) {
	t.Parallel()

	s := testSnapshot()
	db := &mockDB{rows: &mockRows{data: [][2]any{
		{"adventurer", mustJSON(t, s.Adventurers[0])},
		{"dragon", mustJSON(t, s.Dragons[0])},
		{"weapon", mustJSON(t, s.Weapons[0])},
	}}}

	snap, err := entity.NewPostgresSource(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Version == "" {
		t.Error("snapshot is not sealed")
	}
	if len(snap.Adventurers) != 1 || snap.Adventurers[0].Name != "Euden" {
		t.Errorf("adventurers = %+v", snap.Adventurers)
	}
	if len(snap.Dragons) != 1 || len(snap.Weapons) != 1 {
		t.Errorf("dragons=%d weapons=%d", len(snap.Dragons), len(snap.Weapons))
	}
}

func TestPostgresSource_LoadErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	empty := &mockDB{rows: &mockRows{}}
	if _, err := entity.NewPostgresSource(empty).Load(ctx); !errors.Is(err, entity.ErrNoSnapshot) {
		t.Errorf("empty table err = %v", err)
	}

	boom := errors.New("connection refused")
	if _, err := entity.NewPostgresSource(&mockDB{queryErr: boom}).Load(ctx); !errors.Is(err, boom) {
		t.Errorf("query err = %v", err)
	}

	badKind := &mockDB{rows: &mockRows{data: [][2]any{{"npc", []byte(`{}`)}}}}
	if _, err := entity.NewPostgresSource(badKind).Load(ctx); err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Errorf("bad kind err = %v", err)
	}

	rowsErr := &mockDB{rows: &mockRows{err: boom}}
	if _, err := entity.NewPostgresSource(rowsErr).Load(ctx); !errors.Is(err, boom) {
		t.Errorf("rows err = %v", err)
	}
}

func TestPostgresSource_Save(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	src := entity.NewPostgresSource(db)
	s := testSnapshot()
	if err := src.Save(context.Background(), s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// One upsert per entity plus the prune.
	if want := s.Len() + 1; len(db.execs) != want {
		t.Fatalf("exec count = %d, want %d", len(db.execs), want)
	}
	if !strings.Contains(db.execs[0], "ON CONFLICT") {
		t.Errorf("first statement = %q, want upsert", db.execs[0])
	}
	if db.args[0][0] != "adventurer" || db.args[0][1] != "Euden" {
		t.Errorf("first upsert args = %v", db.args[0][:2])
	}
	keep := db.args[len(db.args)-1][0].([]string)
	if len(keep) != s.Len() || keep[0] != "adventurer:Euden" {
		t.Errorf("prune keep list = %v", keep)
	}
}

func TestPostgresSource_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	s := testSnapshot()
	s.Dragons[0].Element = "earth"
	if err := entity.NewPostgresSource(db).Save(context.Background(), s); err == nil {
		t.Fatal("expected validation error")
	}
	if len(db.execs) != 0 {
		t.Errorf("invalid snapshot reached the database: %v", db.execs)
	}
}

func TestPostgresSource_Migrate(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	if err := entity.NewPostgresSource(db).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execs) != 1 || db.execs[0] != entity.Schema {
		t.Errorf("Migrate executed %v", db.execs)
	}

	db = &mockDB{execErr: errors.New("permission denied")}
	if err := entity.NewPostgresSource(db).Migrate(context.Background()); err == nil {
		t.Error("expected migrate error")
	}
}
