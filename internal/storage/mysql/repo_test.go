package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"lifeexp/internal/storage"
)

func TestMyIdent(t *testing.T) {
	cases := []struct{ in, want string }{
		{"region", "`region`"},
		{"tick`name", "`tick``name`"},
	}
	for _, tc := range cases {
		if got := myIdent(tc.in); got != tc.want {
			t.Fatalf("myIdent(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
	if got := myFQN("stats.le"); got != "`stats`.`le`" {
		t.Fatalf("myFQN = %q", got)
	}
}

func TestInsertSQL(t *testing.T) {
	got := insertSQL("le", []string{"region", "year"}, 2)
	want := "INSERT INTO `le` (`region`, `year`) VALUES (?, ?), (?, ?)"
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

func TestChunkRows(t *testing.T) {
	rows := make([][]any, 5)
	chunks := chunkRows(rows, 2)
	if len(chunks) != 3 || len(chunks[0]) != 2 || len(chunks[2]) != 1 {
		t.Fatalf("chunks = %v", chunks)
	}
	if got := chunkRows(rows, 0); len(got) != 5 {
		t.Fatalf("size 0 should fall back to 1, got %d chunks", len(got))
	}
}

func TestCreateTableSQL(t *testing.T) {
	got, err := storage.CreateTableSQL(storage.Config{
		Kind:       Kind,
		Table:      "life_expectancy",
		Columns:    []string{"region", "year", "value"},
		KeyColumns: []string{"region", "year"},
		Types:      map[string]string{"year": "int", "value": "float"},
	})
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS `life_expectancy`",
		"`region` VARCHAR(64) NOT NULL",
		"`year` BIGINT NOT NULL",
		"`value` DOUBLE,",
		"PRIMARY KEY (`region`, `year`)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("DDL missing %q:\n%s", want, got)
		}
	}
}

/*
TestCopyFrom_MultiRowInsert verifies rows are flattened into one multi-row
INSERT inside a committed transaction.
*/
func TestCopyFrom_MultiRowInsert(t *testing.T) {
	rec := &recorder{}
	r := &Repository{db: openRecDB(t, rec), cfg: Config{Table: "le"}}

	n, err := r.CopyFrom(context.Background(), []string{"region", "year"}, [][]any{{"PT", 2019}, {"FR", 2020}})
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if len(rec.queries) != 1 || !strings.HasSuffix(rec.queries[0], "VALUES (?, ?), (?, ?)") {
		t.Fatalf("queries = %v", rec.queries)
	}
	if len(rec.args[0]) != 4 || rec.args[0][2] != "FR" {
		t.Fatalf("args = %v", rec.args[0])
	}
	if atomic.LoadInt32(&rec.commits) != 1 {
		t.Fatalf("commits = %d", rec.commits)
	}
}

func TestCopyFrom_RollsBackOnError(t *testing.T) {
	rec := &recorder{fail: true}
	r := &Repository{db: openRecDB(t, rec), cfg: Config{Table: "le"}}

	if _, err := r.CopyFrom(context.Background(), []string{"region"}, [][]any{{"PT"}}); err == nil {
		t.Fatal("expected error")
	}
	if rec.rollbacks != 1 || rec.commits != 0 {
		t.Fatalf("commits=%d rollbacks=%d", rec.commits, rec.rollbacks)
	}
}

func TestCopyFrom_RowWidthMismatch(t *testing.T) {
	r := &Repository{cfg: Config{Table: "le"}}
	if _, err := r.CopyFrom(context.Background(), []string{"a", "b"}, [][]any{{1}}); err == nil {
		t.Fatal("expected width error")
	}
	if _, err := r.CopyFrom(context.Background(), nil, [][]any{{1}}); err == nil {
		t.Fatal("expected columns error")
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "no-at-sign(", Table: "le"}); err == nil {
		t.Fatal("expected DSN error")
	}
	if _, _, err := NewRepository(context.Background(), Config{DSN: "u:p@tcp(localhost:3306)/db"}); err == nil {
		t.Fatal("expected table error")
	}
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var closed bool
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		if cfg.Table != "le" {
			t.Errorf("cfg.Table = %q", cfg.Table)
		}
		return &Repository{}, func() { closed = true }, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: Kind, Table: "le"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not invoke closeFn")
	}
}

// recorder is a database/sql driver that records Exec calls.
type recorder struct {
	mu        sync.Mutex
	fail      bool
	queries   []string
	args      [][]any
	commits   int32
	rollbacks int32
}

type recConn struct{ r *recorder }
type recTx struct{ r *recorder }
type recResult int64

func (res recResult) LastInsertId() (int64, error) { return 0, nil }
func (res recResult) RowsAffected() (int64, error) { return int64(res), nil }

func (c recConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unexpected Prepare") }
func (c recConn) Close() error                        { return nil }
func (c recConn) Begin() (driver.Tx, error)           { return recTx(c), nil }

func (c recConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) { return recTx(c), nil }

func (c recConn) ExecContext(_ context.Context, q string, args []driver.NamedValue) (driver.Result, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if c.r.fail {
		return nil, errors.New("exec failed")
	}
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	c.r.queries = append(c.r.queries, q)
	c.r.args = append(c.r.args, vals)
	return recResult(strings.Count(q, "(?")), nil
}

func (t recTx) Commit() error   { atomic.AddInt32(&t.r.commits, 1); return nil }
func (t recTx) Rollback() error { atomic.AddInt32(&t.r.rollbacks, 1); return nil }

type recConnector struct{ r *recorder }

func (c recConnector) Connect(context.Context) (driver.Conn, error) { return recConn(c), nil }
func (c recConnector) Driver() driver.Driver                        { return recDriver{} }

type recDriver struct{}

func (recDriver) Open(string) (driver.Conn, error) { return nil, fmt.Errorf("use OpenDB") }

func openRecDB(t *testing.T, r *recorder) *sql.DB {
	t.Helper()
	db := sql.OpenDB(recConnector{r: r})
	t.Cleanup(func() { _ = db.Close() })
	return db
}
