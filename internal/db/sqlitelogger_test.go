package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) sqlRecords() []map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.attrs {
		if m["msg"].String() == "sql" {
			out = append(out, m)
		}
	}
	return out
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = nil
}

func openLogged(t *testing.T, handler *captureHandler) *sql.DB {
	t.Helper()
	connector, err := NewLoggingConnector(":memory:", slog.New(handler))
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	conn := sql.OpenDB(connector)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewLoggingConnector_validation(t *testing.T) {
	if _, err := NewLoggingConnector("", nil); err == nil {
		t.Fatal("NewLoggingConnector(\"\") error = nil, want non-nil")
	}
	conn, err := NewLoggingConnector(":memory:", nil)
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	if conn.(*loggingConnector).logger == nil {
		t.Fatal("nil logger was not replaced with slog.Default()")
	}
}

func TestLoggingConnector_multiStatementExec(t *testing.T) {
	handler := &captureHandler{}
	conn := openLogged(t, handler)

	script := `CREATE TABLE a (id INTEGER); CREATE TABLE b (id INTEGER);`
	if _, err := conn.Exec(script); err != nil {
		t.Fatalf("exec script: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO b (id) VALUES (1)`); err != nil {
		t.Fatalf("second statement of script was not applied: %v", err)
	}

	recs := handler.sqlRecords()
	if len(recs) < 2 {
		t.Fatalf("got %d sql records, want at least 2", len(recs))
	}
	if recs[0]["op"].String() != "exec" || recs[0]["sql"].String() != script {
		t.Errorf("first record = op %q sql %q", recs[0]["op"].String(), recs[0]["sql"].String())
	}
}

func TestLoggingConnector_queryWithArgs(t *testing.T) {
	handler := &captureHandler{}
	conn := openLogged(t, handler)

	if _, err := conn.Exec(`CREATE TABLE stations (id INTEGER, name TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO stations (id, name) VALUES (?, ?)`, 98230, "Stockholm"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	handler.reset()

	var id int
	if err := conn.QueryRow(`SELECT id FROM stations WHERE name = ?`, "Stockholm").Scan(&id); err != nil {
		t.Fatalf("query: %v", err)
	}
	if id != 98230 {
		t.Fatalf("id = %d, want 98230", id)
	}

	recs := handler.sqlRecords()
	if len(recs) == 0 {
		t.Fatal("expected sql log record for query")
	}
	got := recs[len(recs)-1]
	if got["op"].String() != "query" {
		t.Errorf("op = %q, want query", got["op"].String())
	}
	if got["sql"].String() != `SELECT id FROM stations WHERE name = ?` {
		t.Errorf("sql = %q", got["sql"].String())
	}
	args, ok := got["args"].Any().([]string)
	if !ok || len(args) != 1 || args[0] != `"Stockholm"` {
		t.Errorf("args = %v", got["args"].Any())
	}
	if _, ok := got["elapsed"]; !ok {
		t.Error("expected elapsed attribute")
	}
}

func TestLoggingConnector_errorIsLogged(t *testing.T) {
	handler := &captureHandler{}
	conn := openLogged(t, handler)

	if _, err := conn.Exec(`INSERT INTO missing (id) VALUES (1)`); err == nil {
		t.Fatal("insert into missing table succeeded")
	}
	recs := handler.sqlRecords()
	if len(recs) == 0 {
		t.Fatal("expected sql record for failed exec")
	}
	if _, ok := recs[len(recs)-1]["error"]; !ok {
		t.Error("failed exec logged without error attribute")
	}
}

func TestFormatArg(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: "NULL"},
		{in: []byte("raw"), want: "raw"},
		{in: "text", want: `"text"`},
		{in: int64(7), want: "7"},
	}
	for _, tt := range tests {
		if got := formatArg(tt.in); got != tt.want {
			t.Errorf("formatArg(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
