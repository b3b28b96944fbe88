package stdlib

import (
	"testing"

	"shannon/internal/variant"
)

// Grounded on the teacher's internal/database/db_manager_test.go style of
// exercising Connect/Query/Execute against a real sqlite3 file, here an
// in-memory database so the test needs no fixture on disk.
func TestDBOpenQueryExecClose(t *testing.T) {
	conn, err := dbOpen([]variant.Variant{
		variant.NewStr([]byte("sqlite3")),
		variant.NewStr([]byte(":memory:")),
	})
	if err != nil {
		t.Fatalf("dbOpen: %v", err)
	}

	affected, err := dbExec([]variant.Variant{
		conn,
		variant.NewStr([]byte("create table greeting (id integer, msg text)")),
	})
	if err != nil {
		t.Fatalf("dbExec create table: %v", err)
	}
	if affected.Kind() != variant.KindOrd {
		t.Fatalf("dbExec create table: expected ordinal result, got %v", affected.Kind())
	}

	affected, err = dbExec([]variant.Variant{
		conn,
		variant.NewStr([]byte("insert into greeting (id, msg) values (1, 'hello')")),
	})
	if err != nil {
		t.Fatalf("dbExec insert: %v", err)
	}
	if affected.Ord() != 1 {
		t.Fatalf("dbExec insert: expected 1 row affected, got %d", affected.Ord())
	}

	rows, err := dbQuery([]variant.Variant{
		conn,
		variant.NewStr([]byte("select id, msg from greeting")),
	})
	if err != nil {
		t.Fatalf("dbQuery: %v", err)
	}
	if rows.Kind() != variant.KindVec {
		t.Fatalf("dbQuery: expected a vec result, got %v", rows.Kind())
	}
	if rows.Size() != 1 {
		t.Fatalf("dbQuery: expected 1 row, got %d", rows.Size())
	}
	row := rows.VecGet(0)
	if row.Kind() != variant.KindDict {
		t.Fatalf("dbQuery: expected each row to be a dict, got %v", row.Kind())
	}
	msg, ok := row.DictTryGet(variant.NewStr([]byte("msg")))
	if !ok {
		t.Fatalf("dbQuery: row missing msg column")
	}
	if string(msg.Bytes()) != "hello" {
		t.Fatalf("dbQuery: expected msg=hello, got %q", msg.Bytes())
	}

	if _, err := dbClose([]variant.Variant{conn}); err != nil {
		t.Fatalf("dbClose: %v", err)
	}
}

// modernc.org/sqlite is a second, pure-Go sqlite driver registered
// alongside mattn's cgo one; "sqlite" selects it instead of "sqlite3".
func TestDBOpenQueryPureGoSqlite(t *testing.T) {
	conn, err := dbOpen([]variant.Variant{
		variant.NewStr([]byte("sqlite")),
		variant.NewStr([]byte(":memory:")),
	})
	if err != nil {
		t.Fatalf("dbOpen: %v", err)
	}

	if _, err := dbExec([]variant.Variant{
		conn,
		variant.NewStr([]byte("create table greeting (id integer, msg text)")),
	}); err != nil {
		t.Fatalf("dbExec create table: %v", err)
	}

	if _, err := dbClose([]variant.Variant{conn}); err != nil {
		t.Fatalf("dbClose: %v", err)
	}
}

func TestDBOpenUnsupportedDriver(t *testing.T) {
	_, err := dbOpen([]variant.Variant{
		variant.NewStr([]byte("oracle")),
		variant.NewStr([]byte("whatever")),
	})
	if err == nil {
		t.Fatalf("dbOpen: expected an error for an unsupported driver")
	}
}

func TestAsConnRejectsNonConnValue(t *testing.T) {
	if _, err := asConn(variant.NewOrd(5)); err == nil {
		t.Fatalf("asConn: expected an error for a non-connection value")
	}
}
