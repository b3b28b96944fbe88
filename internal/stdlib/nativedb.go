package stdlib

import (
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb" // driver "mssql"
	_ "github.com/go-sql-driver/mysql"   // driver "mysql"
	_ "github.com/lib/pq"                // driver "postgres"
	_ "github.com/mattn/go-sqlite3"      // driver "sqlite3" (cgo)
	_ "modernc.org/sqlite"               // driver "sqlite" (pure Go)

	"shannon/internal/context"
	"shannon/internal/interp"
	"shannon/internal/variant"
)

// dbConn is the rtobj payload db.open hands back to Shannon source: an
// opaque handle over a live *sql.DB, grounded on the teacher's
// internal/database/db_manager.go DBConn (trimmed to just the connection
// itself — Shannon has no use for the teacher's connection-registry/ID
// indirection since the handle value itself already identifies the
// connection).
type dbConn struct {
	db *sql.DB
}

func (c *dbConn) RtObjKind() string { return "dbconn" }

// driverName maps Shannon's db.open driver argument onto the Go
// database/sql driver name registered by the matching blank import above.
// "sqlite3" picks mattn's cgo driver; "sqlite"/"sqlitepure" picks
// modernc.org/sqlite's pure-Go one, grounded on db_manager.go's Connect
// which registers both side by side under Go's database/sql.
func driverName(kind string) (string, error) {
	switch kind {
	case "sqlite3":
		return "sqlite3", nil
	case "sqlite", "sqlitepure":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "mssql", "sqlserver":
		return "mssql", nil
	default:
		return "", fmt.Errorf("db.open: unsupported driver %q", kind)
	}
}

func asConn(v variant.Variant) (*dbConn, error) {
	if v.Kind() != variant.KindRtObj {
		return nil, fmt.Errorf("expected a db connection")
	}
	conn, ok := v.Obj().(*dbConn)
	if !ok {
		return nil, fmt.Errorf("expected a db connection")
	}
	return conn, nil
}

// dbOpen connects to a database, grounded on db_manager.go's Connect:
// sql.Open followed by a Ping to surface a bad DSN immediately rather than
// on the first query.
func dbOpen(args []variant.Variant) (variant.Variant, error) {
	driver, err := driverName(string(args[0].Bytes()))
	if err != nil {
		return variant.Void(), err
	}
	dsn := string(args[1].Bytes())
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return variant.Void(), fmt.Errorf("db.open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return variant.Void(), fmt.Errorf("db.open: %w", err)
	}
	return variant.NewRtObj(&dbConn{db: db}), nil
}

// dbQuery runs a query returning rows, grounded on db_manager.go's Query:
// each row becomes a dict keyed by column name, byte columns decoded as
// Shannon strings, everything else as an ordinal where it fits.
func dbQuery(args []variant.Variant) (variant.Variant, error) {
	conn, err := asConn(args[0])
	if err != nil {
		return variant.Void(), err
	}
	query := string(args[1].Bytes())

	rows, err := conn.db.Query(query)
	if err != nil {
		return variant.Void(), fmt.Errorf("db.query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return variant.Void(), fmt.Errorf("db.query: %w", err)
	}

	result := variant.NewVec()
	scanned := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range scanned {
		ptrs[i] = &scanned[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return variant.Void(), fmt.Errorf("db.query: %w", err)
		}
		row := variant.NewDict()
		for i, col := range cols {
			row.DictSet(variant.NewStr([]byte(col)), sqlValueToVariant(scanned[i]))
		}
		result.VecAppend(row)
	}
	if err := rows.Err(); err != nil {
		return variant.Void(), fmt.Errorf("db.query: %w", err)
	}
	return result, nil
}

// dbExec runs a statement that doesn't return rows, returning the number
// of affected rows as an ordinal.
func dbExec(args []variant.Variant) (variant.Variant, error) {
	conn, err := asConn(args[0])
	if err != nil {
		return variant.Void(), err
	}
	query := string(args[1].Bytes())

	res, err := conn.db.Exec(query)
	if err != nil {
		return variant.Void(), fmt.Errorf("db.exec: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return variant.Void(), fmt.Errorf("db.exec: %w", err)
	}
	return variant.NewOrd(affected), nil
}

func dbClose(args []variant.Variant) (variant.Variant, error) {
	conn, err := asConn(args[0])
	if err != nil {
		return variant.Void(), err
	}
	if err := conn.db.Close(); err != nil {
		return variant.Void(), fmt.Errorf("db.close: %w", err)
	}
	return variant.Void(), nil
}

func sqlValueToVariant(v interface{}) variant.Variant {
	switch t := v.(type) {
	case nil:
		return variant.Void()
	case []byte:
		return variant.NewStr(t)
	case string:
		return variant.NewStr([]byte(t))
	case int64:
		return variant.NewOrd(t)
	case bool:
		return variant.NewBool(t)
	default:
		return variant.NewStr([]byte(fmt.Sprint(t)))
	}
}

// DBModule builds the `db` native module descriptor, registered into a
// context.Context via RegisterModule before Execute runs (cmd/shannon
// wires this the same way it wires the compiler's Loader).
func DBModule() *context.Module {
	return nativeModule("db", map[string]*interp.Callable{
		"open":  {Name: "db.open", Native: dbOpen},
		"query": {Name: "db.query", Native: dbQuery},
		"exec":  {Name: "db.exec", Native: dbExec},
		"close": {Name: "db.close", Native: dbClose},
	})
}
