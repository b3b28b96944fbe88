package parser

import (
	"shannon/internal/interp"
	"shannon/internal/symbols"
	"shannon/internal/types"
)

// strType is the byte-vector type native function signatures accept for
// string arguments, built the same way expr.go's LoadStr implies (a vec
// of char with no index dimension) without reaching into codegen's
// unexported derivedStrType.
var strType = types.DeriveContainer(nil, nil, types.Char)

// nativeModule builds a fixed, method-only module type for a built-in
// native module (db, net): a scope whose Lookup resolves each method name
// to a funcDef, exactly as a real state's scope does for tryMethodCall.
// The funcDef's callable carries no code of its own — methodCall resolves
// the actual Go function dynamically against the runtime instance's own
// Methods map (wired in internal/stdlib), so only Name/paramTypes/
// resultType need to be real here.
func nativeModule(name string, methods []nativeMethod) (*symbols.Scope, *types.Type) {
	scope := symbols.NewScope(name, nil)
	scope.IsState = true
	scope.IsModule = true
	for _, m := range methods {
		fd := &funcDef{
			callable:   &interp.Callable{Name: name + "." + m.name},
			paramTypes: m.params,
			resultType: types.Variant,
		}
		if err := scope.Define(&symbols.Symbol{Name: m.name, Kind: symbols.SymDefinition, DefValue: fd, VarType: types.Variant}); err != nil {
			panic(err)
		}
	}
	typ := &types.Type{Kind: types.KindModule, Name: name}
	typ.Owner = scope
	return scope, typ
}

type nativeMethod struct {
	name   string
	params []*types.Type
}

// dbScope/dbType describe the built-in `db` native module: a thin
// database/sql surface over the drivers wired in internal/stdlib/
// nativedb.go (mattn/go-sqlite3, modernc.org/sqlite, lib/pq,
// go-sql-driver/mysql, denisenkom/go-mssqldb).
var dbScope, dbType = nativeModule("db", []nativeMethod{
	{name: "open", params: []*types.Type{strType, strType}},       // driver, dsn -> conn
	{name: "query", params: []*types.Type{types.Variant, strType}}, // conn, sql -> vec of dict rows
	{name: "exec", params: []*types.Type{types.Variant, strType}},  // conn, sql -> rows affected
	{name: "close", params: []*types.Type{types.Variant}},          // conn -> void
})

// netScope/netType describe the built-in `net` native module: a WebSocket
// client surface over gorilla/websocket, wired in internal/stdlib/
// nativenet.go.
var netScope, netType = nativeModule("net", []nativeMethod{
	{name: "wsDial", params: []*types.Type{strType}},                // url -> conn
	{name: "wsSend", params: []*types.Type{types.Variant, strType}}, // conn, message -> void
	{name: "wsRecv", params: []*types.Type{types.Variant}},          // conn -> message
	{name: "wsClose", params: []*types.Type{types.Variant}},         // conn -> void
})
