package migrations

import "embed"

// PostgresFS carries the ledger schema (rounds, allocations, flags, amnesty)
// compiled into the binary; files apply in lexical order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS carries the audit-log schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
