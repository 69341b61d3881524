// Package all wires every built-in storage backend into the storage factory.
//
// Importing it for side effects registers these kinds:
//
//   - "csv"      (lifeexp/internal/storage/csvfile)
//   - "sqlite"   (lifeexp/internal/storage/sqlite)
//   - "postgres" (lifeexp/internal/storage/postgres)
//   - "mssql"    (lifeexp/internal/storage/mssql)
//   - "mysql"    (lifeexp/internal/storage/mysql)
//
// A binary that needs only a subset can import the backends directly.
package all

import (
	_ "lifeexp/internal/storage/csvfile"
	_ "lifeexp/internal/storage/mssql"
	_ "lifeexp/internal/storage/mysql"
	_ "lifeexp/internal/storage/postgres"
	_ "lifeexp/internal/storage/sqlite"
)
