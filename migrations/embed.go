// Package migrations holds the SQL schema for the postgres appointment store.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
