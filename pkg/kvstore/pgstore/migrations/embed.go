// Package migrations embeds the kvstore schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
