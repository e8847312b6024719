package appfs

import "embed"

// FS holds the files embedded in the binaries.
//
//go:embed migrations/*.sql
var FS embed.FS
