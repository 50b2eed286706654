// Package all links every storage backend into the binary.
package all

import (
	_ "itvetl/internal/storage/postgres"
	_ "itvetl/internal/storage/sqlite"
)
