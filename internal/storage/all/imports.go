// Package all wires the built-in storage backends into the storage factory.
// Import it for side effects:
//
//	import _ "typedcsv/internal/storage/all"
//
// after which storage.New accepts the kinds "postgres" and "sqlite".
package all

import (
	_ "typedcsv/internal/storage/postgres"
	_ "typedcsv/internal/storage/sqlite"
)
