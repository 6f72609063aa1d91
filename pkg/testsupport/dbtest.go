package testsupport

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

var memoryDBCounter atomic.Int64

// NewSQLiteMemoryDB opens a private shared-cache in-memory sqlite database.
// Every call gets its own database name so tests do not see each other's rows.
func NewSQLiteMemoryDB() (*sql.DB, error) {
	name := fmt.Sprintf("file:replace_test_%d?mode=memory&cache=shared", memoryDBCounter.Add(1))
	return sql.Open("sqlite3", name)
}
