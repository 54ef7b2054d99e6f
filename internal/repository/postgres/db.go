// internal/repository/postgres/db.go
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the connection pool. Transactions are started through RunInTx
// and WithRetry rather than exposed directly.
type DB struct {
	pool *pgxpool.Pool
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}
