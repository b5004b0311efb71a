package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// DBConnKey is the context key under which a pinned pool connection travels.
const DBConnKey contextKey = "db_conn"

// WithConn returns a context carrying conn. Repositories pick it up via
// ConnFromContext so a sequence of statements can share one connection
// (for example inside a transaction) instead of each grabbing its own
// from the pool.
func WithConn(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, DBConnKey, conn)
}

// ConnFromContext retrieves the pinned connection from context, or nil when
// the context carries none.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}
