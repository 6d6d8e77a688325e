package catalog

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// PGCatalog loads the asset universe from a Postgres `assets` table.
type PGCatalog struct {
	conn sqlx.SqlConn
}

type assetRow struct {
	SID       int64     `db:"sid"`
	Symbol    string    `db:"symbol"`
	StartDate time.Time `db:"start_date"`
}

// NewPGCatalog wraps an existing connection.
func NewPGCatalog(conn sqlx.SqlConn) *PGCatalog {
	return &PGCatalog{conn: conn}
}

// OpenPGCatalog connects to Postgres using the supplied DSN.
func OpenPGCatalog(dsn string) *PGCatalog {
	return &PGCatalog{conn: sqlx.NewSqlConn("pgx", dsn)}
}

// Assets implements Catalog.
func (c *PGCatalog) Assets(ctx context.Context, filter Filter) ([]Asset, error) {
	if c == nil || c.conn == nil {
		return nil, fmt.Errorf("catalog: postgres connection not configured")
	}
	const q = `SELECT sid, symbol, start_date FROM assets ORDER BY sid`
	var rows []assetRow
	if err := c.conn.QueryRowsCtx(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("catalog: query assets: %w", err)
	}
	assets := make([]Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, Asset{
			SID:       row.SID,
			Symbol:    canonicalSymbol(row.Symbol),
			StartDate: row.StartDate.UTC(),
		})
	}
	return filter.Apply(assets), nil
}
