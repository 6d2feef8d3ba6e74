package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const getAssetByTicker = `
SELECT id, ticker, name
FROM assets
WHERE ticker = $1
`

// getAggregates buckets raw candles with TimescaleDB's time_bucket.
const getAggregates = `
SELECT time_bucket($1::interval, c.timestamp) AS bucket,
       c.asset_id,
       first(c.open, c.timestamp)             AS open,
       max(c.high)                            AS high,
       min(c.low)                             AS low,
       last(c.close, c.timestamp)             AS close,
       sum(c.volume)                          AS volume
FROM candles c
WHERE c.asset_id = $2
  AND c.timestamp >= $3
  AND c.timestamp < $4
GROUP BY bucket, c.asset_id
ORDER BY bucket
`

var candleColumns = []string{"asset_id", "timestamp", "open", "high", "low", "close", "volume"}

type queries struct {
	pool *pgxpool.Pool
}

func (q *queries) GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	rows, err := q.pool.Query(ctx, getAssetByTicker, ticker)
	if err != nil {
		return assetRow{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[assetRow])
}

func (q *queries) GetAggregates(ctx context.Context, arg aggregateParams) ([]aggregateRow, error) {
	rows, err := q.pool.Query(ctx, getAggregates, arg.TimeBucket, arg.AssetID, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[aggregateRow])
}

func (q *queries) InsertCandles(ctx context.Context, rows []candleRow) (int64, error) {
	return q.pool.CopyFrom(ctx, pgx.Identifier{"candles"}, candleColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.AssetID, r.Timestamp, r.Open, r.High, r.Low, r.Close, r.Volume}, nil
		}))
}
