package pgsql

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

func itoa(i int) string {
	return strconv.Itoa(i)
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, what string, scan func(rowScanner) (*T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, mapError(err, what)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, what)
	}
	return out, nil
}

// queryAll runs sql and scans every row.
func queryAll[T any](ctx context.Context, q querier, what string, scan func(rowScanner) (*T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	return collect(rows, what, scan)
}
