// Package database stores orders in Postgres.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	"github.com/TemirB/orders-enrichment/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id   uuid PRIMARY KEY,
	user_id    text NOT NULL,
	order_date timestamptz NOT NULL,
	total_bill numeric(18, 2) NOT NULL
);
CREATE TABLE IF NOT EXISTS order_lines (
	order_id    uuid NOT NULL REFERENCES orders (order_id) ON DELETE CASCADE,
	line_no     int NOT NULL,
	product_id  text NOT NULL,
	quantity    int NOT NULL,
	unit_price  numeric(18, 2) NOT NULL,
	total_price numeric(18, 2) NOT NULL,
	PRIMARY KEY (order_id, line_no)
);
CREATE INDEX IF NOT EXISTS order_lines_product_id_idx ON order_lines (product_id);
CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id);
`

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Connect opens a pool that logs statements through logger and checks it with a ping.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   NewZapTracer(logger),
		LogLevel: tracelog.LogLevelWarn,
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// Add stores a new order under a fresh id and returns the stored copy.
func (r *Repo) Add(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	saved := *o
	saved.OrderID = uuid.New()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (order_id, user_id, order_date, total_bill)
		VALUES ($1, $2, $3, $4)
	`, saved.OrderID, saved.UserID, saved.OrderDate, saved.TotalBill); err != nil {
		return nil, err
	}
	if err := insertLines(ctx, tx, &saved); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Update replaces the order and all of its lines.
func (r *Repo) Update(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET user_id=$2, order_date=$3, total_bill=$4
		WHERE order_id=$1
	`, o.OrderID, o.UserID, o.OrderDate, o.TotalBill)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id=$1`, o.OrderID); err != nil {
		return nil, err
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	saved := *o
	return &saved, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	batch := &pgx.Batch{}
	for i, l := range o.Lines {
		batch.Queue(`
			INSERT INTO order_lines (order_id, line_no, product_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, o.OrderID, i, l.ProductID, l.Quantity, l.UnitPrice, l.TotalPrice)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *Repo) Find(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	where, args := buildFilter(filter)
	rows, err := r.pool.Query(ctx, `
		SELECT o.order_id, o.user_id, o.order_date, o.total_bill
		FROM orders o`+where+`
		ORDER BY o.order_date DESC, o.order_id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []uuid.UUID
	)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.OrderID, &o.UserID, &o.OrderDate, &o.TotalBill); err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.OrderID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].OrderID]
	}
	return orders, nil
}

func (r *Repo) lines(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.OrderLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, product_id, quantity, unit_price, total_price
		FROM order_lines WHERE order_id = ANY($1)
		ORDER BY order_id, line_no
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.OrderLine, len(ids))
	for rows.Next() {
		var (
			id uuid.UUID
			l  domain.OrderLine
		)
		if err := rows.Scan(&id, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return nil, err
		}
		out[id] = append(out[id], l)
	}
	return out, rows.Err()
}

// FindOne returns the first match or domain.ErrNotFound.
func (r *Repo) FindOne(ctx context.Context, filter domain.OrderFilter) (*domain.Order, error) {
	orders, err := r.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return &orders[0], nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE order_id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// buildFilter turns filter into a WHERE clause with positional arguments.
func buildFilter(f domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OrderID != uuid.Nil {
		add("o.order_id = $%d", f.OrderID)
	}
	if f.ProductID != "" {
		add("EXISTS (SELECT 1 FROM order_lines l WHERE l.order_id = o.order_id AND l.product_id = $%d)", f.ProductID)
	}
	if f.UserID != "" {
		add("o.user_id = $%d", f.UserID)
	}
	if !f.OrderDate.IsZero() {
		add("o.order_date::date = $%d::date", f.OrderDate.Format(time.DateOnly))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

var _ domain.OrderRepository = (*Repo)(nil)
