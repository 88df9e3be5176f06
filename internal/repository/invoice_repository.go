package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/service-shop/internal/domain"
)

type invoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository builds the Postgres invoice repository.
func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	const query = `
        INSERT INTO invoices (id, service_request_id, customer_id, parts_cost, labor_cost, total_amount, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		invoice.ID,
		invoice.ServiceRequestID,
		invoice.CustomerID,
		invoice.PartsCost,
		invoice.LaborCost,
		invoice.TotalAmount,
		invoice.Status,
	).Scan(&invoice.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrInvoiceExists
	}
	return err
}

func (r *invoiceRepository) GetByServiceRequest(ctx context.Context, serviceRequestID string) (*domain.Invoice, error) {
	const query = `
        SELECT id, service_request_id, customer_id, parts_cost, labor_cost, total_amount, status, created_at
        FROM invoices WHERE service_request_id=$1`
	if !validID(serviceRequestID) {
		return nil, ErrNotFound
	}
	var invoice domain.Invoice
	err := r.pool.QueryRow(ctx, query, serviceRequestID).Scan(
		&invoice.ID,
		&invoice.ServiceRequestID,
		&invoice.CustomerID,
		&invoice.PartsCost,
		&invoice.LaborCost,
		&invoice.TotalAmount,
		&invoice.Status,
		&invoice.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
