package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/service-shop/internal/domain"
)

// activeBayIndex is the partial unique index over (bay_number) for active rows.
const activeBayIndex = "service_requests_active_bay_uq"

const uniqueViolation = "23505"

const serviceRequestColumns = `id, external_key, customer_id, vehicle_id, technician_id, bay_number,
               service_type, priority, description, status, service_notes, estimated_cost, final_cost,
               pickup_required, pickup_address, preferred_date, cancellation_reason,
               created_at, updated_at, started_at, completed_at, version`

type serviceRequestRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRequestRepository instantiates the Postgres repository.
func NewServiceRequestRepository(pool *pgxpool.Pool) ServiceRequestRepository {
	return &serviceRequestRepository{pool: pool}
}

func (r *serviceRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest, change *domain.StatusChange) error {
	const query = `
        INSERT INTO service_requests (id, external_key, customer_id, vehicle_id, technician_id, bay_number,
            service_type, priority, description, status, service_notes, estimated_cost, final_cost,
            pickup_required, pickup_address, preferred_date, cancellation_reason, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,1)
        RETURNING created_at, updated_at, version`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			req.ID,
			req.ExternalKey,
			req.CustomerID,
			req.VehicleID,
			req.TechnicianID,
			req.BayNumber,
			req.ServiceType,
			req.Priority,
			req.Description,
			req.Status,
			req.ServiceNotes,
			toNullDecimal(req.EstimatedCost),
			toNullDecimal(req.FinalCost),
			req.PickupRequired,
			req.PickupAddress,
			req.PreferredDate,
			req.CancellationReason,
		).Scan(&req.CreatedAt, &req.UpdatedAt, &req.Version)
		if err != nil {
			return translateWriteError(err)
		}
		return insertStatusChange(ctx, tx, change)
	})
}

func (r *serviceRequestRepository) Save(ctx context.Context, req *domain.ServiceRequest, change *domain.StatusChange) error {
	const query = `
        UPDATE service_requests SET technician_id=$1, bay_number=$2, status=$3, service_notes=$4,
            estimated_cost=$5, final_cost=$6, preferred_date=$7, cancellation_reason=$8,
            started_at=$9, completed_at=$10, version=version+1, updated_at=NOW()
        WHERE id=$11 AND version=$12
        RETURNING updated_at, version`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			req.TechnicianID,
			req.BayNumber,
			req.Status,
			req.ServiceNotes,
			toNullDecimal(req.EstimatedCost),
			toNullDecimal(req.FinalCost),
			req.PreferredDate,
			req.CancellationReason,
			req.StartedAt,
			req.CompletedAt,
			req.ID,
			req.Version,
		).Scan(&req.UpdatedAt, &req.Version)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleWrite
		}
		if err != nil {
			return translateWriteError(err)
		}
		return insertStatusChange(ctx, tx, change)
	})
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests WHERE id=$1`
	req, err := scanServiceRequest(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *serviceRequestRepository) List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit, offset := normalizeLimit(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		serviceRequestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServiceRequests(rows)
}

func (r *serviceRequestRepository) ListActive(ctx context.Context) ([]domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests
             WHERE status IN ('ASSIGNED','IN_PROGRESS') ORDER BY bay_number`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServiceRequests(rows)
}

func (r *serviceRequestRepository) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM service_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RequestStatus]int)
	for rows.Next() {
		var status domain.RequestStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *serviceRequestRepository) History(ctx context.Context, serviceRequestID string) ([]domain.StatusChange, error) {
	const query = `
        SELECT id, service_request_id, from_status, to_status, actor_role, actor_id, comment, created_at
        FROM service_request_status_history WHERE service_request_id=$1 ORDER BY created_at ASC, id ASC`
	if !validID(serviceRequestID) {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, query, serviceRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChange
	for rows.Next() {
		var entry domain.StatusChange
		if err := rows.Scan(
			&entry.ID,
			&entry.ServiceRequestID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ActorRole,
			&entry.ActorID,
			&entry.Comment,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func insertStatusChange(ctx context.Context, tx pgx.Tx, change *domain.StatusChange) error {
	if change == nil {
		return nil
	}
	const query = `
        INSERT INTO service_request_status_history (id, service_request_id, from_status, to_status, actor_role, actor_id, comment)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return tx.QueryRow(ctx, query,
		change.ID,
		change.ServiceRequestID,
		change.FromStatus,
		change.ToStatus,
		change.ActorRole,
		change.ActorID,
		change.Comment,
	).Scan(&change.CreatedAt)
}

// validID reports whether id can address a UUID primary key. Anything else
// cannot exist in the table.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeBayIndex {
		return ErrBayOccupied
	}
	return err
}

func scanServiceRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	var estimated, final decimal.NullDecimal
	if err := row.Scan(
		&req.ID,
		&req.ExternalKey,
		&req.CustomerID,
		&req.VehicleID,
		&req.TechnicianID,
		&req.BayNumber,
		&req.ServiceType,
		&req.Priority,
		&req.Description,
		&req.Status,
		&req.ServiceNotes,
		&estimated,
		&final,
		&req.PickupRequired,
		&req.PickupAddress,
		&req.PreferredDate,
		&req.CancellationReason,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.StartedAt,
		&req.CompletedAt,
		&req.Version,
	); err != nil {
		return nil, err
	}
	req.EstimatedCost = fromNullDecimal(estimated)
	req.FinalCost = fromNullDecimal(final)
	return &req, nil
}

func scanServiceRequests(rows pgx.Rows) ([]domain.ServiceRequest, error) {
	var result []domain.ServiceRequest
	for rows.Next() {
		req, err := scanServiceRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}
