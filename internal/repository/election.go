package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ballotbox/ballotbox/internal/model"
)

// ErrElectionNotFound indicates the election does not exist.
var ErrElectionNotFound = errors.New("election not found")

const electionColumns = `id, title, start_date, end_date, created_at, updated_at`

// CreateElection inserts a new election into the database.
func (r *Repository) CreateElection(ctx context.Context, election *model.Election) error {
	query := `
		INSERT INTO elections (id, title, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		election.ID,
		election.Title,
		election.StartDate,
		election.EndDate,
		election.CreatedAt,
		election.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create election: %w", err)
	}

	return nil
}

// GetElectionByID retrieves an election by its ID.
func (r *Repository) GetElectionByID(ctx context.Context, id string) (*model.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`

	election, err := scanElection(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election by ID: %w", err)
	}

	return election, nil
}

// GetCurrentElection retrieves the earliest election that has not yet
// ended: the one voters should see, whether upcoming or ongoing.
func (r *Repository) GetCurrentElection(ctx context.Context, now time.Time) (*model.Election, error) {
	query := `
		SELECT ` + electionColumns + `
		FROM elections
		WHERE end_date >= $1
		ORDER BY start_date ASC, id ASC
		LIMIT 1
	`

	election, err := scanElection(r.pool.QueryRow(ctx, query, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get current election: %w", err)
	}

	return election, nil
}

// GetOngoingElection retrieves the election whose window contains now.
// When windows overlap the earliest-starting one wins.
func (r *Repository) GetOngoingElection(ctx context.Context, now time.Time) (*model.Election, error) {
	query := `
		SELECT ` + electionColumns + `
		FROM elections
		WHERE start_date <= $1 AND end_date >= $1
		ORDER BY start_date ASC, id ASC
		LIMIT 1
	`

	election, err := scanElection(r.pool.QueryRow(ctx, query, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get ongoing election: %w", err)
	}

	return election, nil
}

// ListElections retrieves all elections, newest window first.
func (r *Repository) ListElections(ctx context.Context) ([]*model.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections ORDER BY start_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	defer rows.Close()

	var elections []*model.Election
	for rows.Next() {
		election, err := scanElectionFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, election)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}

	return elections, nil
}

// UpdateElection updates an election's mutable fields.
func (r *Repository) UpdateElection(ctx context.Context, election *model.Election) error {
	query := `
		UPDATE elections
		SET title = $2, start_date = $3, end_date = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		election.ID,
		election.Title,
		election.StartDate,
		election.EndDate,
		election.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update election: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrElectionNotFound
	}

	return nil
}

// CountOngoingElections counts elections whose window contains now.
func (r *Repository) CountOngoingElections(ctx context.Context, now time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM elections WHERE start_date <= $1 AND end_date >= $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ongoing elections: %w", err)
	}

	return count, nil
}

// CountCompletedElections counts elections whose window has closed.
func (r *Repository) CountCompletedElections(ctx context.Context, now time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM elections WHERE end_date < $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed elections: %w", err)
	}

	return count, nil
}

// scanElection scans a single row into an Election model.
func scanElection(row pgx.Row) (*model.Election, error) {
	var election model.Election
	err := row.Scan(
		&election.ID,
		&election.Title,
		&election.StartDate,
		&election.EndDate,
		&election.CreatedAt,
		&election.UpdatedAt,
	)
	return &election, err
}

// scanElectionFromRows scans a row from pgx.Rows into an Election model.
func scanElectionFromRows(rows pgx.Rows) (*model.Election, error) {
	var election model.Election
	err := rows.Scan(
		&election.ID,
		&election.Title,
		&election.StartDate,
		&election.EndDate,
		&election.CreatedAt,
		&election.UpdatedAt,
	)
	return &election, err
}
