package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/ballotbox/ballotbox/internal/model"
)

// ErrCandidateNotFound indicates the candidate does not exist.
var ErrCandidateNotFound = errors.New("candidate not found")

const candidateColumns = `id, election_id, name, level, position, manifesto, photo_url, created_at`

// CreateCandidate inserts a new candidate into the database.
func (r *Repository) CreateCandidate(ctx context.Context, candidate *model.Candidate) error {
	query := `
		INSERT INTO candidates (id, election_id, name, level, position, manifesto, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		candidate.ID,
		candidate.ElectionID,
		candidate.Name,
		nullableString(candidate.Level),
		candidate.Position,
		nullableString(candidate.Manifesto),
		nullableString(candidate.PhotoURL),
		candidate.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	return nil
}

// GetCandidateByID retrieves a candidate by its ID.
func (r *Repository) GetCandidateByID(ctx context.Context, id string) (*model.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`

	candidate, err := scanCandidate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate by ID: %w", err)
	}

	return candidate, nil
}

// ListCandidatesByElection retrieves all candidates in an election,
// grouped by position for stable ballot rendering.
func (r *Repository) ListCandidatesByElection(ctx context.Context, electionID string) ([]*model.Candidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidates
		WHERE election_id = $1
		ORDER BY position ASC, name ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*model.Candidate
	for rows.Next() {
		candidate, err := scanCandidateFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return candidates, nil
}

// GetCandidatesByIDs retrieves candidates matching the given IDs.
// Callers must compare the result length against the request to detect
// unknown IDs; missing rows are not an error here.
func (r *Repository) GetCandidatesByIDs(ctx context.Context, ids []string) ([]*model.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates by IDs: %w", err)
	}
	defer rows.Close()

	var candidates []*model.Candidate
	for rows.Next() {
		candidate, err := scanCandidateFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return candidates, nil
}

// ListCandidateResults tallies votes per candidate across all elections.
func (r *Repository) ListCandidateResults(ctx context.Context) ([]model.CandidateResult, error) {
	query := `
		SELECT c.id, c.name, c.position, COUNT(v.id) AS votes
		FROM candidates c
		LEFT JOIN votes v ON v.candidate_id = c.id
		GROUP BY c.id, c.name, c.position
		ORDER BY c.position ASC, votes DESC, c.name ASC, c.id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to tally candidate results: %w", err)
	}
	defer rows.Close()

	return collectCandidateResults(rows)
}

// ListCandidateResultsByElection tallies votes per candidate within one election.
func (r *Repository) ListCandidateResultsByElection(ctx context.Context, electionID string) ([]model.CandidateResult, error) {
	query := `
		SELECT c.id, c.name, c.position, COUNT(v.id) AS votes
		FROM candidates c
		LEFT JOIN votes v ON v.candidate_id = c.id
		WHERE c.election_id = $1
		GROUP BY c.id, c.name, c.position
		ORDER BY c.position ASC, votes DESC, c.name ASC, c.id ASC
	`

	rows, err := r.pool.Query(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally election results: %w", err)
	}
	defer rows.Close()

	return collectCandidateResults(rows)
}

func collectCandidateResults(rows pgx.Rows) ([]model.CandidateResult, error) {
	var results []model.CandidateResult
	for rows.Next() {
		var result model.CandidateResult
		if err := rows.Scan(&result.CandidateID, &result.Name, &result.Position, &result.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan candidate result: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate results: %w", err)
	}

	return results, nil
}

// scanCandidate scans a single row into a Candidate model.
func scanCandidate(row pgx.Row) (*model.Candidate, error) {
	var candidate model.Candidate
	err := row.Scan(
		&candidate.ID,
		&candidate.ElectionID,
		&candidate.Name,
		&candidate.Level,
		&candidate.Position,
		&candidate.Manifesto,
		&candidate.PhotoURL,
		&candidate.CreatedAt,
	)
	return &candidate, err
}

// scanCandidateFromRows scans a row from pgx.Rows into a Candidate model.
func scanCandidateFromRows(rows pgx.Rows) (*model.Candidate, error) {
	var candidate model.Candidate
	err := rows.Scan(
		&candidate.ID,
		&candidate.ElectionID,
		&candidate.Name,
		&candidate.Level,
		&candidate.Position,
		&candidate.Manifesto,
		&candidate.PhotoURL,
		&candidate.CreatedAt,
	)
	return &candidate, err
}
