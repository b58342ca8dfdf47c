package galaxy

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"starfield-server/internal/shared/errors"
	"starfield-server/internal/starfield"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing galaxy repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGalaxy(row rowScanner) (*Galaxy, error) {
	var galaxy Galaxy
	var rawParams []byte

	err := row.Scan(
		&galaxy.ID,
		&galaxy.Name,
		&galaxy.Description,
		&rawParams,
		&galaxy.CreatedAt,
		&galaxy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rawParams, &galaxy.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode parameters of galaxy %d: %w", galaxy.ID, err)
	}
	return &galaxy, nil
}

func (r *Repository) CreateGalaxy(ctx context.Context, name, description string, params starfield.Parameters) (*Galaxy, error) {
	logger := r.logger.With(
		"component", "galaxy_repository",
		"operation", "create_galaxy",
		"name", name,
		"seed", params.Seed,
	)
	logger.Info("Creating galaxy")

	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, errors.WrapInternal("failed to encode parameters", err)
	}

	query := `
		INSERT INTO galaxies (name, description, parameters, parameters_version)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, parameters, created_at, updated_at
	`

	galaxy, err := scanGalaxy(r.db.QueryRowContext(ctx, query, name, description, rawParams, starfield.AlgorithmVersion))
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, errors.Conflictf("galaxy %q already exists", name)
		}
		logger.Error("Failed to create galaxy", "error", err)
		return nil, errors.WrapInternal("failed to create galaxy", err)
	}

	logger.Info("Galaxy created successfully", "galaxy_id", galaxy.ID)
	return galaxy, nil
}

func (r *Repository) GetGalaxyByID(ctx context.Context, galaxyID int) (*Galaxy, error) {
	logger := r.logger.With("component", "galaxy_repository", "operation", "get_galaxy", "galaxy_id", galaxyID)
	logger.Debug("Getting galaxy by ID")

	query := `
		SELECT id, name, description, parameters, created_at, updated_at
		FROM galaxies
		WHERE id = $1
	`

	galaxy, err := scanGalaxy(r.db.QueryRowContext(ctx, query, galaxyID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("galaxy not found with id: %d", galaxyID)
		}
		logger.Error("Database error getting galaxy", "error", err)
		return nil, errors.WrapInternal("failed to get galaxy", err)
	}

	logger.Debug("Galaxy retrieved", "name", galaxy.Name)
	return galaxy, nil
}

func (r *Repository) GetAllGalaxies(ctx context.Context) ([]Galaxy, error) {
	logger := r.logger.With("component", "galaxy_repository", "operation", "get_all_galaxies")
	logger.Debug("Getting all galaxies")

	query := `
		SELECT id, name, description, parameters, created_at, updated_at
		FROM galaxies
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query galaxies", "error", err)
		return nil, errors.WrapInternal("failed to query galaxies", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var galaxies []Galaxy
	for rows.Next() {
		galaxy, err := scanGalaxy(rows)
		if err != nil {
			logger.Error("Failed to scan galaxy", "error", err)
			return nil, errors.WrapInternal("failed to scan galaxy", err)
		}
		galaxies = append(galaxies, *galaxy)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Failed to iterate galaxies", "error", err)
		return nil, errors.WrapInternal("failed to iterate galaxies", err)
	}

	logger.Debug("Galaxies retrieved", "count", len(galaxies))
	return galaxies, nil
}

func (r *Repository) UpdateParameters(ctx context.Context, galaxyID int, params starfield.Parameters) (*Galaxy, error) {
	logger := r.logger.With(
		"component", "galaxy_repository",
		"operation", "update_parameters",
		"galaxy_id", galaxyID,
		"seed", params.Seed,
	)
	logger.Debug("Updating galaxy parameters")

	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, errors.WrapInternal("failed to encode parameters", err)
	}

	query := `
		UPDATE galaxies
		SET parameters = $2, parameters_version = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, parameters, created_at, updated_at
	`

	galaxy, err := scanGalaxy(r.db.QueryRowContext(ctx, query, galaxyID, rawParams, starfield.AlgorithmVersion))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("galaxy not found with id: %d", galaxyID)
		}
		logger.Error("Failed to update galaxy parameters", "error", err)
		return nil, errors.WrapInternal("failed to update galaxy parameters", err)
	}

	return galaxy, nil
}

func (r *Repository) DeleteGalaxy(ctx context.Context, galaxyID int) error {
	logger := r.logger.With("component", "galaxy_repository", "operation", "delete_galaxy", "galaxy_id", galaxyID)
	logger.Info("Deleting galaxy")

	result, err := r.db.ExecContext(ctx, `DELETE FROM galaxies WHERE id = $1`, galaxyID)
	if err != nil {
		logger.Error("Failed to delete galaxy", "error", err)
		return errors.WrapInternal("failed to delete galaxy", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.WrapInternal("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NotFoundf("galaxy not found with id: %d", galaxyID)
	}

	return nil
}
