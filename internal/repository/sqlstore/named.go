package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"postings-ledger/internal/domain"
	"postings-ledger/internal/logger"
	"postings-ledger/internal/repository"
)

type namedRepository struct {
	q querier
	d Dialect
}

const namedColumns = `id, container, context, name, language, created, user_details, short_desc, long_desc, container_type`

func (r *namedRepository) Upsert(ctx context.Context, n *domain.Named) error {
	logger.EnterMethod("namedRepository.Upsert", "namedID", n.ID, "container", n.Container)

	query := `
		INSERT INTO named (` + namedColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			language = excluded.language,
			short_desc = excluded.short_desc,
			long_desc = excluded.long_desc,
			user_details = excluded.user_details
	`
	_, err := r.q.ExecContext(ctx, r.d.rebind(query),
		n.ID, n.Container, n.Context, n.Name, n.Language, n.Created, n.UserDetails,
		n.ShortDesc, n.LongDesc, n.ContainerType,
	)
	if err != nil {
		err = domain.DbError("upsert named", err)
		exitWithError("namedRepository.Upsert", err, "namedID", n.ID)
		return err
	}

	logger.ExitMethod("namedRepository.Upsert", "namedID", n.ID)
	return nil
}

func (r *namedRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Named, error) {
	logger.EnterMethod("namedRepository.GetByID", "namedID", id)

	query := `SELECT ` + namedColumns + ` FROM named WHERE id = $1`
	n, err := scanNamed(r.q.QueryRowContext(ctx, r.d.rebind(query), id))
	if err != nil {
		exitWithError("namedRepository.GetByID", err, "namedID", id)
		return nil, err
	}

	logger.ExitMethod("namedRepository.GetByID", "namedID", id)
	return n, nil
}

func (r *namedRepository) ListByContainer(ctx context.Context, container uuid.UUID) ([]domain.Named, error) {
	query := `SELECT ` + namedColumns + ` FROM named WHERE container = $1 ORDER BY language, id`
	return r.list(ctx, "namedRepository.ListByContainer", query, container)
}

func (r *namedRepository) ListByNameAndType(ctx context.Context, name string, containerType domain.ContainerType) ([]domain.Named, error) {
	query := `SELECT ` + namedColumns + ` FROM named WHERE name = $1 AND container_type = $2 ORDER BY created, id`
	return r.list(ctx, "namedRepository.ListByNameAndType", query, name, containerType)
}

func (r *namedRepository) ListByNameTypeAndContext(ctx context.Context, name string, containerType domain.ContainerType, context uuid.UUID) ([]domain.Named, error) {
	query := `SELECT ` + namedColumns + ` FROM named WHERE name = $1 AND container_type = $2 AND context = $3 ORDER BY created, id`
	return r.list(ctx, "namedRepository.ListByNameTypeAndContext", query, name, containerType, context)
}

func (r *namedRepository) list(ctx context.Context, method, query string, args ...any) ([]domain.Named, error) {
	logger.EnterMethod(method, "args", args)

	rows, err := r.q.QueryContext(ctx, r.d.rebind(query), args...)
	if err != nil {
		err = domain.DbError("list named", err)
		exitWithError(method, err)
		return nil, err
	}
	defer rows.Close()

	var names []domain.Named
	for rows.Next() {
		n, err := scanNamed(rows)
		if err != nil {
			exitWithError(method, err)
			return nil, err
		}
		names = append(names, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.DbError("list named", err)
	}

	logger.ExitMethod(method, "count", len(names))
	return names, nil
}

func scanNamed(row scanner) (*domain.Named, error) {
	n := &domain.Named{}
	var shortDesc, longDesc sql.NullString
	err := row.Scan(
		&n.ID, &n.Container, &n.Context, &n.Name, &n.Language, &n.Created, &n.UserDetails,
		&shortDesc, &longDesc, &n.ContainerType,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, domain.DbError("scan named", err)
	}
	n.ShortDesc = stringPtr(shortDesc)
	n.LongDesc = stringPtr(longDesc)
	n.Created = domain.Timestamp(n.Created)
	return n, nil
}
