package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

const findNamespace = `
SELECT id, public_id, name
FROM namespace
WHERE LOWER(name) = LOWER($1)
`

const insertNamespace = `
INSERT INTO namespace (public_id, name)
VALUES ($1, $2)
RETURNING id
`

// FindNamespace looks up a namespace by case-insensitive name.
func (q *Queries) FindNamespace(ctx context.Context, name string) (*registry.Namespace, error) {
	var ns registry.Namespace
	err := q.db.QueryRow(ctx, findNamespace, name).Scan(&ns.ID, &ns.PublicID, &ns.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to find namespace %q: %w", name, err)
	}
	return &ns, nil
}

// GetOrCreateNamespace returns the namespace with the given name, creating
// it on first use. Names are matched case-insensitively but stored with the
// casing of the first publish.
func (q *Queries) GetOrCreateNamespace(ctx context.Context, name string) (*registry.Namespace, error) {
	ns, err := q.FindNamespace(ctx, name)
	if err == nil {
		return ns, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	ns = &registry.Namespace{
		PublicID: uuid.NewString(),
		Name:     name,
	}
	err = q.db.QueryRow(ctx, insertNamespace, ns.PublicID, ns.Name).Scan(&ns.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create namespace %q: %w", name, err)
	}
	return ns, nil
}
