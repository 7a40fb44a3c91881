package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BuckysMyHero/openvsx/internal/registry"
)

const findKeyPair = `
SELECT id, public_id, public_key, private_key, created, active
FROM signature_key_pair
WHERE public_id = $1
`

const findActiveKeyPair = `
SELECT id, public_id, public_key, private_key, created, active
FROM signature_key_pair
WHERE active
ORDER BY created DESC, id DESC
LIMIT 1
`

const insertKeyPair = `
INSERT INTO signature_key_pair (public_id, public_key, private_key, created, active)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`

func scanKeyPair(row pgx.Row) (*registry.SignatureKeyPair, error) {
	var kp registry.SignatureKeyPair
	err := row.Scan(&kp.ID, &kp.PublicID, &kp.PublicKey, &kp.PrivateKey, &kp.Created, &kp.Active)
	if err != nil {
		return nil, err
	}
	return &kp, nil
}

// FindKeyPair looks up a signing key pair by its public UUID. Rotated pairs
// resolve too, so signatures made with them keep verifying.
func (q *Queries) FindKeyPair(ctx context.Context, publicID string) (*registry.SignatureKeyPair, error) {
	kp, err := scanKeyPair(q.db.QueryRow(ctx, findKeyPair, publicID))
	if err != nil {
		return nil, fmt.Errorf("failed to find key pair %s: %w", publicID, err)
	}
	return kp, nil
}

// FindActiveKeyPair returns the key pair new signatures are made with.
func (q *Queries) FindActiveKeyPair(ctx context.Context) (*registry.SignatureKeyPair, error) {
	kp, err := scanKeyPair(q.db.QueryRow(ctx, findActiveKeyPair))
	if err != nil {
		return nil, fmt.Errorf("failed to find active key pair: %w", err)
	}
	return kp, nil
}

// InsertKeyPair stores a signing key pair and sets its id.
func (q *Queries) InsertKeyPair(ctx context.Context, kp *registry.SignatureKeyPair) error {
	err := q.db.QueryRow(ctx, insertKeyPair, kp.PublicID, kp.PublicKey, kp.PrivateKey, kp.Created, kp.Active).Scan(&kp.ID)
	if err != nil {
		return fmt.Errorf("failed to insert key pair: %w", err)
	}
	return nil
}
