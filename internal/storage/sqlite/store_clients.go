package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/clients"
)

// ClientStore adapts the Store to the clients.Repo contract.
type ClientStore struct {
	store *Store
}

var _ clients.Repo = (*ClientStore)(nil)

func (s *Store) Clients() *ClientStore {
	return &ClientStore{store: s}
}

func (cs *ClientStore) Upsert(client *clients.Client) error {
	uris, err := encodeStrings(client.RedirectURIs)
	if err != nil {
		return err
	}
	_, err = cs.store.sqlDB.Exec(`
INSERT INTO oauth_clients (id, name, secret, redirect_uris, confidential, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	secret = excluded.secret,
	redirect_uris = excluded.redirect_uris,
	confidential = excluded.confidential
`,
		client.ID, client.Name, client.Secret, uris, client.Confidential, toMillis(client.CreatedAt))
	return errors.Wrap(err, "upsert client")
}

func (cs *ClientStore) Delete(clientID string) error {
	result, err := cs.store.sqlDB.Exec(`DELETE FROM oauth_clients WHERE id = ?`, clientID)
	if err != nil {
		return errors.Wrap(err, "delete client")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete client rows affected")
	}
	if affected == 0 {
		return clients.ErrNotFound
	}
	return nil
}

func (cs *ClientStore) Get(clientID string) (*clients.Client, error) {
	row := cs.store.sqlDB.QueryRow(`
SELECT id, name, secret, redirect_uris, confidential, created_at
FROM oauth_clients WHERE id = ?`, clientID)
	return scanClient(row.Scan)
}

func (cs *ClientStore) List(offset, limit int) ([]*clients.Client, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := cs.store.sqlDB.Query(`
SELECT id, name, secret, redirect_uris, confidential, created_at
FROM oauth_clients ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "query clients")
	}
	defer func() { _ = rows.Close() }()

	clientList := make([]*clients.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		clientList = append(clientList, client)
	}
	return clientList, errors.Wrap(rows.Err(), "iterate clients")
}

func scanClient(scan func(dest ...any) error) (*clients.Client, error) {
	var (
		client    clients.Client
		urisRaw   string
		createdAt int64
	)
	err := scan(&client.ID, &client.Name, &client.Secret, &urisRaw, &client.Confidential, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clients.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan client")
	}
	uris, err := decodeStrings(urisRaw)
	if err != nil {
		return nil, err
	}
	client.RedirectURIs = uris
	client.CreatedAt = fromMillis(createdAt)
	return &client, nil
}
