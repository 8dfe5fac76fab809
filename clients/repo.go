package clients

import "github.com/pkg/errors"

// ErrNotFound is returned by repos when no client matches the id.
var ErrNotFound = errors.New("client not found")

type Repo interface {
	Upsert(client *Client) error
	Delete(clientID string) error
	Get(clientID string) (*Client, error)
	List(offset, limit int) ([]*Client, error)
}
