package fakeclientrepo

import (
	"sort"
	"sync"

	"github.com/jrsteele09/go-identity-server/clients"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	clients map[string]*clients.Client
	lock    sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

func (cr *FakeClientRepo) Upsert(client *clients.Client) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.clients[client.ID] = client
	return nil
}

func (cr *FakeClientRepo) Delete(clientID string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	if _, ok := cr.clients[clientID]; !ok {
		return clients.ErrNotFound
	}
	delete(cr.clients, clientID)
	return nil
}

func (cr *FakeClientRepo) Get(clientID string) (*clients.Client, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	client, ok := cr.clients[clientID]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return client, nil
}

func (cr *FakeClientRepo) List(offset, limit int) ([]*clients.Client, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	clientList := make([]*clients.Client, 0, len(cr.clients))
	for _, c := range cr.clients {
		clientList = append(clientList, c)
	}

	sort.Slice(clientList, func(i, j int) bool {
		return clientList[i].ID < clientList[j].ID
	})

	if offset >= len(clientList) {
		return []*clients.Client{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(clientList) {
		end = len(clientList)
	}
	return clientList[offset:end], nil
}
