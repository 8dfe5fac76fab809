package fakecoderepo

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-identity-server/authcodes"
)

var _ authcodes.Repo = (*FakeCodeRepo)(nil)

// FakeCodeRepo is an in-memory code store. The mutex makes ConsumeUnused
// atomic: the lookup and the used flip happen under one critical section.
type FakeCodeRepo struct {
	codes map[string]*authcodes.Code
	lock  sync.Mutex
}

func NewFakeCodeRepo() *FakeCodeRepo {
	return &FakeCodeRepo{
		codes: make(map[string]*authcodes.Code),
	}
}

func (cr *FakeCodeRepo) Insert(code *authcodes.Code) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	stored := *code
	cr.codes[stored.Code] = &stored
	return nil
}

func (cr *FakeCodeRepo) ConsumeUnused(codeString string, now time.Time) (*authcodes.Code, error) {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	code, ok := cr.codes[codeString]
	if !ok || code.Used || !now.Before(code.ExpiresAt) {
		return nil, authcodes.ErrNotConsumable
	}
	code.Used = true
	copied := *code
	return &copied, nil
}
