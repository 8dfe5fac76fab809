package sqlite

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/audit"
)

// AuditStore adapts the Store to the audit.Recorder contract.
type AuditStore struct {
	store *Store
}

var _ audit.Recorder = (*AuditStore)(nil)

func (s *Store) Audit() *AuditStore {
	return &AuditStore{store: s}
}

func (as *AuditStore) Record(event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	_, err := as.store.sqlDB.Exec(`
INSERT INTO audit_events (id, user_id, action, details, ip_address, user_agent, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.UserID,
		event.Action,
		event.Details,
		event.IPAddress,
		event.UserAgent,
		toMillis(event.CreatedAt),
	)
	return errors.Wrap(err, "insert audit event")
}
