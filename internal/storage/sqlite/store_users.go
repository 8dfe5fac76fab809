package sqlite

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/rbac"
	"github.com/jrsteele09/go-identity-server/users"
)

var _ users.UserRepo = (*Store)(nil)

func (s *Store) Upsert(user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	tx, err := s.sqlDB.Begin()
	if err != nil {
		return errors.Wrap(err, "begin upsert user")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
INSERT INTO users (id, username, email, full_name, password_hash, active, date_joined, last_login)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	username = excluded.username,
	email = excluded.email,
	full_name = excluded.full_name,
	password_hash = excluded.password_hash,
	active = excluded.active,
	last_login = excluded.last_login
`,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.Active,
		toMillis(user.DateJoined),
		toMillis(user.LastLogin),
	)
	if err != nil {
		return errors.Wrap(err, "upsert user")
	}

	if err := s.replaceUserRoles(tx, user.ID, user.Roles); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit upsert user")
}

func (s *Store) replaceUserRoles(tx *sql.Tx, userID string, roles []rbac.Role) error {
	if _, err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		return errors.Wrap(err, "clear user roles")
	}
	for _, role := range roles {
		if err := upsertRole(tx, role); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO user_roles (user_id, role_name) VALUES (?, ?)`, userID, role.Name); err != nil {
			return errors.Wrap(err, "assign user role")
		}
	}
	return nil
}

func upsertRole(tx *sql.Tx, role rbac.Role) error {
	permissions, err := json.Marshal(role.Permissions)
	if err != nil {
		return errors.Wrap(err, "marshal permissions")
	}
	_, err = tx.Exec(`
INSERT INTO roles (name, description, permissions) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	description = excluded.description,
	permissions = excluded.permissions
`, role.Name, role.Description, string(permissions))
	return errors.Wrap(err, "upsert role")
}

// SeedRoles inserts roles if they do not already exist.
func (s *Store) SeedRoles(roles []rbac.Role) error {
	tx, err := s.sqlDB.Begin()
	if err != nil {
		return errors.Wrap(err, "begin seed roles")
	}
	defer func() { _ = tx.Rollback() }()

	for _, role := range roles {
		permissions, err := json.Marshal(role.Permissions)
		if err != nil {
			return errors.Wrap(err, "marshal permissions")
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO roles (name, description, permissions) VALUES (?, ?, ?)`,
			role.Name, role.Description, string(permissions)); err != nil {
			return errors.Wrap(err, "seed role")
		}
	}
	return errors.Wrap(tx.Commit(), "commit seed roles")
}

func (s *Store) Delete(id string) error {
	result, err := s.sqlDB.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete user rows affected")
	}
	if affected == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (s *Store) GetByUsername(username string) (*users.User, error) {
	return s.getUser(`SELECT id, username, email, full_name, password_hash, active, date_joined, last_login FROM users WHERE username = ?`, username)
}

func (s *Store) GetByID(id string) (*users.User, error) {
	return s.getUser(`SELECT id, username, email, full_name, password_hash, active, date_joined, last_login FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(query string, arg any) (*users.User, error) {
	row := s.sqlDB.QueryRow(query, arg)

	var (
		user       users.User
		dateJoined int64
		lastLogin  int64
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.PasswordHash, &user.Active, &dateJoined, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user")
	}
	user.DateJoined = fromMillis(dateJoined)
	user.LastLogin = fromMillis(lastLogin)

	roles, err := s.rolesForUser(user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (s *Store) rolesForUser(userID string) ([]rbac.Role, error) {
	rows, err := s.sqlDB.Query(`
SELECT r.name, r.description, r.permissions
FROM roles r
JOIN user_roles ur ON ur.role_name = r.name
WHERE ur.user_id = ?
ORDER BY r.name`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query user roles")
	}
	defer func() { _ = rows.Close() }()

	var roles []rbac.Role
	for rows.Next() {
		var (
			role           rbac.Role
			permissionsRaw string
		)
		if err := rows.Scan(&role.Name, &role.Description, &permissionsRaw); err != nil {
			return nil, errors.Wrap(err, "scan role")
		}
		if err := json.Unmarshal([]byte(permissionsRaw), &role.Permissions); err != nil {
			return nil, errors.Wrap(err, "unmarshal permissions")
		}
		roles = append(roles, role)
	}
	return roles, errors.Wrap(rows.Err(), "iterate user roles")
}

func (s *Store) List(offset, limit int) ([]*users.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.sqlDB.Query(`
SELECT id, username, email, full_name, password_hash, active, date_joined, last_login
FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "query users")
	}
	defer func() { _ = rows.Close() }()

	userList := make([]*users.User, 0)
	for rows.Next() {
		var (
			user       users.User
			dateJoined int64
			lastLogin  int64
		)
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
			&user.PasswordHash, &user.Active, &dateJoined, &lastLogin); err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		user.DateJoined = fromMillis(dateJoined)
		user.LastLogin = fromMillis(lastLogin)
		userList = append(userList, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate users")
	}

	for _, user := range userList {
		roles, err := s.rolesForUser(user.ID)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
	}
	return userList, nil
}

func (s *Store) SetActive(id string, active bool) error {
	result, err := s.sqlDB.Exec(`UPDATE users SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return errors.Wrap(err, "set user active")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "set user active rows affected")
	}
	if affected == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (s *Store) SetRoles(id string, roleNames []string) error {
	tx, err := s.sqlDB.Begin()
	if err != nil {
		return errors.Wrap(err, "begin set roles")
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM users WHERE id = ?`, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "check user exists")
	}
	if exists == 0 {
		return users.ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, id); err != nil {
		return errors.Wrap(err, "clear user roles")
	}
	for _, name := range roleNames {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO roles (name) VALUES (?)`, name); err != nil {
			return errors.Wrap(err, "ensure role")
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO user_roles (user_id, role_name) VALUES (?, ?)`, id, name); err != nil {
			return errors.Wrap(err, "assign role")
		}
	}
	return errors.Wrap(tx.Commit(), "commit set roles")
}
