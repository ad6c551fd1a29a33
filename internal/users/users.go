// Package users manages operator accounts. The system must always keep at
// least one active admin, and nobody may deactivate or delete themselves.
package users

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mercado-pos/domain"
)

const bcryptCost = 10

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Input is the admin-editable part of a user. Password is required on
// create and optional on update.
type Input struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Service manages user records.
type Service struct {
	db  *sqlx.DB
	log *zap.Logger
}

// New constructs a Service.
func New(db *sqlx.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

const userColumns = `id, username, password_hash, full_name, role, is_active, created_at, updated_at`

// List returns users ordered by username, optionally filtered by a search
// term matched against username and full name.
func (s *Service) List(search string) ([]domain.User, error) {
	out := []domain.User{}
	var err error
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + term + "%"
		err = s.db.Select(&out, `
			SELECT `+userColumns+` FROM users
			WHERE username LIKE ? OR full_name LIKE ?
			ORDER BY username ASC`, like, like)
	} else {
		err = s.db.Select(&out, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to list users", err)
	}
	return out, nil
}

// Get returns one user by id.
func (s *Service) Get(id int64) (*domain.User, error) {
	var u domain.User
	err := s.db.Get(&u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to load user", err)
	}
	return &u, nil
}

// Create inserts a new account with a bcrypt password hash.
func (s *Service) Create(in Input) (*domain.User, error) {
	if err := validate(in, false); err != nil {
		return nil, err
	}
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if exists, err := s.usernameExists(username, 0); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.E(domain.KindConflict, "this username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to secure password", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO users (username, full_name, password_hash, role, is_active)
		VALUES (?, ?, ?, ?, ?)`,
		username, strings.TrimSpace(in.FullName), string(hash), in.Role, boolToInt(in.IsActive))
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to create user", err)
	}
	s.log.Info("user created", zap.Int64("id", id), zap.String("username", username))
	return s.Get(id)
}

// Update rewrites an account. actorID is the session user performing the
// change; self-deactivation is refused, and the last active admin can
// neither be demoted nor deactivated.
func (s *Service) Update(id int64, in Input, actorID int64) (*domain.User, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if actorID == id && !in.IsActive {
		return nil, domain.E(domain.KindConflict, "you cannot deactivate your own account")
	}
	if existing.Role == domain.RoleAdmin && existing.IsActive {
		demoted := in.Role != domain.RoleAdmin
		deactivated := !in.IsActive
		if demoted || deactivated {
			admins, err := s.countActiveAdmins()
			if err != nil {
				return nil, err
			}
			if admins <= 1 {
				return nil, domain.E(domain.KindConflict, "at least one active admin must remain")
			}
		}
	}
	if err := validate(in, true); err != nil {
		return nil, err
	}

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "unable to secure password", err)
		}
		_, err = s.db.Exec(`
			UPDATE users
			SET full_name = ?, password_hash = ?, role = ?, is_active = ?,
			    updated_at = datetime('now', 'localtime')
			WHERE id = ?`,
			strings.TrimSpace(in.FullName), string(hash), in.Role, boolToInt(in.IsActive), id)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "unable to update user", err)
		}
	} else {
		_, err = s.db.Exec(`
			UPDATE users
			SET full_name = ?, role = ?, is_active = ?,
			    updated_at = datetime('now', 'localtime')
			WHERE id = ?`,
			strings.TrimSpace(in.FullName), in.Role, boolToInt(in.IsActive), id)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "unable to update user", err)
		}
	}
	s.log.Info("user updated", zap.Int64("id", id))
	return s.Get(id)
}

// Delete removes an account. Self-deletion and removing the last active
// admin are refused. Past sales keep a null user via ON DELETE SET NULL.
func (s *Service) Delete(id, actorID int64) error {
	if actorID == id {
		return domain.E(domain.KindConflict, "you cannot delete your own account")
	}
	existing, err := s.Get(id)
	if err != nil {
		return err
	}
	if existing.Role == domain.RoleAdmin && existing.IsActive {
		admins, err := s.countActiveAdmins()
		if err != nil {
			return err
		}
		if admins <= 1 {
			return domain.E(domain.KindConflict, "the only admin cannot be deleted")
		}
	}
	if _, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id); err != nil {
		return domain.Wrap(domain.KindInternal, "unable to delete user", err)
	}
	s.log.Info("user deleted", zap.Int64("id", id), zap.String("username", existing.Username))
	return nil
}

func (s *Service) usernameExists(username string, excludeID int64) (bool, error) {
	var n int64
	err := s.db.Get(&n, `SELECT COUNT(*) FROM users WHERE username = ? AND id != ?`, username, excludeID)
	if err != nil {
		return false, domain.Wrap(domain.KindInternal, "unable to check username", err)
	}
	return n > 0, nil
}

func (s *Service) countActiveAdmins() (int64, error) {
	var n int64
	err := s.db.Get(&n, `SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active = 1`)
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, "unable to count admins", err)
	}
	return n, nil
}

func validate(in Input, isEdit bool) error {
	username := strings.TrimSpace(in.Username)
	if !isEdit {
		switch {
		case username == "":
			return domain.E(domain.KindValidation, "username is required")
		case len(username) < 3:
			return domain.E(domain.KindValidation, "username must have at least 3 characters")
		case len(username) > 50:
			return domain.E(domain.KindValidation, "username must have at most 50 characters")
		case !usernameRe.MatchString(username):
			return domain.E(domain.KindValidation, "username may only contain letters, numbers and underscore")
		}
	}

	fullName := strings.TrimSpace(in.FullName)
	switch {
	case fullName == "":
		return domain.E(domain.KindValidation, "full name is required")
	case len(fullName) < 2:
		return domain.E(domain.KindValidation, "full name must have at least 2 characters")
	case len(fullName) > 100:
		return domain.E(domain.KindValidation, "full name must have at most 100 characters")
	}

	if !isEdit && in.Password == "" {
		return domain.E(domain.KindValidation, "password is required")
	}
	if in.Password != "" && len(in.Password) < 4 {
		return domain.E(domain.KindValidation, "password must have at least 4 characters")
	}

	if !domain.ValidRole(in.Role) {
		return domain.E(domain.KindValidation, "select a valid role")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
