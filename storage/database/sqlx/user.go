package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/user"
)

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    time.Time      `db:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo *userRepository) pack(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.Active(),
		Roles:        pq.StringArray(roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    usr.LastLogin.UTC(),
	}
}

func (repo *userRepository) unpack(row userRow) user.User {
	isActive := row.IsActive
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username,
		Email:        row.Email,
		IsActive:     &isActive,
		Roles:        row.Roles,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin,
	}
}

func (repo *userRepository) unpackSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unpack(row))
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	if username == "" && email == "" {
		return nil
	}

	where := `(username = $1 AND username <> '') OR (email = $2 AND email <> '')`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		args = append(args, pq.StringArray(ids))
		where = fmt.Sprintf(`(%s) AND id <> ALL($3)`, where)
	}

	var rows []userRow
	q := `SELECT username, email FROM "user" WHERE ` + where
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username == username {
			return user.ErrUsernameExists
		}
	}
	for _, row := range rows {
		if email != "" && row.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	row := repo.pack(usr)
	q := `
		INSERT INTO "user" (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := getExec(repo.exec, exec).ExecContext(ctx, q,
		row.ID, row.Name, row.Username, row.Email, row.IsActive, row.Roles, row.PasswordHash,
		row.CreatedAt, row.UpdatedAt, row.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		where string
		args  []interface{}
	)
	switch {
	case filter.ID != "":
		where, args = `id = $1`, []interface{}{filter.ID}
	case filter.Username != "":
		where, args = `username = $1`, []interface{}{filter.Username}
	case filter.Email != "":
		where, args = `email = $1`, []interface{}{filter.Email}
	case len(filter.UsernameOrEmail) > 0:
		uname := filter.UsernameOrEmail[0]
		email := uname
		if len(filter.UsernameOrEmail) > 1 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
		if uname == "" {
			uname = email
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		where, args = `(username = $1 AND username <> '') OR (email = $2 AND email <> '')`, []interface{}{uname, email}
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE ` + where
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unpack(row), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	where := []string{"TRUE"}
	var args argList

	// users with Name, Username or Email matching the search keyword
	if filter.Search != "" {
		p := args.add("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf(`(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)`, p))
	}
	// users with any role that starts with any of the provided roles
	if len(filter.Roles) > 0 {
		conds := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			conds = append(conds, fmt.Sprintf(
				`EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE %s)`, args.add(role+"%")))
		}
		where = append(where, `(`+strings.Join(conds, " OR ")+`)`)
	}
	if filter.IsActive != nil {
		where = append(where, `is_active = `+args.add(*filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, `created_at >= `+args.add(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, `created_at <= `+args.add(filter.CreatedTo.UTC()))
	}

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE ` + strings.Join(where, " AND ") + orderBy(ordering)
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unpackSlice(rows), nil
}

// UpdateUser only saves set fields: nil Roles, nil PasswordHash and zero
// LastLogin are left untouched; isActive applies when non-nil.
func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool, exec ...core.DBExecutor) (user.User, error) {
	set := make([]string, 0, 8)
	var args argList
	add := func(col string, val interface{}) {
		set = append(set, col+` = `+args.add(val))
	}

	add("name", usr.Name)
	add("username", usr.Username)
	add("email", usr.Email)
	add("updated_at", usr.UpdatedAt.UTC())
	if usr.Roles != nil {
		add("roles", pq.StringArray(usr.Roles))
	}
	if usr.PasswordHash != nil {
		add("password_hash", usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		add("last_login", usr.LastLogin.UTC())
	}
	if isActive != nil {
		add("is_active", *isActive)
	}

	var row userRow
	q := fmt.Sprintf(`UPDATE "user" SET %s WHERE id = %s RETURNING `+userColumns, strings.Join(set, ", "), args.add(usr.ID))
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return repo.unpack(row), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, usr.IsActive, exec...)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	q := `DELETE FROM "user" WHERE id = ANY($1)`
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, pq.StringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
