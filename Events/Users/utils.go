package users

import (
	"context"
	"errors"
	"regexp"
	"strings"

	Mdb "fanhub/Services/Mdb"
)

// Constants for validation and roles
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	RoleUser          = "user"
	RoleModel         = "model"
	DefaultRole       = RoleUser
)

var (
	// usernameRegex validates username: 3-30 chars, alphanumeric + underscores
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
)

// ValidateUsername checks username format. Usernames are case-sensitive and
// stored exactly as given.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return errors.New("username must be between 3 and 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username may only contain letters, digits and underscores")
	}
	return nil
}

// ValidateRole checks that a role is one of the two known roles
func ValidateRole(role string) error {
	if role != RoleUser && role != RoleModel {
		return errors.New("role must be either 'user' or 'model'")
	}
	return nil
}

// CanFollow applies the follow eligibility policy symmetrically for follow
// and unfollow: only user-role accounts may follow, and only model-role
// accounts may be followed.
func CanFollow(requesterRole, targetRole string) bool {
	if targetRole == RoleUser || requesterRole == RoleModel {
		return false
	}
	return true
}

const userColumns = `id, uid, username, first_name, last_name, profile_image, role, following, password_hash, created_at, updated_at`

// fetchUserByUID retrieves a user by their UID
// Ensure INDEX on users(uid) for optimal performance
func fetchUserByUID(ctx context.Context, uid string) (*User, error) {
	var user User
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = $1`,
		uid,
	).Scan(
		&user.ID, &user.UID, &user.Username, &user.FirstName, &user.LastName,
		&user.ProfileImage, &user.Role, &user.Following, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchUserByUID is the exported variant used by other handler packages
func FetchUserByUID(ctx context.Context, uid string) (*User, error) {
	return fetchUserByUID(ctx, uid)
}

// CheckUsernameExists reports whether a username is already taken. The check
// is case-sensitive: "Ann" and "ann" are distinct usernames.
func CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// checkUsernameTakenByOther reports whether a username is used by an account
// other than the given uid (for profile updates)
func checkUsernameTakenByOther(ctx context.Context, username, uid string) (bool, error) {
	var exists bool
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND uid != $2)`,
		username, uid,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
