package users

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// StringArray is a custom type for PostgreSQL text arrays
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	// PostgreSQL array format: {"item1","item2","item3"}
	quoted := make([]string, len(a))
	for i, item := range a {
		escaped := strings.ReplaceAll(item, `"`, `""`)
		quoted[i] = `"` + escaped + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}", nil
}

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("cannot scan non-string value into StringArray")
	}

	// PostgreSQL returns arrays in format: {item1,item2,item3}.
	// The elements stored here are uuid-shaped ids, so the parser does not
	// handle embedded commas, empty elements or escaped quotes inside values.
	if len(bytes) > 0 && bytes[0] == '{' {
		str := string(bytes[1 : len(bytes)-1])
		if str == "" {
			*a = []string{}
			return nil
		}
		parts := []string{}
		current := ""
		inQuotes := false
		for i := 0; i < len(str); i++ {
			if str[i] == '"' {
				inQuotes = !inQuotes
			} else if str[i] == ',' && !inQuotes {
				if current != "" {
					parts = append(parts, current)
					current = ""
				}
			} else {
				current += string(str[i])
			}
		}
		if current != "" {
			parts = append(parts, current)
		}
		*a = parts
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Contains reports whether the array holds the given id, comparing by the
// canonical string form regardless of how the value was stored.
func (a StringArray) Contains(id string) bool {
	for _, item := range a {
		if item == id {
			return true
		}
	}
	return false
}

// User represents a user account
// Ensure INDEXES on: users(uid), users(username), users(role) for optimal query performance
type User struct {
	ID           int         `db:"id" json:"-"`
	UID          string      `db:"uid" json:"id"`
	Username     string      `db:"username" json:"username"`
	FirstName    string      `db:"first_name" json:"firstName"`
	LastName     string      `db:"last_name" json:"lastName"`
	ProfileImage string      `db:"profile_image" json:"profileImage"`
	Role         string      `db:"role" json:"role"` // "user" or "model"
	Following    StringArray `db:"following" json:"following"`
	PasswordHash string      `db:"password_hash" json:"-"` // never serialized outward
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// PublicProfile is the projection of a user embedded in other responses
// (feed entries, rankings, search results). No password, no following list.
type PublicProfile struct {
	UID          string `db:"uid" json:"id"`
	Username     string `db:"username" json:"username"`
	FirstName    string `db:"first_name" json:"firstName"`
	LastName     string `db:"last_name" json:"lastName"`
	ProfileImage string `db:"profile_image" json:"profileImage"`
	Role         string `db:"role" json:"role"`
}

// RankedModel is one entry of the models-by-post-count ranking
type RankedModel struct {
	Owner     PublicProfile `json:"owner"`
	PostCount int           `json:"postCount"`
}
