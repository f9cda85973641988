package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	Auth "fanhub/Services/Auth"
	Mdb "fanhub/Services/Mdb"
	Utils "fanhub/Utils"
)

var GetClaims func(r *http.Request) (*Auth.Token, bool) = Auth.GetClaims

// Handle sets up the routes for search endpoints
func Handle(r chi.Router) {
	r.Get("/users", SearchUsersHandler)
}

// LikePattern builds a case-insensitive substring pattern for ILIKE,
// escaping the wildcard characters in the keyword.
func LikePattern(keyword string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(keyword)
	return "%" + escaped + "%"
}

// SearchResult is the projection returned for a matching model
type SearchResult struct {
	UID      string `db:"uid" json:"id"`
	Username string `db:"username" json:"username"`
}

// SearchUsersHandler searches models by case-insensitive substring match of
// the keyword against first name, last name or username, evaluated by the
// store. Query params: ?keyword=&sortBy=&limit=10&page=1
func SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := GetClaims(r); !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "Keyword is required")
		return
	}

	opts := Mdb.ParsePageOptions(r.URL.Query())
	pattern := LikePattern(keyword)

	var totalResults int
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users
		WHERE role = 'model'
			AND (first_name ILIKE $1 OR last_name ILIKE $1 OR username ILIKE $1)`,
		pattern,
	).Scan(&totalResults)
	if err != nil {
		log.Errorf("SearchUsers: failed to count matches: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to search users")
		return
	}

	orderBy := opts.OrderBy(map[string]string{
		"username":  "username",
		"firstName": "first_name",
		"lastName":  "last_name",
		"createdAt": "created_at",
	}, "username ASC")

	rows, err := Mdb.DB.QueryContext(ctx,
		`SELECT uid, username FROM users
		WHERE role = 'model'
			AND (first_name ILIKE $1 OR last_name ILIKE $1 OR username ILIKE $1)
		ORDER BY `+orderBy+`
		LIMIT $2 OFFSET $3`,
		pattern, opts.Limit, opts.Offset(),
	)
	if err != nil {
		log.Errorf("SearchUsers: failed to query matches: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to search users")
		return
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var match SearchResult
		if err := rows.Scan(&match.UID, &match.Username); err != nil {
			log.Errorf("SearchUsers: failed to scan match: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to decode results")
			return
		}
		results = append(results, match)
	}
	if err = rows.Err(); err != nil {
		log.Errorf("SearchUsers: row iteration error: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to iterate results")
		return
	}

	Utils.SendSuccessResponse(w, Mdb.NewPage(results, opts, totalResults))
}

// SearchModelUIDs returns the uids of every model matching the keyword,
// used as an in-filter to scope post queries by owner.
func SearchModelUIDs(ctx context.Context, keyword string) ([]string, error) {
	pattern := LikePattern(keyword)
	rows, err := Mdb.DB.QueryContext(ctx,
		`SELECT uid FROM users
		WHERE role = 'model'
			AND (first_name ILIKE $1 OR last_name ILIKE $1 OR username ILIKE $1)`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search model uids: %w", err)
	}
	defer rows.Close()

	uids := []string{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("failed to scan model uid: %w", err)
		}
		uids = append(uids, uid)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate model uids: %w", err)
	}
	return uids, nil
}
