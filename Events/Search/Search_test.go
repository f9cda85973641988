package search

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	Auth "fanhub/Services/Auth"
	Mdb "fanhub/Services/Mdb"
)

func TestLikePattern(t *testing.T) {
	cases := []struct {
		keyword string
		want    string
	}{
		{"ann", "%ann%"},
		{"", "%%"},
		{"100%", `%100\%%`},
		{"under_score", `%under\_score%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, c := range cases {
		if got := LikePattern(c.keyword); got != c.want {
			t.Errorf("LikePattern(%q) = %q, want %q", c.keyword, got, c.want)
		}
	}
}

const testSchema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	uid TEXT UNIQUE NOT NULL,
	username TEXT UNIQUE NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	profile_image TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'model')),
	following TEXT[] NOT NULL DEFAULT '{}',
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS posts (
	id SERIAL PRIMARY KEY,
	post_id TEXT UNIQUE NOT NULL,
	user_uid TEXT NOT NULL REFERENCES users (uid),
	media_url TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

func openTestDB(t *testing.T) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM posts; DELETE FROM users`); err != nil {
		t.Fatalf("failed to reset test tables: %v", err)
	}

	Mdb.DB = db
	t.Cleanup(func() { db.Close() })
}

func stubClaims(t *testing.T) {
	t.Helper()
	original := GetClaims
	GetClaims = func(r *http.Request) (*Auth.Token, bool) {
		uid := r.Header.Get("X-Test-UID")
		if uid == "" {
			return nil, false
		}
		return &Auth.Token{UID: uid}, true
	}
	t.Cleanup(func() { GetClaims = original })
}

func insertTestUser(t *testing.T, uid, username, firstName, lastName, role string) {
	t.Helper()
	_, err := Mdb.DB.Exec(
		`INSERT INTO users (uid, username, first_name, last_name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, 'x')`,
		uid, username, firstName, lastName, role,
	)
	if err != nil {
		t.Fatalf("failed to insert test user %s: %v", username, err)
	}
}

func performSearch(t *testing.T, r chi.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Test-UID", "caller")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeSearchPage(t *testing.T, rr *httptest.ResponseRecorder) ([]SearchResult, int) {
	t.Helper()
	var resp struct {
		Data struct {
			Results      []SearchResult `json:"results"`
			TotalResults int            `json:"totalResults"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v. Body: %s", err, rr.Body.String())
	}
	return resp.Data.Results, resp.Data.TotalResults
}

func TestSearchUsersCaseInsensitive(t *testing.T) {
	openTestDB(t)
	stubClaims(t)

	insertTestUser(t, "m1", "annabelle", "Ann", "Smith", "model")
	insertTestUser(t, "m2", "brianna", "Bri", "Annerson", "model")
	insertTestUser(t, "m3", "carol", "Carol", "Jones", "model")
	insertTestUser(t, "u1", "ann_the_fan", "Ann", "Fan", "user")

	r := chi.NewRouter()
	Handle(r)

	rr := performSearch(t, r, "/users?keyword=ann")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	results, totalResults := decodeSearchPage(t, rr)

	// Matches any of first name, last name or username, case-insensitively,
	// and never returns plain users
	if totalResults != 2 || len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d (total %d)", len(results), totalResults)
	}
	if results[0].UID != "m1" || results[1].UID != "m2" {
		t.Errorf("unexpected matches: %+v", results)
	}
}

func TestSearchUsersWildcardsLiteral(t *testing.T) {
	openTestDB(t)
	stubClaims(t)

	insertTestUser(t, "m1", "percent_model", "Hundred", "Percent", "model")

	r := chi.NewRouter()
	Handle(r)

	// A bare % in the keyword must not match everything
	rr := performSearch(t, r, "/users?keyword=%25")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	results, totalResults := decodeSearchPage(t, rr)
	if len(results) != 0 || totalResults != 0 {
		t.Errorf("wildcard keyword matched %d users (total %d), want none", len(results), totalResults)
	}
}

func TestSearchUsersRequiresKeyword(t *testing.T) {
	openTestDB(t)
	stubClaims(t)

	r := chi.NewRouter()
	Handle(r)

	rr := performSearch(t, r, "/users")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without keyword, got %d", rr.Code)
	}
}

func TestSearchUsersSortWhitelist(t *testing.T) {
	openTestDB(t)
	stubClaims(t)

	insertTestUser(t, "m1", "bbb", "Ann", "One", "model")
	insertTestUser(t, "m2", "aaa", "Ann", "Two", "model")

	r := chi.NewRouter()
	Handle(r)

	rr := performSearch(t, r, "/users?keyword=ann&sortBy=username:desc")
	results, _ := decodeSearchPage(t, rr)
	if len(results) != 2 || results[0].Username != "bbb" {
		t.Fatalf("expected username:desc order, got %+v", results)
	}

	// Unknown sort fields fall back to the default ordering
	rr = performSearch(t, r, "/users?keyword=ann&sortBy=password_hash:desc")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown sort field, got %d", rr.Code)
	}
	results, _ = decodeSearchPage(t, rr)
	if len(results) != 2 || results[0].Username != "aaa" {
		t.Errorf("expected fallback username ASC order, got %+v", results)
	}
}
