package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	Users "fanhub/Events/Users"
	Monitoring "fanhub/Monitoring"
	AuthService "fanhub/Services/Auth"
	Mdb "fanhub/Services/Mdb"
	Utils "fanhub/Utils"
)

// Handle sets up the routes for authentication endpoints
func Handle(r chi.Router) {
	r.Post("/register", Register)
	r.Post("/login", Login)
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ProfileImage string `json:"profileImage"`
	Role         string `json:"role"`
}

// Register creates a new user account and returns a JWT token
func Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(input.Username)
	if err := Users.ValidateUsername(username); err != nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := AuthService.ValidatePassword(input.Password); err != nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "firstName and lastName are required")
		return
	}
	if input.ProfileImage == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "profileImage is required")
		return
	}
	if err := Users.ValidateRole(input.Role); err != nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// Username uniqueness is case-sensitive
	exists, err := Users.CheckUsernameExists(ctx, username)
	if err != nil {
		log.Errorf("Register: failed to check username: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to check username")
		return
	}
	if exists {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "Username already taken")
		return
	}

	passwordHash, err := AuthService.HashPassword(input.Password)
	if err != nil {
		log.Errorf("Register: failed to hash password: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	uid := uuid.New().String()
	now := time.Now()
	_, err = Mdb.DB.ExecContext(ctx,
		`INSERT INTO users (uid, username, first_name, last_name, profile_image, role, following, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uid, username, strings.TrimSpace(input.FirstName), strings.TrimSpace(input.LastName),
		input.ProfileImage, input.Role, Users.StringArray{}, passwordHash, now, now,
	)
	if err != nil {
		// Concurrent register with the same username loses the unique
		// constraint race; report it the same as the pre-check.
		if strings.Contains(err.Error(), "users_username_key") {
			Utils.SendErrorResponse(w, http.StatusBadRequest, "Username already taken")
			return
		}
		log.Errorf("Register: failed to insert user: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := AuthService.GenerateToken(uid)
	if err != nil {
		log.Errorf("Register: failed to generate token: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	user, err := Users.FetchUserByUID(ctx, uid)
	if err != nil {
		log.Errorf("Register: failed to fetch created user: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	Monitoring.RegisterSuccess.Inc()
	Utils.SendCreatedResponse(w, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a JWT token. A missing account and
// a wrong password produce the same response.
func Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Username == "" || input.Password == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "username and password are required")
		return
	}

	var uid, passwordHash string
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT uid, password_hash FROM users WHERE username = $1`,
		input.Username,
	).Scan(&uid, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Monitoring.LoginFailure.WithLabelValues("unknown_user").Inc()
			Utils.SendErrorResponse(w, http.StatusUnauthorized, "Incorrect username or password")
		} else {
			log.Errorf("Login: failed to fetch user: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	if !AuthService.CheckPasswordHash(input.Password, passwordHash) {
		Monitoring.LoginFailure.WithLabelValues("bad_password").Inc()
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := AuthService.GenerateToken(uid)
	if err != nil {
		log.Errorf("Login: failed to generate token: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	user, err := Users.FetchUserByUID(ctx, uid)
	if err != nil {
		log.Errorf("Login: failed to fetch user: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	Monitoring.LoginSuccess.Inc()
	Utils.SendSuccessResponse(w, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}
