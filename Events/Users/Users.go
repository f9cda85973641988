package users

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	Monitoring "fanhub/Monitoring"
	Auth "fanhub/Services/Auth"
	Mdb "fanhub/Services/Mdb"
	storage "fanhub/Services/Storage"
	Utils "fanhub/Utils"
)

var GetClaims func(r *http.Request) (*Auth.Token, bool) = Auth.GetClaims

// Handle sets up the routes for user endpoints
func Handle(r chi.Router) {
	r.Get("/self", GetSelf)
	r.Put("/self", UpdateUser)
	r.Get("/models/ranking", ModelsRanking)
	r.Get("/models/{userId}", GetModelInfo)
	r.Post("/follow/{userId}", Follow)
	r.Post("/unfollow/{userId}", Unfollow)
	r.Post("/profile-image/upload", UploadProfileImage)
}

// GetSelf retrieves the authenticated user's own profile
func GetSelf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := fetchUserByUID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "User not found")
		} else {
			log.Errorf("GetSelf: failed to fetch user: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{"user": user})
}

// UpdateUserRequest represents the profile update payload. All fields are
// optional; at least one must be present.
type UpdateUserRequest struct {
	Username     *string `json:"username"`
	Password     *string `json:"password"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	ProfileImage *string `json:"profileImage"`
	Role         *string `json:"role"`
}

// UpdateUser updates the authenticated user's own profile
func UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Username == nil && input.Password == nil && input.FirstName == nil &&
		input.LastName == nil && input.ProfileImage == nil && input.Role == nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "at least one field must be provided")
		return
	}

	user, err := fetchUserByUID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "User not found")
		} else {
			log.Errorf("UpdateUser: failed to fetch user: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if err := ValidateUsername(username); err != nil {
			Utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		if username != user.Username {
			taken, err := checkUsernameTakenByOther(ctx, username, claims.UID)
			if err != nil {
				log.Errorf("UpdateUser: failed to check username: %v", err)
				Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to check username")
				return
			}
			if taken {
				Utils.SendErrorResponse(w, http.StatusBadRequest, "Username already taken")
				return
			}
		}
		user.Username = username
	}
	if input.Password != nil {
		if err := Auth.ValidatePassword(*input.Password); err != nil {
			Utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := Auth.HashPassword(*input.Password)
		if err != nil {
			log.Errorf("UpdateUser: failed to hash password: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		user.PasswordHash = hash
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.ProfileImage != nil {
		user.ProfileImage = *input.ProfileImage
	}
	if input.Role != nil {
		if err := ValidateRole(*input.Role); err != nil {
			Utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		user.Role = *input.Role
	}

	user.UpdatedAt = time.Now()
	_, err = Mdb.DB.ExecContext(ctx,
		`UPDATE users SET username = $1, first_name = $2, last_name = $3, profile_image = $4,
			role = $5, password_hash = $6, updated_at = $7
		WHERE uid = $8`,
		user.Username, user.FirstName, user.LastName, user.ProfileImage,
		user.Role, user.PasswordHash, user.UpdatedAt, claims.UID,
	)
	if err != nil {
		log.Errorf("UpdateUser: failed to update user: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{"user": user})
}

// GetModelInfo retrieves a model's profile by id. A user-role account is
// reported as missing, not as forbidden.
func GetModelInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := GetClaims(r); !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID := chi.URLParam(r, "userId")
	if userID == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "User ID is required")
		return
	}

	user, err := fetchUserByUID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "Model not found")
		} else {
			log.Errorf("GetModelInfo: failed to fetch user: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}
	if user.Role != RoleModel {
		Utils.SendErrorResponse(w, http.StatusNotFound, "Model not found")
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{"user": user})
}

// Follow adds the target model to the requester's following set.
// Already-following calls are a no-op and return the requester unchanged.
func Follow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "User ID is required")
		return
	}

	requester, err := fetchUserByUID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "User not found")
		} else {
			log.Errorf("Follow: failed to fetch requester: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	target, err := fetchUserByUID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "Model not found")
		} else {
			log.Errorf("Follow: failed to fetch target: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	if !CanFollow(requester.Role, target.Role) {
		Utils.SendErrorResponse(w, http.StatusForbidden, "Forbidden")
		return
	}

	// Already following: no-op, skip the write
	if requester.Following.Contains(target.UID) {
		Utils.SendSuccessResponse(w, map[string]interface{}{"user": requester})
		return
	}

	// Atomic set-add: the membership guard runs inside the UPDATE so
	// concurrent follow calls cannot append a duplicate id.
	result, err := Mdb.DB.ExecContext(ctx,
		`UPDATE users SET following = array_append(following, $2), updated_at = NOW()
		WHERE uid = $1 AND NOT ($2 = ANY(following))`,
		claims.UID, target.UID,
	)
	if err != nil {
		log.Errorf("Follow: failed to update following: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to update following")
		return
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		Monitoring.FollowMutations.WithLabelValues("follow").Inc()
	}

	updated, err := fetchUserByUID(ctx, claims.UID)
	if err != nil {
		log.Errorf("Follow: failed to fetch updated user: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{"user": updated})
}

// Unfollow removes the target model from the requester's following set.
// Not-following calls are a no-op and return the requester unchanged.
func Unfollow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "User ID is required")
		return
	}

	requester, err := fetchUserByUID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "User not found")
		} else {
			log.Errorf("Unfollow: failed to fetch requester: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	target, err := fetchUserByUID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "Model not found")
		} else {
			log.Errorf("Unfollow: failed to fetch target: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	// Same eligibility gate as Follow so the two directions cannot
	// diverge in policy.
	if !CanFollow(requester.Role, target.Role) {
		Utils.SendErrorResponse(w, http.StatusForbidden, "Forbidden")
		return
	}

	// Not following: no-op, skip the write
	if !requester.Following.Contains(target.UID) {
		Utils.SendSuccessResponse(w, map[string]interface{}{"user": requester})
		return
	}

	// Atomic set-remove; array_remove matches the stored text form of the
	// id, so removal compares canonical strings rather than row identity.
	result, err := Mdb.DB.ExecContext(ctx,
		`UPDATE users SET following = array_remove(following, $2), updated_at = NOW()
		WHERE uid = $1 AND $2 = ANY(following)`,
		claims.UID, target.UID,
	)
	if err != nil {
		log.Errorf("Unfollow: failed to update following: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to update following")
		return
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		Monitoring.FollowMutations.WithLabelValues("unfollow").Inc()
	}

	updated, err := fetchUserByUID(ctx, claims.UID)
	if err != nil {
		log.Errorf("Unfollow: failed to fetch updated user: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{"user": updated})
}

// ModelsRanking lists models ordered by descending post count.
// totalResults counts every model-role account, so a model with zero posts
// is included in the total but never appears in results.
// Query params: ?sortBy=&limit=10&page=1
func ModelsRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := GetClaims(r); !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	opts := Mdb.ParsePageOptions(r.URL.Query())

	var totalResults int
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`,
		RoleModel,
	).Scan(&totalResults)
	if err != nil {
		log.Errorf("ModelsRanking: failed to count models: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to count models")
		return
	}

	// Ties on post count are broken by owner id ascending so the ordering
	// is deterministic.
	rows, err := Mdb.DB.QueryContext(ctx,
		`SELECT p.user_uid, u.username, u.first_name, u.last_name, u.profile_image, u.role,
			COUNT(*) AS post_count
		FROM posts p
		JOIN users u ON p.user_uid = u.uid
		WHERE u.role = $1
		GROUP BY p.user_uid, u.username, u.first_name, u.last_name, u.profile_image, u.role
		ORDER BY post_count DESC, p.user_uid ASC
		LIMIT $2 OFFSET $3`,
		RoleModel, opts.Limit, opts.Offset(),
	)
	if err != nil {
		log.Errorf("ModelsRanking: failed to query ranking: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch ranking")
		return
	}
	defer rows.Close()

	results := []RankedModel{}
	for rows.Next() {
		var entry RankedModel
		if err := rows.Scan(
			&entry.Owner.UID, &entry.Owner.Username, &entry.Owner.FirstName,
			&entry.Owner.LastName, &entry.Owner.ProfileImage, &entry.Owner.Role,
			&entry.PostCount,
		); err != nil {
			log.Errorf("ModelsRanking: failed to scan entry: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to decode ranking")
			return
		}
		results = append(results, entry)
	}
	if err = rows.Err(); err != nil {
		log.Errorf("ModelsRanking: row iteration error: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to iterate ranking")
		return
	}

	Utils.SendSuccessResponse(w, Mdb.NewPage(results, opts, totalResults))
}

// UploadProfileImage generates a presigned URL for uploading a profile image
func UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	objectKey := "images/profiles/" + claims.UID + ".jpg"
	uploadURL, err := storage.GeneratePresignedUploadURL(objectKey, 20*time.Minute)
	if err != nil {
		log.Errorf("UploadProfileImage: failed to generate presigned upload URL: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to generate presigned upload URL")
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{
		"upload_url": uploadURL,
		"public_url": storage.PublicURL(objectKey),
	})
}
