package posts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	blake3 "lukechampine.com/blake3"

	Search "fanhub/Events/Search"
	Users "fanhub/Events/Users"
	Monitoring "fanhub/Monitoring"
	Auth "fanhub/Services/Auth"
	Mdb "fanhub/Services/Mdb"
	storage "fanhub/Services/Storage"
	Utils "fanhub/Utils"
)

var GetClaims func(r *http.Request) (*Auth.Token, bool) = Auth.GetClaims

// Handle sets up the routes for post endpoints
func Handle(r chi.Router) {
	r.Post("/", CreatePost)
	r.Get("/", ListPosts)
	r.Get("/feed", Feed)
	r.Get("/search", SearchPostsByOwner)
	r.Post("/media/upload", UploadMedia)
	r.Get("/{postId}", GetPost)
	r.Put("/{postId}", UpdatePost)
	r.Delete("/{postId}", DeletePost)
}

// Sortable fields for post listings (request field -> column)
var postSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

var joinedPostSortColumns = map[string]string{
	"createdAt": "p.created_at",
	"updatedAt": "p.updated_at",
}

const postColumns = `id, post_id, user_uid, media_url, description, created_at, updated_at`

func fetchPostByID(ctx context.Context, postID string) (*Post, error) {
	var post Post
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE post_id = $1`,
		postID,
	).Scan(
		&post.ID, &post.PostID, &post.UserUID, &post.MediaURL,
		&post.Description, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// pagedPostsByOwners returns one page of posts owned by any of the given
// uids, each enriched with the owner's public profile. The count and fetch
// are two separate round trips without a shared snapshot, so totalResults
// may be stale relative to results under concurrent writes.
func pagedPostsByOwners(ctx context.Context, ownerUIDs []string, opts Mdb.PageOptions) (Mdb.Page, error) {
	empty := Mdb.NewPage([]PostWithOwner{}, opts, 0)
	// Empty-set membership matches nothing, never everything
	if len(ownerUIDs) == 0 {
		return empty, nil
	}

	var totalResults int
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE user_uid = ANY($1)`,
		pq.Array(ownerUIDs),
	).Scan(&totalResults)
	if err != nil {
		return empty, fmt.Errorf("failed to count posts: %w", err)
	}

	orderBy := opts.OrderBy(joinedPostSortColumns, "p.created_at DESC")
	rows, err := Mdb.DB.QueryContext(ctx,
		`SELECT p.id, p.post_id, p.user_uid, p.media_url, p.description, p.created_at, p.updated_at,
			u.uid, u.username, u.first_name, u.last_name, u.profile_image, u.role
		FROM posts p
		JOIN users u ON p.user_uid = u.uid
		WHERE p.user_uid = ANY($1)
		ORDER BY `+orderBy+`
		LIMIT $2 OFFSET $3`,
		pq.Array(ownerUIDs), opts.Limit, opts.Offset(),
	)
	if err != nil {
		return empty, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	results := []PostWithOwner{}
	for rows.Next() {
		var entry PostWithOwner
		if err := rows.Scan(
			&entry.ID, &entry.PostID, &entry.UserUID, &entry.MediaURL,
			&entry.Description, &entry.CreatedAt, &entry.UpdatedAt,
			&entry.Owner.UID, &entry.Owner.Username, &entry.Owner.FirstName,
			&entry.Owner.LastName, &entry.Owner.ProfileImage, &entry.Owner.Role,
		); err != nil {
			return empty, fmt.Errorf("failed to scan post: %w", err)
		}
		results = append(results, entry)
	}
	if err = rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return Mdb.NewPage(results, opts, totalResults), nil
}

// CreatePostRequest represents the post creation payload
type CreatePostRequest struct {
	MediaURL    string `json:"mediaUrl"`
	Description string `json:"description"`
}

// CreatePost creates a post owned by the authenticated user
func CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.MediaURL == "" || input.Description == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "mediaUrl and description are required")
		return
	}

	if _, err := Users.FetchUserByUID(ctx, claims.UID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "User not found")
		} else {
			log.Errorf("CreatePost: failed to fetch user: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	// Media pointing into our bucket must have been uploaded before the post
	// is accepted. External media URLs pass through unchecked.
	if storage.S3Client != nil {
		if key, ok := storage.ObjectKeyFromURL(input.MediaURL); ok {
			exists, err := storage.IsFileExists(key)
			if err != nil || !exists {
				Utils.SendErrorResponse(w, http.StatusBadRequest, "media object has not been uploaded")
				return
			}
		}
	}

	postID := fmt.Sprintf("%x", blake3.Sum256([]byte(claims.UID+time.Now().Format(time.RFC3339)+uuid.New().String())))
	now := time.Now()

	post := Post{
		PostID:      postID,
		UserUID:     claims.UID,
		MediaURL:    input.MediaURL,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := Mdb.DB.ExecContext(ctx,
		`INSERT INTO posts (post_id, user_uid, media_url, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		post.PostID, post.UserUID, post.MediaURL, post.Description, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		log.Errorf("CreatePost: failed to insert post: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to create post")
		return
	}

	Monitoring.PostsCreated.Inc()
	Utils.SendCreatedResponse(w, map[string]interface{}{"post": post})
}

// ListPosts lists the authenticated user's own posts
// Query params: ?sortBy=createdAt:desc&limit=10&page=1
func ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	opts := Mdb.ParsePageOptions(r.URL.Query())

	var totalResults int
	err := Mdb.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE user_uid = $1`,
		claims.UID,
	).Scan(&totalResults)
	if err != nil {
		log.Errorf("ListPosts: failed to count posts: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to count posts")
		return
	}

	orderBy := opts.OrderBy(postSortColumns, "created_at DESC")
	rows, err := Mdb.DB.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		WHERE user_uid = $1
		ORDER BY `+orderBy+`
		LIMIT $2 OFFSET $3`,
		claims.UID, opts.Limit, opts.Offset(),
	)
	if err != nil {
		log.Errorf("ListPosts: failed to query posts: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	defer rows.Close()

	results := []Post{}
	for rows.Next() {
		var post Post
		if err := rows.Scan(
			&post.ID, &post.PostID, &post.UserUID, &post.MediaURL,
			&post.Description, &post.CreatedAt, &post.UpdatedAt,
		); err != nil {
			log.Errorf("ListPosts: failed to scan post: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to decode posts")
			return
		}
		results = append(results, post)
	}
	if err = rows.Err(); err != nil {
		log.Errorf("ListPosts: row iteration error: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to iterate posts")
		return
	}

	Utils.SendSuccessResponse(w, Mdb.NewPage(results, opts, totalResults))
}

// Feed lists posts from the models the authenticated user follows, newest
// first by default. An empty following set yields an empty page.
// Query params: ?sortBy=createdAt:desc&limit=10&page=1
func Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	viewer, err := Users.FetchUserByUID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "User not found")
		} else {
			log.Errorf("Feed: failed to fetch user: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	opts := Mdb.ParsePageOptions(r.URL.Query())
	page, err := pagedPostsByOwners(ctx, viewer.Following, opts)
	if err != nil {
		log.Errorf("Feed: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch feed")
		return
	}

	Utils.SendSuccessResponse(w, page)
}

// SearchPostsByOwner lists posts whose owner matches the keyword, using the
// matching model uids as an in-filter for the post query.
// Query params: ?keyword=&sortBy=&limit=10&page=1
func SearchPostsByOwner(w http.ResponseWriter, r *http.Request) {
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

	ownerUIDs, err := Search.SearchModelUIDs(ctx, keyword)
	if err != nil {
		log.Errorf("SearchPostsByOwner: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to search posts")
		return
	}

	opts := Mdb.ParsePageOptions(r.URL.Query())
	page, err := pagedPostsByOwners(ctx, ownerUIDs, opts)
	if err != nil {
		log.Errorf("SearchPostsByOwner: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to search posts")
		return
	}

	Utils.SendSuccessResponse(w, page)
}

// GetPost retrieves a post by id
func GetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := GetClaims(r); !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	postID := chi.URLParam(r, "postId")
	if postID == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	post, err := fetchPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "Post not found")
		} else {
			log.Errorf("GetPost: failed to fetch post: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch post")
		}
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{"post": post})
}

// UpdatePostRequest represents the post update payload
type UpdatePostRequest struct {
	MediaURL    string `json:"mediaUrl"`
	Description string `json:"description"`
}

// UpdatePost updates a post owned by the authenticated user. An ownership
// mismatch is reported as the same 404 as true absence.
func UpdatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	postID := chi.URLParam(r, "postId")
	if postID == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	var input UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.MediaURL == "" || input.Description == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "mediaUrl and description are required")
		return
	}

	post, err := fetchPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "Post not found")
		} else {
			log.Errorf("UpdatePost: failed to fetch post: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch post")
		}
		return
	}
	if post.UserUID != claims.UID {
		Utils.SendErrorResponse(w, http.StatusNotFound, "Post not found")
		return
	}

	post.MediaURL = input.MediaURL
	post.Description = input.Description
	post.UpdatedAt = time.Now()

	_, err = Mdb.DB.ExecContext(ctx,
		`UPDATE posts SET media_url = $1, description = $2, updated_at = $3 WHERE post_id = $4`,
		post.MediaURL, post.Description, post.UpdatedAt, postID,
	)
	if err != nil {
		log.Errorf("UpdatePost: failed to update post: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to update post")
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{"post": post})
}

// DeletePost deletes a post owned by the authenticated user. An ownership
// mismatch is reported as the same 404 as true absence.
func DeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	postID := chi.URLParam(r, "postId")
	if postID == "" {
		Utils.SendErrorResponse(w, http.StatusBadRequest, "Post ID is required")
		return
	}

	post, err := fetchPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			Utils.SendErrorResponse(w, http.StatusNotFound, "Post not found")
		} else {
			log.Errorf("DeletePost: failed to fetch post: %v", err)
			Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to fetch post")
		}
		return
	}
	if post.UserUID != claims.UID {
		Utils.SendErrorResponse(w, http.StatusNotFound, "Post not found")
		return
	}

	_, err = Mdb.DB.ExecContext(ctx, `DELETE FROM posts WHERE post_id = $1`, postID)
	if err != nil {
		log.Errorf("DeletePost: failed to delete post: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to delete post")
		return
	}

	// Best-effort cleanup of the media object; the post row is already gone
	if key, ok := storage.ObjectKeyFromURL(post.MediaURL); ok {
		if err := storage.DeleteFile(ctx, key); err != nil {
			log.Warnf("DeletePost: failed to delete media object %s: %v", key, err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadMedia generates a presigned URL for uploading post media. The
// returned public_url is what clients place in mediaUrl when creating the
// post after the upload completes.
func UploadMedia(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaims(r)
	if !ok {
		Utils.SendErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	mediaID := fmt.Sprintf("%x", blake3.Sum256([]byte(claims.UID+time.Now().Format(time.RFC3339)+uuid.New().String())))
	objectKey := "media/posts/" + mediaID

	uploadURL, err := storage.GeneratePresignedUploadURL(objectKey, 20*time.Minute)
	if err != nil {
		log.Errorf("UploadMedia: failed to generate presigned upload URL: %v", err)
		Utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to generate presigned upload URL")
		return
	}

	Utils.SendSuccessResponse(w, map[string]interface{}{
		"media_id":   mediaID,
		"upload_url": uploadURL,
		"public_url": storage.PublicURL(objectKey),
	})
}
