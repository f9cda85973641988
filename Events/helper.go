package events

import (
	"github.com/go-chi/chi/v5"

	Auth "fanhub/Events/Auth"
	Posts "fanhub/Events/Posts"
	Search "fanhub/Events/Search"
	User "fanhub/Events/Users"
)

func Handler(req chi.Router) {
	req.Route("/auth", Auth.Handle)
	req.Route("/users", User.Handle)
	req.Route("/posts", Posts.Handle)
	req.Route("/search", Search.Handle)
}
