package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	authH := AuthHandler{Identity: deps.Identity, Tokens: deps.Tokens, Store: deps.Store, Limiter: deps.AuthLimiter}
	users := UserHandler{Store: deps.Store}
	followers := FollowerHandler{Store: deps.Store, Guard: deps.Guard}
	posts := PostHandler{Store: deps.Store, Guard: deps.Guard}
	feed := FeedHandler{Store: deps.Store}

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.HandleFunc("POST /auth/register", authH.Register)
	mux.HandleFunc("POST /auth/login", authH.Login)
	mux.HandleFunc("POST /auth/logout", authH.Logout)
	mux.HandleFunc("GET /users/{username}", users.Get)
	mux.HandleFunc("GET /users/{username}/followers", followers.List)
	mux.HandleFunc("PUT /users/{username}/followers/{follower}", followers.Add)
	mux.HandleFunc("DELETE /users/{username}/followers/{follower}", followers.Remove)
	mux.HandleFunc("GET /users/{username}/posts", posts.ListForUser)
	mux.HandleFunc("POST /users/{username}/posts", posts.Create)
	mux.HandleFunc("GET /users/{username}/feed", feed.Get)
	mux.HandleFunc("GET /posts/{post_id}", posts.Get)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Identity    IdentityClient
	Tokens      TokenCache
	Store       FeedStore
	Guard       TokenResolver
	AuthLimiter RateLimiter
}
