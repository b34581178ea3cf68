package routes

import (
	"fmt"

	"github.com/gorilla/mux"
)

const (
	ListPosts     = "posts.list"
	GetPost       = "posts.get"
	UpdatePost    = "posts.update"
	DeletePost    = "posts.delete"
	LikePost      = "posts.like"
	UnlikePost    = "posts.unlike"
	ListComments  = "comments.list"
	CreateComment = "comments.create"
	ReplyComment  = "comments.reply"
	EditComment   = "comments.edit"
	DeleteComment = "comments.delete"
	LikeComment   = "comments.like"
	UnlikeComment = "comments.unlike"
)

type endpoint struct {
	name   string
	path   string
	method string
}

var endpoints = []endpoint{
	{ListPosts, "/posts", "GET"},
	{GetPost, "/posts/{postId}", "GET"},
	{UpdatePost, "/posts/{postId}", "PUT"},
	{DeletePost, "/posts/{postId}", "DELETE"},
	{LikePost, "/posts/{postId}/like", "POST"},
	{UnlikePost, "/posts/{postId}/like", "DELETE"},
	{ListComments, "/posts/{postId}/comments", "GET"},
	{CreateComment, "/posts/{postId}/comments", "POST"},
	{ReplyComment, "/comments/{commentId}/replies", "POST"},
	{EditComment, "/comments/{commentId}", "PUT"},
	{DeleteComment, "/comments/{commentId}", "DELETE"},
	{LikeComment, "/comments/{commentId}/like", "POST"},
	{UnlikeComment, "/comments/{commentId}/like", "DELETE"},
}

// CreateFeedRoutes registers every feed endpoint on router under its route
// name. Handlers are attached afterwards with router.Get(name).Handler(...).
func CreateFeedRoutes(router *mux.Router) *mux.Router {
	for _, e := range endpoints {
		router.Name(e.name).Path(e.path).Methods(e.method)
	}

	return router
}

// Table resolves route names to request methods and paths.
type Table struct {
	router *mux.Router
}

func NewTable() *Table {
	return &Table{router: CreateFeedRoutes(mux.NewRouter())}
}

// Build returns the method and path for the named route with its variables
// filled in from pairs ("postId", "42", ...).
func (t *Table) Build(name string, pairs ...string) (method string, path string, err error) {
	route := t.router.Get(name)
	if route == nil {
		return "", "", fmt.Errorf("build route %q: unknown route", name)
	}

	methods, err := route.GetMethods()
	if err != nil || len(methods) == 0 {
		return "", "", fmt.Errorf("build route %q: no method", name)
	}
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", "", fmt.Errorf("build route %q: %w", name, err)
	}

	return methods[0], u.EscapedPath(), nil
}
