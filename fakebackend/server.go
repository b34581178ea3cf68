package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"alumnihub.com/alumni-feed/routes"
)

// NewHandler returns a router serving every feed endpoint from store.
func NewHandler(store *Store, auth *Authenticator) http.Handler {
	return Mount(routes.CreateFeedRoutes(mux.NewRouter()), store, auth)
}

// Mount attaches the handlers to a router built by routes.CreateFeedRoutes.
func Mount(router *mux.Router, store *Store, auth *Authenticator) *mux.Router {
	handlers := map[string]http.HandlerFunc{
		routes.ListPosts:     ListPosts(store),
		routes.GetPost:       GetPost(store),
		routes.UpdatePost:    UpdatePost(store),
		routes.DeletePost:    DeletePost(store),
		routes.LikePost:      SetPostLike(store, true),
		routes.UnlikePost:    SetPostLike(store, false),
		routes.ListComments:  GetPostComments(store),
		routes.CreateComment: CreateComment(store),
		routes.ReplyComment:  ReplyComment(store),
		routes.EditComment:   EditComment(store),
		routes.DeleteComment: DeleteComment(store),
		routes.LikeComment:   SetCommentLike(store, true),
		routes.UnlikeComment: SetCommentLike(store, false),
	}
	for name, handler := range handlers {
		router.Get(name).Handler(handler)
	}

	router.Use(injectFailures(store), auth.requireViewer, logRequests)

	return router
}

func injectFailures(store *Store) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if route := mux.CurrentRoute(r); route != nil {
				if status, ok := store.takeFailure(route.GetName()); ok {
					writeError(w, status, http.StatusText(status))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logrus.WithFields(logrus.Fields{
			"component": "fakebackend",
			"method":    r.Method,
			"path":      r.URL.Path,
			"user_id":   viewerFrom(r).UserID,
		}).Debug("request")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithField("component", "fakebackend").WithError(err).Warn("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errPostNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, errCommentNotFound):
		writeError(w, http.StatusNotFound, "Comment not found")
	case errors.Is(err, errForbidden):
		writeError(w, http.StatusForbidden, "Not allowed to modify this resource")
	default:
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}
