package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableBuild(t *testing.T) {
	table := NewTable()

	tests := []struct {
		name       string
		route      string
		pairs      []string
		wantMethod string
		wantPath   string
	}{
		{name: "list posts", route: ListPosts, wantMethod: "GET", wantPath: "/posts"},
		{name: "unlike post", route: UnlikePost, pairs: []string{"postId", "p1"}, wantMethod: "DELETE", wantPath: "/posts/p1/like"},
		{name: "reply", route: ReplyComment, pairs: []string{"commentId", "c 1"}, wantMethod: "POST", wantPath: "/comments/c%201/replies"},
		{name: "edit comment", route: EditComment, pairs: []string{"commentId", "c1"}, wantMethod: "PUT", wantPath: "/comments/c1"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			method, path, err := table.Build(testCase.route, testCase.pairs...)
			require.NoError(t, err)
			assert.Equal(t, testCase.wantMethod, method)
			assert.Equal(t, testCase.wantPath, path)
		})
	}
}

func TestTableBuildErrors(t *testing.T) {
	table := NewTable()

	_, _, err := table.Build("nope")
	assert.Error(t, err)

	_, _, err = table.Build(GetPost)
	assert.Error(t, err, "missing postId variable")
}

func TestCreateFeedRoutesDispatchByMethod(t *testing.T) {
	router := CreateFeedRoutes(mux.NewRouter())
	for _, name := range []string{GetPost, DeletePost} {
		router.Get(name).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(name + ":" + mux.Vars(r)["postId"]))
		})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/posts/p9", nil))

	assert.Equal(t, DeletePost+":p9", rec.Body.String())
}
