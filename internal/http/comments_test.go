package http

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commentJSON struct {
	ID       uint   `json:"id"`
	RecipeID uint   `json:"recipe_id"`
	UserID   uint   `json:"user_id"`
	Text     string `json:"text"`
	Username string `json:"username"`
}

func TestComments(t *testing.T) {
	env := setupTestEnv(t)
	chef, chefCookie := env.register(t, "chef")
	guest, guestCookie := env.register(t, "guest")
	r := env.createRecipe(t, chef, "Bread")

	w := env.do(http.MethodPost, recipePath(r.ID, "/comments"), `{"text":"Lovely crust"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, recipePath(r.ID, "/comments"), `{"text":"  "}`, guestCookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "comment text is required", decode[ErrorResponse](t, w).Error)

	w = env.do(http.MethodPost, recipePath(r.ID, "/comments"), `{}`, guestCookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/recipes/999/comments", `{"text":"hello"}`, guestCookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, recipePath(r.ID, "/comments"), `{"text":"Lovely crust"}`, guestCookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[commentJSON](t, w)
	assert.Equal(t, "Lovely crust", created.Text)
	assert.Equal(t, "guest", created.Username)
	assert.Equal(t, guest.ID, created.UserID)

	w = env.do(http.MethodGet, recipePath(r.ID, "/comments"), "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]commentJSON](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "guest", list[0].Username)

	w = env.do(http.MethodGet, recipePath(r.ID, ""), "")
	assert.Contains(t, w.Body.String(), `"comments_count":1`)

	commentPath := "/api/comments/" + strconv.Itoa(int(created.ID))
	w = env.do(http.MethodDelete, commentPath, "", chefCookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodDelete, commentPath, "", guestCookie)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, commentPath, "", guestCookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Comment not found", decode[ErrorResponse](t, w).Error)
}

func TestRatings(t *testing.T) {
	env := setupTestEnv(t)
	chef, chefCookie := env.register(t, "chef")
	_, guestCookie := env.register(t, "guest")
	r := env.createRecipe(t, chef, "Bread")

	for _, body := range []string{`{"rating":0}`, `{"rating":6}`, `{}`, `{"rating":"five"}`} {
		w := env.do(http.MethodPost, recipePath(r.ID, "/rating"), body, guestCookie)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "rating must be between 1 and 5", decode[ErrorResponse](t, w).Error)
	}

	w := env.do(http.MethodPost, recipePath(r.ID, "/rating"), `{"rating":5}`, guestCookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"Rating added successfully","rating":5,"rating_count":1}`, w.Body.String())

	w = env.do(http.MethodPost, recipePath(r.ID, "/rating"), `{"rating":4}`, chefCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Rating added successfully","rating":4.5,"rating_count":2}`, w.Body.String())

	// Re-rating replaces the earlier value.
	w = env.do(http.MethodPost, recipePath(r.ID, "/rating"), `{"rating":2}`, guestCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Rating added successfully","rating":3,"rating_count":2}`, w.Body.String())

	w = env.do(http.MethodGet, recipePath(r.ID, "/rating"), "", guestCookie)
	assert.JSONEq(t, `{"rating":2}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/recipes/999/rating", `{"rating":3}`, guestCookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, recipePath(r.ID, "/rating"), `{"rating":3}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
