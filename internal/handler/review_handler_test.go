package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) submitReview(t *testing.T, opt reqOption, bookID string, rating int, comment string) reviewResponse {
	t.Helper()

	w := e.do(t, http.MethodPost, "/reviews", submitReviewRequest{
		BookID:  bookID,
		Rating:  rating,
		Comment: comment,
	}, opt)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	return decodeBody[reviewResponse](t, w)
}

func TestSubmitReview(t *testing.T) {
	e := newEnv(t)

	rv := e.submitReview(t, asMember(t, basicID, "basic"), "b1", 5, "a classic")

	assert.NotEmpty(t, rv.ID)
	assert.Equal(t, "b1", rv.BookID)
	assert.Equal(t, basicID, rv.MemberID)
	assert.Equal(t, "pending", rv.Status)
}

func TestSubmitReviewValidation(t *testing.T) {
	e := newEnv(t)
	auth := asMember(t, basicID, "basic")

	w := e.do(t, http.MethodPost, "/reviews", submitReviewRequest{Rating: 4}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, rating := range []int{0, 6, -1} {
		w := e.do(t, http.MethodPost, "/reviews", submitReviewRequest{BookID: "b1", Rating: rating}, auth)
		assert.Equalf(t, http.StatusUnprocessableEntity, w.Code, "rating %d", rating)
	}
}

func TestBookReviewsShowOnlyApproved(t *testing.T) {
	e := newEnv(t)

	approved := e.submitReview(t, asMember(t, basicID, "basic"), "b1", 5, "loved it")
	e.submitReview(t, asMember(t, premiumID, "premium"), "b1", 1, "spam spam spam")

	w := e.do(t, http.MethodPatch, "/admin/reviews/"+approved.ID,
		moderateReviewRequest{Approve: true}, asStaff())
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodGet, "/books/b1/reviews", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[[]reviewResponse](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, approved.ID, got[0].ID)
	assert.Equal(t, "approved", got[0].Status)
}

func TestModerateReview(t *testing.T) {
	e := newEnv(t)

	rv := e.submitReview(t, asMember(t, basicID, "basic"), "b2", 3, "fine")

	w := e.do(t, http.MethodGet, "/admin/reviews", nil, asStaff())
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody[[]reviewResponse](t, w), 1)

	w = e.do(t, http.MethodPatch, "/admin/reviews/"+rv.ID,
		moderateReviewRequest{Approve: false}, asStaff())
	require.Equal(t, http.StatusNoContent, w.Code)

	// Rejected reviews leave the moderation queue and never surface publicly.
	w = e.do(t, http.MethodGet, "/admin/reviews", nil, asStaff())
	assert.Empty(t, decodeBody[[]reviewResponse](t, w))
	w = e.do(t, http.MethodGet, "/books/b2/reviews", nil)
	assert.Empty(t, decodeBody[[]reviewResponse](t, w))

	w = e.do(t, http.MethodPatch, "/admin/reviews/missing",
		moderateReviewRequest{Approve: true}, asStaff())
	assert.Equal(t, http.StatusNotFound, w.Code)
}
