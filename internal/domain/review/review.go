package review

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Moderation states for a review. New reviews start pending and only
// approved reviews are served publicly.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	// ErrInvalidRating is returned for ratings outside the 1..5 range.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrNotFound is returned when a requested review does not exist.
	ErrNotFound = errors.New("review not found")
)

// Review is a member's rating and comment on a book.
type Review struct {
	ID        string
	BookID    string
	MemberID  string
	Rating    int
	Comment   string
	Status    Status
	CreatedAt time.Time
}

// Repository defines persistence operations for reviews.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	// ListByBook returns reviews for a book filtered by moderation status.
	ListByBook(ctx context.Context, bookID string, status Status) ([]Review, error)
	// ListByStatus returns reviews across all books in a moderation state.
	ListByStatus(ctx context.Context, status Status) ([]Review, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// Service validates and moderates reviews.
type Service struct {
	reviews Repository
}

// NewService creates a review Service.
func NewService(reviews Repository) *Service {
	return &Service{reviews: reviews}
}

// Submit stores a new review in the pending moderation state.
func (s *Service) Submit(ctx context.Context, memberID, bookID string, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	r := &Review{
		ID:        uuid.New().String(),
		BookID:    bookID,
		MemberID:  memberID,
		Rating:    rating,
		Comment:   comment,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create review")
	}
	return r, nil
}

// ListApproved returns the publicly visible reviews for a book.
func (s *Service) ListApproved(ctx context.Context, bookID string) ([]Review, error) {
	return s.reviews.ListByBook(ctx, bookID, StatusApproved)
}

// ListPending returns reviews awaiting moderation.
func (s *Service) ListPending(ctx context.Context) ([]Review, error) {
	return s.reviews.ListByStatus(ctx, StatusPending)
}

// Moderate marks a review approved or rejected.
func (s *Service) Moderate(ctx context.Context, id string, approve bool) error {
	status := StatusRejected
	if approve {
		status = StatusApproved
	}
	return s.reviews.UpdateStatus(ctx, id, status)
}
