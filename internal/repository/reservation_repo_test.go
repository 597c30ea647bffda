package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

func TestClassify(t *testing.T) {
	r := &ReservationRepository{}

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unique violation", &pq.Error{Code: "23505", Message: "duplicate key"}, models.IsConflictError},
		{"serialization failure", &pq.Error{Code: "40001"}, models.IsConflictError},
		{"deadlock", fmt.Errorf("exec: %w", &pq.Error{Code: "40P01"}), models.IsConflictError},
		{"check violation", &pq.Error{Code: "23514", Constraint: "reservation_quantity_check"}, models.IsValidationError},
		{"other driver error", &pq.Error{Code: "08006"}, models.IsSystemError},
		{"plain error", errors.New("connection refused"), models.IsSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.classify(tt.err, "create reservation")
			assert.True(t, tt.check(got), "unexpected classification: %v", got)
		})
	}
}

func TestClassify_KeepsCause(t *testing.T) {
	cause := &pq.Error{Code: "40001"}
	err := (&ReservationRepository{}).classify(cause, "commit reservation")

	var pqErr *pq.Error
	assert.ErrorAs(t, err, &pqErr)
	assert.Equal(t, models.ErrorCodeWriteConflict, models.GetErrorCode(err))
}
