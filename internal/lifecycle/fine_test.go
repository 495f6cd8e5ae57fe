package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/library-lifecycle/internal/model"
)

func TestLateDays(t *testing.T) {
	due := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		returned time.Time
		want     int64
	}{
		{"early", due.Add(-48 * time.Hour), 0},
		{"on_time", due, 0},
		{"one_second_late", due.Add(time.Second), 1},
		{"exactly_one_day", due.Add(24 * time.Hour), 1},
		{"two_days_one_hour", due.Add(49 * time.Hour), 3},
		{"exactly_two_days", due.Add(48 * time.Hour), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lateDays(due, tt.returned))
		})
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2024, 3, 2, 1, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), dateOnly(in))
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from    model.BookStatus
		cause   Cause
		want    model.BookStatus
		wantErr bool
	}{
		{model.BookAvailable, CauseBorrow, model.BookBorrowed, false},
		{model.BookBorrowed, CauseBorrow, model.BookBorrowed, true},
		{model.BookBorrowed, CauseReturn, model.BookAvailable, false},
		{model.BookAvailable, CauseReturn, model.BookAvailable, true},
		{model.BookAvailable, CauseReservationConfirmed, model.BookBorrowed, false},
		{model.BookBorrowed, CauseReservationConfirmed, model.BookBorrowed, false},
		{model.BookBorrowed, CauseReservationCancelled, model.BookAvailable, false},
		{model.BookAvailable, CauseReservationCancelled, model.BookAvailable, false},
		{model.BookAvailable, Cause("lost"), model.BookAvailable, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.cause), func(t *testing.T) {
			got, err := transition(tt.from, tt.cause)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
