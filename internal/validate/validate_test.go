package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parlour/internal/apperr"
)

type sample struct {
	Name   string  `json:"name" validate:"required"`
	Email  string  `json:"email" validate:"required,email"`
	Status *string `json:"status" validate:"omitnil,oneof=in out"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "a", Email: "a@b.co"}))

	bad := "away"
	err := Struct(sample{Email: "nope", Status: &bad})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	require.Equal(t, "name is required, email must be a valid email address, status must be one of: in, out", apperr.Message(err))
}

func TestDate(t *testing.T) {
	d, err := Date("joinDate", "2023-01-15")
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = Date("joinDate", "2023-01-15T10:00:00+02:00")
	require.NoError(t, err)

	_, err = Date("joinDate", "yesterday")
	require.Equal(t, "joinDate must be a valid date", apperr.Message(err))
}
