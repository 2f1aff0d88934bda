package idempotency

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	id := uuid.New()

	got, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id.String(), got)
}

func TestParse_CanonicalizesCase(t *testing.T) {
	id := uuid.New()
	upper := strings.ToUpper(id.String())

	got, err := Parse(upper)
	require.NoError(t, err)
	require.Equal(t, id.String(), got)
}

func TestParse_Missing(t *testing.T) {
	_, err := Parse("")
	require.ErrorIs(t, err, ErrMissing)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("not-a-uuid")
	require.ErrorIs(t, err, ErrMalformed)
}

