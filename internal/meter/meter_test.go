package meter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideAdmitsWithinLimit(t *testing.T) {
	assert.NoError(t, Decide(0, 5, 10))
	assert.NoError(t, Decide(5, 4, 10))
}

func TestDecideAdmitsExactlyAtLimit(t *testing.T) {
	// 8 used + 2 requested on a limit of 10 must be admitted; the
	// boundary is inclusive.
	assert.NoError(t, Decide(8, 2, 10))
}

func TestDecideRejectsOverLimit(t *testing.T) {
	err := Decide(8, 3, 10)
	require.Error(t, err)

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, int64(8), quotaErr.Current)
	assert.Equal(t, int64(3), quotaErr.Prospective)
	assert.Equal(t, int64(10), quotaErr.Limit)
}

func TestDecideZeroProspective(t *testing.T) {
	// A zero-page document never changes the admission outcome.
	assert.NoError(t, Decide(10, 0, 10))
	require.Error(t, Decide(11, 0, 10))
}

func TestDecideUnlimited(t *testing.T) {
	assert.NoError(t, Decide(0, 1, Unlimited))
	assert.NoError(t, Decide(1<<40, 1<<40, Unlimited))
	// No overflow at the extreme boundary.
	assert.NoError(t, Decide(Unlimited-1, 1, Unlimited))
	require.Error(t, Decide(Unlimited, 1, Unlimited))
}

func TestDecideZeroLimit(t *testing.T) {
	require.Error(t, Decide(0, 1, 0))
	assert.NoError(t, Decide(0, 0, 0))
}

func TestQuotaExceededErrorMessage(t *testing.T) {
	err := Decide(8, 3, 10)
	require.Error(t, err)
	assert.Equal(t,
		"adding a task with 3 pages would exceed the usage limit of 10 pages (current usage 8)",
		err.Error())
	var target *QuotaExceededError
	assert.True(t, errors.As(err, &target))
}
