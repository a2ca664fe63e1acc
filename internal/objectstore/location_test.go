package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("s3://bucket/user/task/tok/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "bucket", loc.Bucket)
	assert.Equal(t, "user/task/tok/report.pdf", loc.Key)
}

func TestParseLocationRejectsMalformed(t *testing.T) {
	for _, input := range []string{
		"",
		"bucket/key",
		"http://bucket/key",
		"s3://",
		"s3://bucket",
		"s3://bucket/",
	} {
		_, err := ParseLocation(input)
		assert.Error(t, err, input)
	}
}

func TestBuildInputLocation(t *testing.T) {
	loc := BuildInputLocation("extraction", "user-1", "task-1", "tok-1", "report.pdf")
	assert.Equal(t, "s3://extraction/user-1/task-1/tok-1/report.pdf", loc)

	parsed, err := ParseLocation(loc)
	require.NoError(t, err)
	assert.Equal(t, "extraction", parsed.Bucket)
	assert.Equal(t, "user-1/task-1/tok-1/report.pdf", parsed.Key)
}
