package azblob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionbench/internal/domain"
)

func TestNewBucketConfig(t *testing.T) {
	t.Setenv("AZ_ACCOUNT", "")
	t.Setenv("AZ_KEY", "")
	_, err := NewBucket(Config{Container: "beans", AccountEnv: "AZ_ACCOUNT", KeyEnv: "AZ_KEY"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	t.Setenv("AZ_ACCOUNT", "benchacct")
	t.Setenv("AZ_KEY", "Zm9vYmFy")
	_, err = NewBucket(Config{AccountEnv: "AZ_ACCOUNT", KeyEnv: "AZ_KEY"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	b, err := NewBucket(Config{Container: "beans", AccountEnv: "AZ_ACCOUNT", KeyEnv: "AZ_KEY"})
	require.NoError(t, err)
	assert.NotNil(t, b.container)
}
