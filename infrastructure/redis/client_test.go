package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	infraredis "github.com/jonesrussell/north-cloud/categorizer/infrastructure/redis"
)

func TestNewClient_EmptyAddress(t *testing.T) {
	t.Parallel()

	client, err := infraredis.NewClient(context.Background(), infraredis.Config{})
	assert.Nil(t, client)
	assert.ErrorIs(t, err, infraredis.ErrEmptyAddress)
}
