package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	stored := infralogger.NewNop().With(infralogger.String("request_id", "abc"))
	fallback := infralogger.NewNop()

	ctx := infralogger.WithContext(context.Background(), stored)
	assert.Equal(t, stored, infralogger.FromContext(ctx, fallback))
	assert.Equal(t, fallback, infralogger.FromContext(context.Background(), fallback))
	assert.NotNil(t, infralogger.FromContext(context.Background(), nil))
}

func TestNew_AppliesDefaults(t *testing.T) {
	t.Parallel()

	log, err := infralogger.New(infralogger.Config{Level: "debug", OutputPaths: []string{"stderr"}})
	assert.NoError(t, err)
	assert.NotNil(t, log)
}
