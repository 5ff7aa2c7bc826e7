package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrate_SkipsKeyValueBackends(t *testing.T) {
	for _, backend := range []string{"memory", "file"} {
		assert.NoError(t, Migrate(context.Background(), backend, "", nil), backend)
	}
}

func TestMigrate_UnknownBackend(t *testing.T) {
	err := Migrate(context.Background(), "sqlite", "", nil)
	assert.ErrorContains(t, err, "unsupported store backend")
}
