package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryReturnsSameRepositories(t *testing.T) {
	db, _ := newMockDB(t)
	f := NewFactory(db)

	repos := f.GetRepositories()
	require.NotNil(t, repos.Member)
	assert.Same(t, repos, f.GetRepositories())
}
