package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartPostgresWithoutDockerReturnsError(t *testing.T) {
	t.Setenv("DOCKER_HOST", "unix:///nonexistent/kenko/docker.sock")
	t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	var (
		tc  *TestContainer
		err error
	)
	require.NotPanics(t, func() {
		tc, err = StartPostgres(context.Background())
	})
	if err == nil {
		// A docker host configured outside the environment won the lookup.
		tc.Terminate()
		t.Skip("docker host resolved from testcontainers properties")
	}
	require.Error(t, err)
	require.Nil(t, tc)
}
