//go:build integration

// Package testutil provides a real Dolt SQL server for integration tests of
// internal/storage/forkydb's mysql:// backend, adapted from the teacher's
// internal/testutil/testdoltserver.go container-per-test pattern
// (StartIsolatedDoltContainer) but trimmed to the single entry point Forky
// needs — no legacy non-container server, no shared-singleton TestMain
// variant, since forkydb has only the one standalone-server path to cover.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/dolt"
)

// DoltDockerImage pins the Dolt SQL server image used for integration
// tests, the same tag the teacher pins (1.44+ has a broken root@localhost
// vs root@% auth handshake against go-sql-driver's TCP connections).
const DoltDockerImage = "dolthub/dolt-sql-server:1.43.0"

var (
	dockerOnce  sync.Once
	dockerAvail bool
)

func isDockerAvailable() bool {
	dockerOnce.Do(func() {
		dockerAvail = exec.Command("docker", "info").Run() == nil
	})
	return dockerAvail
}

// StartDoltServer starts a per-test Dolt SQL server container and returns a
// mysql:// DSN the forkydb mysql driver can open. The container is
// terminated when the test finishes. Skips the test if Docker isn't
// available.
func StartDoltServer(t *testing.T, database string) string {
	t.Helper()
	if !isDockerAvailable() {
		t.Skip("Docker not available, skipping integration test")
	}

	ctx := context.Background()
	ctr, err := dolt.Run(ctx, DoltDockerImage, dolt.WithDatabase(database))
	if err != nil {
		t.Fatalf("starting Dolt container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminating Dolt container: %v", err)
		}
	})

	port, err := ctr.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	return fmt.Sprintf("mysql://root@tcp(127.0.0.1:%s)/%s", port.Port(), database)
}
