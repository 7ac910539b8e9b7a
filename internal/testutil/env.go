package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackzampolin/lexreview/internal/pgstore"
)

// PostgresDSNEnv points tests at an existing database instead of a container.
const PostgresDSNEnv = "LEXREVIEW_TEST_POSTGRES_DSN"

// Postgres returns a migrated database for the test. It uses PostgresDSNEnv
// when set and otherwise starts a throwaway pgvector container. The test is
// skipped in short mode or when neither is available.
func Postgres(t *testing.T) *pgstore.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		_ = DockerClient(t)

		port, err := FindFreePort()
		if err != nil {
			t.Fatalf("failed to find free port: %v", err)
		}
		m, err := pgstore.NewDockerManager(pgstore.DockerConfig{
			ContainerName: UniqueContainerName(t, "pg"),
			HostPort:      port,
			Labels:        ContainerLabels(t),
		})
		if err != nil {
			t.Skipf("docker manager unavailable: %v", err)
		}
		t.Cleanup(func() { m.Close() })
		if err := m.Start(ctx); err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}
		dsn = m.DSN()
	}

	db, err := pgstore.Open(ctx, pgstore.Config{DSN: dsn, Logger: Logger()})
	if err != nil {
		t.Fatalf("pgstore.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a stderr text logger at warn level.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// FindFreePort returns an unused TCP port on the loopback interface.
func FindFreePort() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	return fmt.Sprintf("%d", l.Addr().(*net.TCPAddr).Port), nil
}

// WaitForServer polls url+"/health" until it answers 200.
func WaitForServer(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

// WaitForShutdown waits for done to yield or timeout to pass.
func WaitForShutdown(done <-chan error, timeout time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for shutdown")
	}
}
