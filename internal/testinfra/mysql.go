//go:build integration

// Package testinfra starts throwaway containers for integration tests.
// Everything here needs Docker and the `integration` build tag.
package testinfra

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/sportshub-ticketing/internal/database"
)

const (
	DefaultMySQLImage = "mysql:8.0"
	mysqlPort         = "3306"
	mysqlPassword     = "secret"
	mysqlDatabase     = "sportshub_test"
)

// SkipIfNoDocker skips the test when no Docker daemon answers.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// MySQL is a running MySQL container with the schema applied.
type MySQL struct {
	testcontainers.Container
	DB *sql.DB
}

// NewMySQL starts MySQL, waits until it accepts connections and migrates
// the schema.  The container and pool are released when t finishes.
func NewMySQL(t *testing.T) *MySQL {
	t.Helper()
	SkipIfNoDocker(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        DefaultMySQLImage,
			ExposedPorts: []string{mysqlPort + "/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": mysqlPassword,
				"MYSQL_DATABASE":      mysqlDatabase,
			},
			WaitingFor: wait.ForListeningPort(mysqlPort + "/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, mysqlPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	opts := database.Options{User: "root", Pass: mysqlPassword, Host: host, Port: port.Port(), Name: mysqlDatabase}

	// The port opens before the server finishes its first-boot init.
	var db *sql.DB
	deadline := time.Now().Add(90 * time.Second)
	for {
		db, err = database.Open(ctx, opts)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("connect to mysql: %v", err)
		}
		time.Sleep(time.Second)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &MySQL{Container: container, DB: db}
}

// DSN is handy for debugging a failed run with a local client.
func (m *MySQL) DSN(ctx context.Context) (string, error) {
	host, err := m.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := m.MappedPort(ctx, mysqlPort)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("root:%s@tcp(%s:%s)/%s", mysqlPassword, host, port.Port(), mysqlDatabase), nil
}
