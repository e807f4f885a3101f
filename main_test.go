package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"orderd/internal/auth"
	"orderd/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli_secret")

	out, err := execute(t, "token", "ops", "--role", "admin")
	require.NoError(t, err)

	principal, err := services.NewAuthService("cli_secret", time.Hour).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", principal.UserID)
	assert.Equal(t, auth.RoleAdmin, principal.Role)
}

func TestTokenCommand_Rejections(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli_secret")

	_, err := execute(t, "token", "ops", "--role", "root")
	assert.Error(t, err)

	_, err = execute(t, "token")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "")
	_, err = execute(t, "token", "ops")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli_secret")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "orders.db"))

	_, err := execute(t, "migrate")
	require.NoError(t, err)

	t.Setenv("DATABASE_DRIVER", "memory")
	_, err = execute(t, "migrate")
	assert.Error(t, err)
}
