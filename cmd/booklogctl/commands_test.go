package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAccounts is a mock implementation of adminAccounts
type mockAccounts struct {
	err        error
	gotRequest *models.RegisterRequest
	gotName    string
	gotAdmin   *bool
}

func (m *mockAccounts) CreateAdmin(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	m.gotRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: 1, Username: req.Username, IsAdmin: true}, nil
}

func (m *mockAccounts) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	m.gotName = username
	m.gotAdmin = &isAdmin
	return m.err
}

func run(t *testing.T, e *env, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(e)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func testEnv(accounts *mockAccounts) *env {
	passwords := []string{"s3cret", "s3cret"}
	return &env{
		migrate: func(ctx context.Context) (uint, error) { return 1, nil },
		accounts: func(ctx context.Context) (adminAccounts, error) {
			return accounts, nil
		},
		readPassword: func(prompt string) (string, error) {
			p := passwords[0]
			passwords = passwords[1:]
			return p, nil
		},
	}
}

func TestCreateAdmin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		accounts := &mockAccounts{}
		out, _, err := run(t, testEnv(accounts), "create-admin", "--username", "root", "--email", "root@example.com")

		require.NoError(t, err)
		assert.Contains(t, out, "Created admin root (id 1)")
		assert.Equal(t, &models.RegisterRequest{Username: "root", Email: "root@example.com", Password: "s3cret", Password2: "s3cret"}, accounts.gotRequest)
	})

	t.Run("field errors are printed", func(t *testing.T) {
		accounts := &mockAccounts{err: validation.Errors{"email": "Please use a different email address."}}
		_, stderr, err := run(t, testEnv(accounts), "create-admin", "--username", "root", "--email", "taken@example.com")

		require.Error(t, err)
		assert.Contains(t, stderr, "email: Please use a different email address.")
	})

	t.Run("flags are required", func(t *testing.T) {
		accounts := &mockAccounts{}
		_, _, err := run(t, testEnv(accounts), "create-admin", "--username", "root")

		require.Error(t, err)
		assert.Nil(t, accounts.gotRequest)
	})

	t.Run("password prompt failure", func(t *testing.T) {
		accounts := &mockAccounts{}
		e := testEnv(accounts)
		e.readPassword = func(string) (string, error) { return "", errors.New("not a terminal") }

		_, _, err := run(t, e, "create-admin", "--username", "root", "--email", "root@example.com")

		require.Error(t, err)
		assert.Nil(t, accounts.gotRequest)
	})
}

func TestSetAdmin(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		repoErr       error
		expectedAdmin bool
		expectedOut   string
		expectedErr   string
	}{
		{name: "promote", args: []string{"promote", "bob"}, expectedAdmin: true, expectedOut: "bob is now an admin"},
		{name: "demote", args: []string{"demote", "bob"}, expectedAdmin: false, expectedOut: "bob is no longer an admin"},
		{name: "unknown user", args: []string{"promote", "zed"}, repoErr: fmt.Errorf("user %w", models.ErrNotFound), expectedAdmin: true, expectedErr: "user zed not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &mockAccounts{err: tt.repoErr}
			out, _, err := run(t, testEnv(accounts), tt.args...)

			require.NotNil(t, accounts.gotAdmin)
			assert.Equal(t, tt.expectedAdmin, *accounts.gotAdmin)
			if tt.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.expectedOut)
		})
	}

	t.Run("username required", func(t *testing.T) {
		_, _, err := run(t, testEnv(&mockAccounts{}), "promote")
		assert.Error(t, err)
	})
}

func TestMigrate(t *testing.T) {
	out, _, err := run(t, testEnv(&mockAccounts{}), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is at version 1")
}
