package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()

	newHandler := func(repo *MockRepositoryManager, sender identity.NotificationSender) *identity.RegisterUserHandler {
		ledger := identity.NewLedger(repo.Users(),
			identity.WithPinGenerator(func() string { return "123456" }),
			identity.WithLedgerLogger(testLogger{}),
		)
		return identity.NewRegisterUserHandler(repo, ledger, sender,
			identity.WithRegisterLogger(testLogger{}),
		)
	}

	msg := identity.RegisterUserMessage{
		FirstName: "Test",
		LastName:  "User",
		Username:  "tuser",
		Email:     "tuser@example.com",
		Password:  "password1234",
	}

	t.Run("creates user, grants default role, sends pin", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		sender := &capturingSender{}
		handler := newHandler(repo, sender)

		role := &identity.Role{ID: uuid.New(), Name: identity.RoleUser}

		repo.users.On("GetByUsernameTx", mock.Anything, mock.Anything, "tuser").
			Return(nil, repository.NewRecordNotFound()).Once()
		repo.users.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(&identity.User{ID: uuid.New(), Email: msg.Email, Username: msg.Username, FirstName: msg.FirstName}, nil).Once()
		repo.roles.On("GetOrCreateByNameTx", mock.Anything, mock.Anything, identity.RoleUser).
			Return(role, nil).Once()
		repo.users.On("AssignRoleTx", mock.Anything, mock.Anything, mock.Anything, role.ID).
			Return(nil).Once()
		repo.users.On("StorePinStateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(nil).Once()

		var result identity.RegisterUserResult
		handler.OnResponse = func(_ context.Context, res identity.RegisterUserResult) error {
			result = res
			return nil
		}

		err := handler.Execute(ctx, msg)
		require.NoError(t, err)

		require.NotNil(t, result.User)
		assert.True(t, result.Delivered)

		sent := sender.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "tuser@example.com", sent[0].To)
		assert.Contains(t, sent[0].TextBody, "123456")

		repo.users.AssertExpectations(t)
		repo.roles.AssertExpectations(t)
	})

	t.Run("taken username is rejected", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		sender := &capturingSender{}
		handler := newHandler(repo, sender)

		repo.users.On("GetByUsernameTx", mock.Anything, mock.Anything, "tuser").
			Return(&identity.User{ID: uuid.New(), Username: "tuser"}, nil).Once()

		err := handler.Execute(ctx, msg)
		assert.ErrorIs(t, err, identity.ErrUsernameTaken)
		assert.Empty(t, sender.Sent())
		repo.users.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid username characters are rejected", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		handler := newHandler(repo, &capturingSender{})

		bad := msg
		bad.Username = "not valid!"

		err := handler.Execute(ctx, bad)
		require.Error(t, err)
		repo.users.AssertNotCalled(t, "GetByUsernameTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("short email local part fallback is rejected", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		handler := newHandler(repo, &capturingSender{})

		short := msg
		short.Username = ""
		short.Email = "ab@example.com"

		err := handler.Execute(ctx, short)
		require.Error(t, err)
		repo.users.AssertNotCalled(t, "GetByUsernameTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("username falls back to the email local part", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		sender := &capturingSender{}
		handler := newHandler(repo, sender)

		anon := msg
		anon.Username = ""

		repo.users.On("GetByUsernameTx", mock.Anything, mock.Anything, "tuser").
			Return(nil, repository.NewRecordNotFound()).Once()
		repo.users.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(&identity.User{ID: uuid.New(), Email: anon.Email, Username: "tuser"}, nil).Once()
		repo.roles.On("GetOrCreateByNameTx", mock.Anything, mock.Anything, identity.RoleUser).
			Return(&identity.Role{ID: uuid.New(), Name: identity.RoleUser}, nil).Once()
		repo.users.On("AssignRoleTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil).Once()
		repo.users.On("StorePinStateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(nil).Once()

		err := handler.Execute(ctx, anon)
		require.NoError(t, err)
	})

	t.Run("delivery failure still registers the account", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		sender := &capturingSender{err: errors.New("smtp down")}
		handler := newHandler(repo, sender)

		repo.users.On("GetByUsernameTx", mock.Anything, mock.Anything, "tuser").
			Return(nil, repository.NewRecordNotFound()).Once()
		repo.users.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(&identity.User{ID: uuid.New(), Email: msg.Email, Username: msg.Username}, nil).Once()
		repo.roles.On("GetOrCreateByNameTx", mock.Anything, mock.Anything, identity.RoleUser).
			Return(&identity.Role{ID: uuid.New(), Name: identity.RoleUser}, nil).Once()
		repo.users.On("AssignRoleTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil).Once()
		repo.users.On("StorePinStateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(nil).Once()

		var result identity.RegisterUserResult
		handler.OnResponse = func(_ context.Context, res identity.RegisterUserResult) error {
			result = res
			return nil
		}

		err := handler.Execute(ctx, msg)
		require.NoError(t, err)
		assert.False(t, result.Delivered)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		handler := newHandler(repo, &capturingSender{})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := handler.Execute(cancelled, msg)
		assert.Error(t, err)
	})
}
