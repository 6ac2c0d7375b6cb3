package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/docport/docport/internal/pkg/errors"
	"github.com/docport/docport/internal/repo"
	"github.com/docport/docport/internal/service"
	"github.com/docport/docport/test/testutil"
)

func newAuthFixture(t *testing.T) (*service.AuthService, *captureSender) {
	conn, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)

	sender := &captureSender{}
	auth := service.NewAuthService(
		repo.NewUserRepo(conn),
		repo.NewEmailVerificationRepo(conn),
		sender,
		[]byte("test-secret"),
		time.Hour,
	)
	return auth, sender
}

func TestLoginCodeFlowCreatesUser(t *testing.T) {
	auth, sender := newAuthFixture(t)
	ctx := context.Background()
	email := fmt.Sprintf("login-%d@example.com", time.Now().UnixNano())

	require.NoError(t, auth.SendLoginCode(ctx, email))
	code := sender.lastCode()
	require.Len(t, code, 6)

	user, token, err := auth.VerifyLoginCode(ctx, email, code)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, email, user.Email)

	// the code is single use
	_, _, err = auth.VerifyLoginCode(ctx, email, code)
	require.Error(t, err)
}

func TestLoginCodeCooldown(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()
	email := fmt.Sprintf("cooldown-%d@example.com", time.Now().UnixNano())

	require.NoError(t, auth.SendLoginCode(ctx, email))
	err := auth.SendLoginCode(ctx, email)
	require.ErrorIs(t, err, appErr.ErrTooMany)
}

func TestLoginCodeWrongCode(t *testing.T) {
	auth, sender := newAuthFixture(t)
	ctx := context.Background()
	email := fmt.Sprintf("wrong-%d@example.com", time.Now().UnixNano())

	require.NoError(t, auth.SendLoginCode(ctx, email))
	code := sender.lastCode()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, _, err := auth.VerifyLoginCode(ctx, email, wrong)
	require.Error(t, err)
}
