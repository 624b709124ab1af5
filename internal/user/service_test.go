package user

import (
	"context"
	"distributor-portal/internal/db/dbtest"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/mail"
	"distributor-portal/internal/utils"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(msg).Error(0)
}

func newTestService(t *testing.T) (*gorm.DB, Service, *MockMailer, domain.Distributor) {
	t.Helper()
	conn := dbtest.New(t)
	dist := domain.Distributor{Name: "Acme", Status: domain.StatusActive, AccountType: domain.AccountExclusive}
	require.NoError(t, conn.Create(&dist).Error)
	mailer := new(MockMailer)
	return conn, NewService(NewRepository(conn), mailer, "https://portal.test"), mailer, dist
}

func TestInvite_WithoutEmailDoesNotMail(t *testing.T) {
	_, svc, mailer, dist := newTestService(t)
	actor := domain.Principal{UserID: 99, Tenant: domain.TenantID(dist.ID), Role: domain.RoleAdmin}

	res, err := svc.Invite(context.Background(), actor, InviteInput{
		DistributorID: dist.ID, Name: "Ann", Email: " Ann@X.test ",
	})

	require.NoError(t, err)
	assert.False(t, res.EmailSent)
	assert.Equal(t, "ann@x.test", res.User.Email)
	assert.Equal(t, domain.StatusPending, res.User.Status)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	mailer.AssertNotCalled(t, "Send", mock.Anything)
}

func TestInvite_SendsEmailWithTemporaryPassword(t *testing.T) {
	_, svc, mailer, dist := newTestService(t)
	actor := domain.Principal{PlatformAdmin: true}

	mailer.On("Send", mock.MatchedBy(func(msg mail.Message) bool {
		return msg.To == "bob@x.test" && len(msg.HTML) > 0
	})).Return(nil)

	res, err := svc.Invite(context.Background(), actor, InviteInput{
		DistributorID: dist.ID, Name: "Bob", Email: "bob@x.test", SendEmail: true,
	})

	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	mailer.AssertExpectations(t)
}

func TestInvite_RejectsDuplicatesAndForeignCompanies(t *testing.T) {
	_, svc, _, dist := newTestService(t)
	actor := domain.Principal{UserID: 99, Tenant: domain.TenantID(dist.ID), Role: domain.RoleAdmin}
	ctx := context.Background()

	_, err := svc.Invite(ctx, actor, InviteInput{DistributorID: dist.ID, Name: "Ann", Email: "ann@x.test"})
	require.NoError(t, err)

	_, err = svc.Invite(ctx, actor, InviteInput{DistributorID: dist.ID, Name: "Ann", Email: "ANN@x.test"})
	assert.True(t, errors.Is(err, http.StatusConflict))

	_, err = svc.Invite(ctx, actor, InviteInput{DistributorID: dist.ID + 1, Name: "Eve", Email: "eve@x.test"})
	assert.True(t, errors.Is(err, http.StatusForbidden))

	member := domain.Principal{UserID: 98, Tenant: domain.TenantID(dist.ID), Role: domain.RoleUser}
	_, err = svc.Invite(ctx, member, InviteInput{DistributorID: dist.ID, Name: "Eve", Email: "eve@x.test"})
	assert.True(t, errors.Is(err, http.StatusForbidden))
}

func TestLogin_ActivatesPendingUser(t *testing.T) {
	_, svc, _, dist := newTestService(t)
	ctx := context.Background()
	_, err := svc.Invite(ctx, domain.Principal{PlatformAdmin: true}, InviteInput{
		DistributorID: dist.ID, Name: "Ann", Email: "ann@x.test", Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ann@x.test", "wrong-password")
	assert.True(t, errors.Is(err, http.StatusUnauthorized))

	user, err := svc.Login(ctx, "ANN@x.test", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, user.Status)
	assert.NotNil(t, user.LastLoginAt)
}

func TestUpdateMember_DeactivateRevokesTokens(t *testing.T) {
	_, svc, _, dist := newTestService(t)
	ctx := context.Background()
	actor := domain.Principal{UserID: 99, Tenant: domain.TenantID(dist.ID), Role: domain.RoleAdmin}
	res, err := svc.Invite(ctx, actor, InviteInput{DistributorID: dist.ID, Name: "Ann", Email: "ann@x.test"})
	require.NoError(t, err)

	inactive := domain.StatusInactive
	user, err := svc.UpdateMember(ctx, actor, res.User.ID, MemberUpdate{Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, user.Status)
	assert.Equal(t, uint64(1), user.TokenVersion)

	self := domain.Principal{UserID: res.User.ID, Tenant: domain.TenantID(dist.ID), Role: domain.RoleAdmin}
	_, err = svc.UpdateMember(ctx, self, res.User.ID, MemberUpdate{Status: &inactive})
	assert.True(t, errors.Is(err, http.StatusForbidden))
}

func TestUpdateProfile_PasswordChangeRequiresOldPassword(t *testing.T) {
	_, svc, _, dist := newTestService(t)
	ctx := context.Background()
	res, err := svc.Invite(ctx, domain.Principal{PlatformAdmin: true}, InviteInput{
		DistributorID: dist.ID, Name: "Ann", Email: "ann@x.test", Password: "password123",
	})
	require.NoError(t, err)

	newPassword := "new-password"
	_, err = svc.UpdateProfile(ctx, res.User.ID, FormProfile{Password: &newPassword, OldPassword: "bad"})
	assert.True(t, errors.Is(err, http.StatusUnprocessableEntity))

	_, err = svc.UpdateProfile(ctx, res.User.ID, FormProfile{Password: &newPassword, OldPassword: "password123"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "ann@x.test", newPassword)
	assert.NoError(t, err)
}

func TestListAndDeleteMembers(t *testing.T) {
	_, svc, _, dist := newTestService(t)
	ctx := context.Background()
	actor := domain.Principal{UserID: 99, Tenant: domain.TenantID(dist.ID), Role: domain.RoleAdmin}
	for _, email := range []string{"a@x.test", "b@x.test"} {
		_, err := svc.Invite(ctx, actor, InviteInput{DistributorID: dist.ID, Name: email, Email: email})
		require.NoError(t, err)
	}

	page, err := svc.ListCompanyUsers(ctx, actor, dist.ID, utils.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, int64(2), page.Meta.Total)

	require.NoError(t, svc.DeleteMember(ctx, actor, page.Data[0].ID))
	_, err = svc.GetUserByID(ctx, page.Data[0].ID)
	assert.True(t, errors.Is(err, http.StatusNotFound))

	outsider := domain.Principal{UserID: 1, Tenant: domain.TenantID(dist.ID + 1), Role: domain.RoleAdmin}
	_, err = svc.ListCompanyUsers(ctx, outsider, dist.ID, utils.Pagination{Page: 1, PageSize: 20})
	assert.True(t, errors.Is(err, http.StatusForbidden))
}
