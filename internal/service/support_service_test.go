package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/artify/artify_go_server/internal/model"
	"github.com/artify/artify_go_server/internal/model/dto"
	"github.com/artify/artify_go_server/internal/pkg/email"
	"github.com/artify/artify_go_server/internal/repository"
	"github.com/artify/artify_go_server/internal/testutil"
)

func setupSupportService(t *testing.T) (*SupportService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	cfg := testConfig()
	ticketRepo := repository.NewTicketRepository(db)
	userRepo := repository.NewUserRepository(db)
	mailer := email.NewService(&cfg.Email)

	service := NewSupportService(ticketRepo, userRepo, mailer, cfg)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return service, db, cleanup
}

func TestSupportService_CreateTicket(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	detail, err := service.CreateTicket(user.ID, &dto.CreateTicketRequest{
		Subject: "付款后额度没到账",
		Message: "订单号 order_123，请帮忙查一下",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusOpen, detail.Status)
	require.Len(t, detail.Messages, 1)
	assert.Equal(t, model.RoleUser, detail.Messages[0].Sender)
}

func TestSupportService_Get_Permission(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	ticket := testutil.TestTicket(t, db, owner.ID)

	_, err := service.Get(owner.ID, model.RoleUser, ticket.ID)
	assert.NoError(t, err)

	_, err = service.Get(other.ID, model.RoleUser, ticket.ID)
	assert.Equal(t, ErrTicketPermission, err)

	_, err = service.Get(other.ID, model.RoleAdmin, ticket.ID)
	assert.NoError(t, err)
}

func TestSupportService_Get_NotFound(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := service.Get(user.ID, model.RoleUser, 99999)
	assert.Equal(t, ErrTicketNotFound, err)
}

func TestSupportService_AdminReplyMovesToInProgress(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))
	ticket := testutil.TestTicket(t, db, owner.ID)

	detail, err := service.AddMessage(admin.ID, model.RoleAdmin, ticket.ID, "已在排查，请稍等")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusInProgress, detail.Status)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, model.RoleAdmin, detail.Messages[1].Sender)
}

func TestSupportService_UserReplyKeepsOpen(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	ticket := testutil.TestTicket(t, db, owner.ID)

	detail, err := service.AddMessage(owner.ID, model.RoleUser, ticket.ID, "补充一下信息")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusOpen, detail.Status)
}

func TestSupportService_MessageOnClosedReopens(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	ticket := testutil.TestTicket(t, db, owner.ID, testutil.WithTicketStatus(model.TicketStatusClosed))

	detail, err := service.AddMessage(owner.ID, model.RoleUser, ticket.ID, "问题又出现了")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusReopened, detail.Status)
}

func TestSupportService_AdminMessageOnClosedReopens(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))
	ticket := testutil.TestTicket(t, db, owner.ID, testutil.WithTicketStatus(model.TicketStatusClosed))

	detail, err := service.AddMessage(admin.ID, model.RoleAdmin, ticket.ID, "追加说明")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusReopened, detail.Status)
}

func TestSupportService_Close(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	ticket := testutil.TestTicket(t, db, owner.ID, testutil.WithTicketStatus(model.TicketStatusInProgress))

	detail, err := service.Close(owner.ID, model.RoleUser, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusClosed, detail.Status)
}

func TestSupportService_ListForUser_OnlyOwn(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	user1 := testutil.TestUser(t, db)
	user2 := testutil.TestUser(t, db)
	testutil.TestTicket(t, db, user1.ID)
	testutil.TestTicket(t, db, user1.ID)
	testutil.TestTicket(t, db, user2.ID)

	items, err := service.ListForUser(user1.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSupportService_ListAll_FilterByStatus(t *testing.T) {
	service, db, cleanup := setupSupportService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestTicket(t, db, user.ID)
	testutil.TestTicket(t, db, user.ID, testutil.WithTicketStatus(model.TicketStatusClosed))

	items, err := service.ListAll("")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = service.ListAll(model.TicketStatusClosed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.TicketStatusClosed, items[0].Status)
}
