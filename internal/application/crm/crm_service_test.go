package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/crm"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/petshop/erp/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindByClient(ctx context.Context, clientID uuid.UUID) (*crm.Conversation, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Conversation, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]crm.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationRepository) ListMessages(ctx context.Context, convID uuid.UUID, filter shared.Filter) ([]crm.Message, int64, error) {
	args := m.Called(ctx, convID, filter)
	return args.Get(0).([]crm.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationRepository) MessageExists(ctx context.Context, externalID string) (bool, error) {
	args := m.Called(ctx, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepository) Save(ctx context.Context, conv *crm.Conversation) error {
	return m.Called(ctx, conv).Error(0)
}

func (m *MockConversationRepository) UpdateMessage(ctx context.Context, msg *crm.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Client), args.Error(1)
}

func (m *MockClientRepository) FindByPhone(ctx context.Context, phone valueobject.Phone) (*partner.Client, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Client), args.Error(1)
}

func (m *MockClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Client, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Client), args.Get(1).(int64), args.Error(2)
}

func (m *MockClientRepository) Save(ctx context.Context, client *partner.Client) error {
	return m.Called(ctx, client).Error(0)
}

func (m *MockClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClientRepository) ListPets(ctx context.Context, clientID uuid.UUID) ([]partner.Pet, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]partner.Pet), args.Error(1)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByWhatsAppPhoneID(ctx context.Context, phoneID string) (*identity.Tenant, error) {
	args := m.Called(ctx, phoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context) ([]identity.Tenant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Save(ctx context.Context, t *identity.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

type MockClientResolver struct {
	mock.Mock
}

func (m *MockClientResolver) FindOrCreateByPhone(ctx context.Context, tenantID uuid.UUID, phone, name string) (*partner.Client, bool, error) {
	args := m.Called(ctx, tenantID, phone, name)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*partner.Client), args.Bool(1), args.Error(2)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SendText(ctx context.Context, phoneNumberID, to, body string) (string, error) {
	args := m.Called(ctx, phoneNumberID, to, body)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	args := m.Called(ctx, mediaID)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

const shopNumberID = "109876543210"

type fixture struct {
	convs    *MockConversationRepository
	clients  *MockClientRepository
	tenants  *MockTenantRepository
	resolver *MockClientResolver
	gateway  *MockGateway
	media    *storage.MemoryMediaStore
	svc      *CRMService
	shop     *identity.Tenant
	client   *partner.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	shop, err := identity.NewTenant("Pet Feliz", "pet-feliz")
	require.NoError(t, err)
	shop.LinkWhatsApp(shopNumberID)
	client, err := partner.NewClient(shop.ID, "Maria Souza", "5511987654321", partner.ClientSourceWhatsApp)
	require.NoError(t, err)

	f := &fixture{
		convs:    new(MockConversationRepository),
		clients:  new(MockClientRepository),
		tenants:  new(MockTenantRepository),
		resolver: new(MockClientResolver),
		gateway:  new(MockGateway),
		media:    storage.NewMemoryMediaStore("whatsapp"),
		shop:     shop,
		client:   client,
	}
	f.svc = NewCRMService(f.convs, f.clients, f.tenants, f.resolver, f.gateway, f.media, zap.NewNop())
	return f
}

func systemScoped() any {
	return mock.MatchedBy(func(ctx context.Context) bool { return tenant.IsSystemScope(ctx) })
}

func scopedTo(id uuid.UUID) any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		got, ok, err := tenant.FromContext(ctx)
		return err == nil && ok && got == id
	})
}

func inbound(id, body string) InboundMessage {
	return InboundMessage{
		PhoneNumberID: shopNumberID,
		From:          "5511987654321",
		ProfileName:   "Maria",
		ExternalID:    id,
		Kind:          crm.KindText,
		Body:          body,
		SentAt:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCRMService_IngestCreatesConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tenants.On("FindByWhatsAppPhoneID", systemScoped(), shopNumberID).Return(f.shop, nil)
	f.convs.On("MessageExists", scopedTo(f.shop.ID), "wamid.1").Return(false, nil)
	f.resolver.On("FindOrCreateByPhone", mock.Anything, f.shop.ID, "5511987654321", "Maria").Return(f.client, true, nil)
	f.convs.On("FindByClient", mock.Anything, f.client.ID).Return(nil, shared.ErrNotFound)

	var saved *crm.Conversation
	f.convs.On("Save", scopedTo(f.shop.ID), mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*crm.Conversation)
	}).Return(nil)

	res, err := f.svc.Ingest(ctx, []InboundMessage{inbound("wamid.1", "Vocês têm ração de gato?")})

	require.NoError(t, err)
	assert.Equal(t, IngestResult{Stored: 1}, *res)
	require.NotNil(t, saved)
	assert.Equal(t, f.client.ID, saved.ClientID)
	assert.Equal(t, 1, saved.Unread)
	require.Len(t, saved.PendingMessages(), 1)
	assert.Equal(t, "wamid.1", saved.PendingMessages()[0].ExternalID)
	require.Len(t, saved.GetDomainEvents(), 1)
	assert.Equal(t, crm.EventTypeMessageReceived, saved.GetDomainEvents()[0].EventType())
}

func TestCRMService_IngestSkipsRedeliveries(t *testing.T) {
	f := newFixture(t)

	f.tenants.On("FindByWhatsAppPhoneID", mock.Anything, shopNumberID).Return(f.shop, nil).Once()
	f.convs.On("MessageExists", mock.Anything, "wamid.1").Return(true, nil)
	f.convs.On("MessageExists", mock.Anything, "wamid.2").Return(true, nil)

	res, err := f.svc.Ingest(context.Background(), []InboundMessage{inbound("wamid.1", "a"), inbound("wamid.2", "b")})

	require.NoError(t, err)
	assert.Equal(t, IngestResult{Duplicates: 2}, *res)
	f.resolver.AssertNotCalled(t, "FindOrCreateByPhone", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.convs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.tenants.AssertExpectations(t)
}

func TestCRMService_IngestUnroutableNumbers(t *testing.T) {
	t.Run("unlinked number", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByWhatsAppPhoneID", mock.Anything, shopNumberID).Return(nil, shared.ErrNotFound).Once()

		res, err := f.svc.Ingest(context.Background(), []InboundMessage{inbound("wamid.1", "a"), inbound("wamid.2", "b")})

		require.NoError(t, err)
		assert.Equal(t, 2, res.Skipped)
		f.tenants.AssertExpectations(t)
	})

	t.Run("suspended shop", func(t *testing.T) {
		f := newFixture(t)
		f.shop.Status = identity.TenantStatusSuspended
		f.tenants.On("FindByWhatsAppPhoneID", mock.Anything, shopNumberID).Return(f.shop, nil)

		res, err := f.svc.Ingest(context.Background(), []InboundMessage{inbound("wamid.1", "a")})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Skipped)
		f.convs.AssertNotCalled(t, "MessageExists", mock.Anything, mock.Anything)
	})

	t.Run("lookup failure aborts", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("db down")
		f.tenants.On("FindByWhatsAppPhoneID", mock.Anything, shopNumberID).Return(nil, boom)

		_, err := f.svc.Ingest(context.Background(), []InboundMessage{inbound("wamid.1", "a")})
		assert.ErrorIs(t, err, boom)
	})
}

func TestCRMService_IngestArchivesMedia(t *testing.T) {
	f := newFixture(t)
	existing := crm.NewConversation(f.shop.ID, f.client.ID, f.client.Phone)

	f.tenants.On("FindByWhatsAppPhoneID", mock.Anything, shopNumberID).Return(f.shop, nil)
	f.convs.On("MessageExists", mock.Anything, mock.Anything).Return(false, nil)
	f.resolver.On("FindOrCreateByPhone", mock.Anything, f.shop.ID, mock.Anything, mock.Anything).Return(f.client, false, nil)
	f.convs.On("FindByClient", mock.Anything, f.client.ID).Return(existing, nil)
	f.convs.On("Save", mock.Anything, existing).Return(nil)
	f.gateway.On("DownloadMedia", mock.Anything, "media-ok").Return([]byte("jpeg"), "image/jpeg", nil)
	f.gateway.On("DownloadMedia", mock.Anything, "media-gone").Return(nil, "", errors.New("404"))

	photo := inbound("wamid.img", "foto do Rex")
	photo.Kind, photo.MediaID = crm.KindImage, "media-ok"
	lost := inbound("wamid.img2", "")
	lost.Kind, lost.MediaID = crm.KindImage, "media-gone"

	res, err := f.svc.Ingest(context.Background(), []InboundMessage{photo, lost})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 1, f.media.Len())
	pending := existing.PendingMessages()
	require.Len(t, pending, 2)
	assert.Equal(t, "whatsapp/"+f.shop.ID.String()+"/media-ok.jpg", pending[0].MediaKey)
	assert.Empty(t, pending[1].MediaKey)
	assert.Equal(t, 2, existing.Unread)
}

func TestCRMService_SendMessage(t *testing.T) {
	userID := uuid.New()

	t.Run("sent", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", systemScoped(), f.shop.ID).Return(f.shop, nil)
		f.clients.On("FindByID", mock.Anything, f.client.ID).Return(f.client, nil)
		f.convs.On("FindByClient", mock.Anything, f.client.ID).Return(nil, shared.ErrNotFound)
		f.convs.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("SendText", mock.Anything, shopNumberID, "5511987654321", "Temos sim!").Return("wamid.out", nil)
		f.convs.On("UpdateMessage", mock.Anything, mock.MatchedBy(func(m *crm.Message) bool {
			return m.Status == crm.StatusSent && m.ExternalID == "wamid.out"
		})).Return(nil)

		resp, err := f.svc.SendMessage(context.Background(), f.shop.ID, userID, f.client.ID, SendMessageRequest{Body: "  Temos sim! "})

		require.NoError(t, err)
		assert.Equal(t, "sent", resp.Status)
		assert.Equal(t, "outbound", resp.Direction)
		assert.Equal(t, &userID, resp.CreatedBy)
		f.convs.AssertExpectations(t)
	})

	t.Run("delivery failure is recorded", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", mock.Anything, f.shop.ID).Return(f.shop, nil)
		f.clients.On("FindByID", mock.Anything, f.client.ID).Return(f.client, nil)
		f.convs.On("FindByClient", mock.Anything, f.client.ID).Return(nil, shared.ErrNotFound)
		f.convs.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("131047 re-engagement window closed"))
		f.convs.On("UpdateMessage", mock.Anything, mock.MatchedBy(func(m *crm.Message) bool {
			return m.Status == crm.StatusFailed && m.Error != ""
		})).Return(nil)

		_, err := f.svc.SendMessage(context.Background(), f.shop.ID, userID, f.client.ID, SendMessageRequest{Body: "Oi"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "SEND_FAILED", domainErr.Code)
		f.convs.AssertExpectations(t)
	})

	t.Run("shop without number", func(t *testing.T) {
		f := newFixture(t)
		f.shop.LinkWhatsApp("")
		f.tenants.On("FindByID", mock.Anything, f.shop.ID).Return(f.shop, nil)

		_, err := f.svc.SendMessage(context.Background(), f.shop.ID, userID, f.client.ID, SendMessageRequest{Body: "Oi"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "WHATSAPP_NOT_LINKED", domainErr.Code)
		f.gateway.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("client of another shop", func(t *testing.T) {
		f := newFixture(t)
		other, err := partner.NewClient(uuid.New(), "João", "5511911112222", partner.ClientSourceStore)
		require.NoError(t, err)
		f.tenants.On("FindByID", mock.Anything, f.shop.ID).Return(f.shop, nil)
		f.clients.On("FindByID", mock.Anything, other.ID).Return(other, nil)

		_, err = f.svc.SendMessage(context.Background(), f.shop.ID, userID, other.ID, SendMessageRequest{Body: "Oi"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CLIENT_NOT_FOUND", domainErr.Code)
	})
}

func TestCRMService_ListMessagesPresignsMedia(t *testing.T) {
	f := newFixture(t)
	conv := crm.NewConversation(f.shop.ID, f.client.ID, f.client.Phone)
	f.convs.On("FindByID", mock.Anything, conv.ID).Return(conv, nil)
	f.convs.On("ListMessages", mock.Anything, conv.ID, mock.Anything).Return([]crm.Message{
		{ID: uuid.New(), Kind: crm.KindImage, MediaKey: "whatsapp/x/m.jpg", Direction: crm.DirectionInbound},
		{ID: uuid.New(), Kind: crm.KindText, Body: "oi", Direction: crm.DirectionInbound},
	}, int64(2), nil)

	page, err := f.svc.ListMessages(context.Background(), f.shop.ID, conv.ID, ListMessagesRequest{})

	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "memory://whatsapp/x/m.jpg", page.Items[0].MediaURL)
	assert.Empty(t, page.Items[1].MediaURL)
}

func TestCRMService_MarkRead(t *testing.T) {
	f := newFixture(t)
	conv := crm.NewConversation(f.shop.ID, f.client.ID, f.client.Phone)
	conv.Unread = 4
	f.convs.On("FindByID", mock.Anything, conv.ID).Return(conv, nil)
	f.convs.On("Save", mock.Anything, conv).Return(nil).Once()

	resp, err := f.svc.MarkRead(context.Background(), f.shop.ID, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, resp.Unread)

	_, err = f.svc.MarkRead(context.Background(), uuid.New(), conv.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.convs.AssertExpectations(t)
}
