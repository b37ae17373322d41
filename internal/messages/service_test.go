package messages

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		DB:       client,
		Repo:     NewRepository(conn),
		Policies: policy.NewMarketplace(),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:   logg,
	})
	require.NoError(t, err)
	return svc, conn
}

func callerOf(p models.Profile) policy.Caller {
	return policy.Caller{ID: p.ID, Role: p.Role}
}

func TestSendProductInquiryAndReply(t *testing.T) {
	svc, conn := newTestService(t)
	seller := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleSeller))
	buyer := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	product := dbtest.SeedProduct(t, conn, seller.ID, "5.00", 2)
	ctx := context.Background()

	question, err := svc.Send(ctx, buyer, SendMessageInput{RecipientID: seller.ID, ProductID: &product.ID, Content: "  Still available? "})
	require.NoError(t, err)
	require.Equal(t, enums.MessageKindProductInquiry, question.Kind)
	require.Equal(t, "Still available?", question.Content)
	require.False(t, question.IsRead)

	reply, err := svc.Send(ctx, seller, SendMessageInput{RecipientID: buyer.ID, ParentID: &question.ID, Content: "Yes"})
	require.NoError(t, err)
	require.Equal(t, enums.MessageKindDirect, reply.Kind)
	require.Equal(t, question.ID, *reply.ParentID)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventMessageSent).Count(&events).Error)
	require.EqualValues(t, 2, events)

	convo, err := svc.Conversation(ctx, buyer, seller.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, convo.Items, 2)
}

func TestSendValidation(t *testing.T) {
	svc, conn := newTestService(t)
	alice := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	bob := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	carol := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	ctx := context.Background()

	private, err := svc.Send(ctx, bob, SendMessageInput{RecipientID: carol.ID, Content: "between us"})
	require.NoError(t, err)
	mine, err := svc.Send(ctx, alice, SendMessageInput{RecipientID: carol.ID, Content: "hi carol"})
	require.NoError(t, err)
	missing := uuid.New()

	cases := []struct {
		name  string
		input SendMessageInput
		code  pkgerrors.Code
	}{
		{"blank content", SendMessageInput{RecipientID: bob.ID, Content: "   "}, pkgerrors.CodeValidation},
		{"too long", SendMessageInput{RecipientID: bob.ID, Content: strings.Repeat("x", MaxContentLength+1)}, pkgerrors.CodeValidation},
		{"to self", SendMessageInput{RecipientID: alice.ID, Content: "me"}, pkgerrors.CodeValidation},
		{"unknown recipient", SendMessageInput{RecipientID: uuid.New(), Content: "hello"}, pkgerrors.CodeNotFound},
		{"unknown product", SendMessageInput{RecipientID: bob.ID, ProductID: &missing, Content: "hello"}, pkgerrors.CodeNotFound},
		{"invisible parent", SendMessageInput{RecipientID: bob.ID, ParentID: &private.ID, Content: "hello"}, pkgerrors.CodeNotFound},
		{"parent from another conversation", SendMessageInput{RecipientID: bob.ID, ParentID: &mine.ID, Content: "hello"}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Send(ctx, alice, tc.input)
			require.True(t, pkgerrors.Is(err, tc.code), "got %v", err)
		})
	}

	_, err = svc.Send(ctx, policy.Caller{}, SendMessageInput{RecipientID: bob.ID, Content: "hello"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestOnlyRecipientMarksRead(t *testing.T) {
	svc, conn := newTestService(t)
	alice := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	bob := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	eve := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	ctx := context.Background()

	msg, err := svc.Send(ctx, alice, SendMessageInput{RecipientID: bob.ID, Content: "ping"})
	require.NoError(t, err)

	unread, err := svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread.Unread)

	_, err = svc.MarkRead(ctx, alice, msg.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden), "sender can see but not update, got %v", err)
	_, err = svc.MarkRead(ctx, eve, msg.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, eve, msg.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	read, err := svc.MarkRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.Equal(t, "ping", read.Content)

	unread, err = svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	require.Zero(t, unread.Unread)
}

func TestInboxScopesToParticipants(t *testing.T) {
	svc, conn := newTestService(t)
	alice := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	bob := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	eve := callerOf(dbtest.SeedProfile(t, conn, enums.UserRoleBuyer))
	ctx := context.Background()

	_, err := svc.Send(ctx, alice, SendMessageInput{RecipientID: bob.ID, Content: "one"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob, SendMessageInput{RecipientID: alice.ID, Content: "two"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, eve, SendMessageInput{RecipientID: bob.ID, Content: "three"})
	require.NoError(t, err)

	inbox, err := svc.Inbox(ctx, alice, InboxInput{})
	require.NoError(t, err)
	require.Len(t, inbox.Items, 2)

	unread, err := svc.Inbox(ctx, bob, InboxInput{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 2)
	for _, m := range unread.Items {
		require.Equal(t, bob.ID, m.RecipientID)
	}

	paged, err := svc.Inbox(ctx, bob, InboxInput{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, paged.Items, 2)
	require.NotEmpty(t, paged.NextCursor)

	convo, err := svc.Conversation(ctx, eve, alice.ID, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, convo.Items)
}
