package engagement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), policy.NewMarketplace())
	require.NoError(t, err)
	return svc, conn
}

func TestToggleLikeNeverDuplicates(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	alice := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	bob := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	product := dbtest.SeedProduct(t, conn, seller.ID, "2.00", 1)
	ctx := context.Background()
	a := policy.Caller{ID: alice.ID, Role: enums.UserRoleBuyer}
	b := policy.Caller{ID: bob.ID, Role: enums.UserRoleBuyer}

	summary, err := svc.ToggleLike(ctx, a, product.ID)
	require.NoError(t, err)
	require.Equal(t, LikeSummary{ProductID: product.ID, Count: 1, LikedByMe: true}, *summary)

	summary, err = svc.ToggleLike(ctx, b, product.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, summary.Count)

	// a second like row for alice would violate the unique pair; the insert is ignored
	require.NoError(t, NewRepository(conn).AddLike(ctx, &models.ProductLike{UserID: alice.ID, ProductID: product.ID}))
	summary, err = svc.Likes(ctx, a, product.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, summary.Count)

	summary, err = svc.ToggleLike(ctx, a, product.ID)
	require.NoError(t, err)
	require.Equal(t, LikeSummary{ProductID: product.ID, Count: 1, LikedByMe: false}, *summary)

	_, err = svc.ToggleLike(ctx, policy.Caller{}, product.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
	_, err = svc.ToggleLike(ctx, a, uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestCommentsAreAppendOnlyAndOwnerDeletable(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	alice := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	bob := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	product := dbtest.SeedProduct(t, conn, seller.ID, "2.00", 1)
	ctx := context.Background()
	a := policy.Caller{ID: alice.ID, Role: enums.UserRoleBuyer}
	b := policy.Caller{ID: bob.ID, Role: enums.UserRoleBuyer}

	first, err := svc.CreateComment(ctx, a, product.ID, CreateCommentInput{Content: " great "})
	require.NoError(t, err)
	require.Equal(t, "great", first.Content)
	_, err = svc.CreateComment(ctx, b, product.ID, CreateCommentInput{Content: "agreed"})
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, a, product.ID, CreateCommentInput{Content: "  "})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	page, err := svc.ListComments(ctx, b, product.ID, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)

	require.True(t, pkgerrors.Is(svc.DeleteComment(ctx, b, first.ID), pkgerrors.CodeForbidden))
	require.NoError(t, svc.DeleteComment(ctx, a, first.ID))
	require.True(t, pkgerrors.Is(svc.DeleteComment(ctx, a, first.ID), pkgerrors.CodeNotFound))

	page, err = svc.ListComments(ctx, a, product.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "agreed", page.Items[0].Content)
}

func TestEngagementOnHiddenProductIsNotFound(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.SeedProfile(t, conn, enums.UserRoleSeller)
	buyer := dbtest.SeedProfile(t, conn, enums.UserRoleBuyer)
	product := dbtest.SeedProduct(t, conn, seller.ID, "2.00", 1)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error)
	caller := policy.Caller{ID: buyer.ID, Role: enums.UserRoleBuyer}
	ctx := context.Background()

	_, err := svc.ToggleLike(ctx, caller, product.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = svc.CreateComment(ctx, caller, product.ID, CreateCommentInput{Content: "hi"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	owner := policy.Caller{ID: seller.ID, Role: enums.UserRoleSeller}
	_, err = svc.Likes(ctx, owner, product.ID)
	require.NoError(t, err)
}
