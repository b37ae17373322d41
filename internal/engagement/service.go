package engagement

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

const constraintCommentContent = "product_comments_content_check"

// Service exposes likes and comments on products. Both require the product to
// be visible to the caller.
type Service interface {
	ToggleLike(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*LikeSummary, error)
	Likes(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*LikeSummary, error)
	ListComments(ctx context.Context, caller policy.Caller, productID uuid.UUID, params pagination.Params) (pagination.Page[CommentDTO], error)
	CreateComment(ctx context.Context, caller policy.Caller, productID uuid.UUID, input CreateCommentInput) (*CommentDTO, error)
	DeleteComment(ctx context.Context, caller policy.Caller, commentID uuid.UUID) error
}

type service struct {
	repo     *Repository
	policies *policy.Set
}

func NewService(repo *Repository, policies *policy.Set) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("engagement repository required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy set required")
	}
	return &service{repo: repo, policies: policies}, nil
}

func (s *service) ToggleLike(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*LikeSummary, error) {
	if err := s.visibleProduct(ctx, caller, productID); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindLike(ctx, caller.ID, productID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if existing != nil {
		if err := s.policies.AuthorizeWrite(ctx, policy.TableProductLikes, policy.OpDelete, caller, existing); err != nil {
			return nil, err
		}
		if err := s.repo.RemoveLike(ctx, existing.ID); err != nil {
			return nil, db.TranslateError(err)
		}
	} else {
		like := models.ProductLike{UserID: caller.ID, ProductID: productID}
		if err := s.policies.AuthorizeWrite(ctx, policy.TableProductLikes, policy.OpInsert, caller, like); err != nil {
			return nil, err
		}
		if err := s.repo.AddLike(ctx, &like); err != nil {
			return nil, db.TranslateError(err)
		}
	}
	return s.summary(ctx, caller, productID)
}

// Likes is readable by any signed-in caller, like the rows it counts.
func (s *service) Likes(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*LikeSummary, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.visibleProduct(ctx, caller, productID); err != nil {
		return nil, err
	}
	return s.summary(ctx, caller, productID)
}

func (s *service) summary(ctx context.Context, caller policy.Caller, productID uuid.UUID) (*LikeSummary, error) {
	count, err := s.repo.CountLikes(ctx, productID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	mine, err := s.repo.FindLike(ctx, caller.ID, productID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return &LikeSummary{ProductID: productID, Count: count, LikedByMe: mine != nil}, nil
}

func (s *service) ListComments(ctx context.Context, caller policy.Caller, productID uuid.UUID, params pagination.Params) (pagination.Page[CommentDTO], error) {
	if !caller.Authenticated() {
		return pagination.Page[CommentDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.visibleProduct(ctx, caller, productID); err != nil {
		return pagination.Page[CommentDTO]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[CommentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListComments(ctx, s.policies.Scope(policy.TableProductComments, caller), productID, params, cursor)
	if err != nil {
		return pagination.Page[CommentDTO]{}, db.TranslateError(err)
	}
	dtos := make([]CommentDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, CommentFromModel(row))
	}
	return pagination.Build(dtos, params.Limit, func(c CommentDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	}), nil
}

func (s *service) CreateComment(ctx context.Context, caller policy.Caller, productID uuid.UUID, input CreateCommentInput) (*CommentDTO, error) {
	if err := s.visibleProduct(ctx, caller, productID); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" || utf8.RuneCountInString(content) > MaxCommentLength {
		return nil, db.Violation(db.ConstraintDetails{Constraint: constraintCommentContent, Table: "product_comments", Field: "content"})
	}
	comment := models.ProductComment{UserID: caller.ID, ProductID: productID, Content: content}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableProductComments, policy.OpInsert, caller, comment); err != nil {
		return nil, err
	}
	if err := s.repo.CreateComment(ctx, &comment); err != nil {
		return nil, db.TranslateError(err)
	}
	dto := CommentFromModel(comment)
	return &dto, nil
}

// DeleteComment removes the caller's own comment. Comments are never edited.
func (s *service) DeleteComment(ctx context.Context, caller policy.Caller, commentID uuid.UUID) error {
	comment, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return db.TranslateError(err)
	}
	if err := s.policies.AuthorizeWrite(ctx, policy.TableProductComments, policy.OpDelete, caller, comment); err != nil {
		return err
	}
	if err := s.repo.DeleteComment(ctx, commentID); err != nil {
		return db.TranslateError(err)
	}
	return nil
}

func (s *service) visibleProduct(ctx context.Context, caller policy.Caller, productID uuid.UUID) error {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return db.TranslateError(err)
	}
	return s.policies.AuthorizeRead(ctx, policy.TableProducts, caller, product)
}
