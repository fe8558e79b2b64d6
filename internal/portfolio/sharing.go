package portfolio

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type LinkOptions struct {
	Password  string
	ExpiresAt *time.Time
}

// SharedContent 是链接或已批准请求所授予的内容。
type SharedContent struct {
	Scope      Scope           `json:"scope"`
	Student    *Student        `json:"student"`
	Categories []Category      `json:"categories,omitempty"`
	Pages      []PortfolioPage `json:"pages"`
}

type LinkView struct {
	Link    *SharedLink    `json:"link"`
	Content *SharedContent `json:"content"`
}

// CreateSharedLink 生成带唯一随机令牌的分享链接。
func (s *Service) CreateSharedLink(ctx context.Context, studentID uuid.UUID, scope Scope, opts LinkOptions) (*SharedLink, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	link := &SharedLink{
		Model:      Model{ID: uuid.New()},
		StudentID:  studentID,
		ShareType:  scope.Type,
		CategoryID: scope.CategoryID,
		PageID:     scope.PageID,
		IsActive:   true,
	}
	if opts.ExpiresAt != nil {
		exp := opts.ExpiresAt.UTC()
		link.ExpiresAt = &exp
	}
	if opts.Password != "" {
		if s.hasher == nil {
			return nil, fmt.Errorf("create shared link: no password hasher configured")
		}
		hash, err := s.hasher.HashPassword(opts.Password)
		if err != nil {
			return nil, fmt.Errorf("hash link password: %w", err)
		}
		link.PasswordHash = hash
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if err := checkScopeRefs(ctx, s.store, studentID, scope); err != nil {
		return nil, err
	}
	token, err := s.uniqueShareToken(ctx)
	if err != nil {
		return nil, err
	}
	link.ShareToken = token
	if err := Validate(link); err != nil {
		return nil, err
	}
	if err := s.store.CreateSharedLink(ctx, link); err != nil {
		return nil, fmt.Errorf("create shared link: %w", err)
	}
	s.logger.Info("shared link created",
		slog.String("shared_link_id", link.ID.String()),
		slog.String("share_type", string(link.ShareType)),
	)
	return link, nil
}

// uniqueShareToken 反复生成令牌，直到未被占用。
func (s *Service) uniqueShareToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newShareToken()
		if err != nil {
			return "", err
		}
		exists, err := s.store.ShareTokenExists(ctx, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
		s.logger.Warn("share token collision, regenerating", slog.Int("attempt", attempt+1))
	}
	return "", fmt.Errorf("generate share token: %d collisions in a row", maxTokenAttempts)
}

// ResolveSharedLink 校验链接、计数并返回分享内容。
// 校验顺序：是否存在、是否启用且未过期、密码。
func (s *Service) ResolveSharedLink(ctx context.Context, token, password string) (*LinkView, error) {
	if !validToken(token) {
		return nil, fmt.Errorf("%w: shared link", ErrNotFound)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	link, err := s.store.GetSharedLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if !link.Usable(now) {
		return nil, fmt.Errorf("%w: link %s", ErrExpired, link.ID)
	}
	if link.HasPassword() {
		if s.hasher == nil || !s.hasher.CheckPasswordHash(password, link.PasswordHash) {
			return nil, fmt.Errorf("%w: link %s", ErrWrongPassword, link.ID)
		}
	}
	counted, err := s.store.RecordSharedLinkView(ctx, link.ID, now)
	if err != nil {
		return nil, err
	}
	if !counted {
		return nil, fmt.Errorf("%w: link %s", ErrExpired, link.ID)
	}
	link.ViewCount++

	content, err := scopeContent(ctx, s.store, link.StudentID, link.Scope())
	if err != nil {
		return nil, err
	}
	return &LinkView{Link: link, Content: content}, nil
}

func validToken(token string) bool {
	if len(token) != 2*shareTokenBytes {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// DeactivateSharedLink 停用学生自己的链接。
func (s *Service) DeactivateSharedLink(ctx context.Context, studentID, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	link, err := s.store.GetSharedLink(ctx, id)
	if err != nil {
		return err
	}
	if link.StudentID != studentID {
		return fmt.Errorf("%w: shared link %s", ErrForbidden, id)
	}
	return s.store.UpdateSharedLink(ctx, id, Fields{"is_active": false})
}

func (s *Service) ListSharedLinks(ctx context.Context, studentID uuid.UUID) ([]SharedLink, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListSharedLinks(ctx, studentID)
}

// scopeContent 加载范围内容。单页直接返回；分类与整个作品集只包含 shared 页面。
func scopeContent(ctx context.Context, st Store, studentID uuid.UUID, scope Scope) (*SharedContent, error) {
	if err := scope.Check(); err != nil {
		// 引用的分类或页面已被删除
		if errors.Is(err, ErrScope) {
			return nil, fmt.Errorf("%w: shared content no longer exists", ErrNotFound)
		}
		return nil, err
	}
	student, err := st.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := &SharedContent{Scope: scope, Student: student}
	switch scope.Type {
	case ShareSinglePage:
		p, err := st.GetPage(ctx, *scope.PageID)
		if err != nil {
			return nil, err
		}
		if p.StudentID != studentID {
			return nil, notFound(KindPortfolioPage, p.ID)
		}
		out.Pages = []PortfolioPage{*p}
	case ShareCategory:
		c, err := st.GetCategory(ctx, *scope.CategoryID)
		if err != nil {
			return nil, err
		}
		if c.StudentID != studentID {
			return nil, notFound(KindCategory, c.ID)
		}
		pages, err := st.ListPages(ctx, PageQuery{StudentID: studentID, CategoryID: &c.ID, Visibility: VisibilityShared})
		if err != nil {
			return nil, err
		}
		out.Categories = []Category{*c}
		out.Pages = pages
	case ShareFullPortfolio:
		cats, err := st.ListCategories(ctx, studentID)
		if err != nil {
			return nil, err
		}
		pages, err := st.ListPages(ctx, PageQuery{StudentID: studentID, Visibility: VisibilityShared})
		if err != nil {
			return nil, err
		}
		out.Categories = cats
		out.Pages = pages
	}
	if out.Pages == nil {
		out.Pages = []PortfolioPage{}
	}
	return out, nil
}
