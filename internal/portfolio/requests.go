package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// CreateShareRequest 创建待处理的分享请求，并在同一事务内给教师发送 share_request 消息。
func (s *Service) CreateShareRequest(ctx context.Context, studentID, teacherID uuid.UUID, scope Scope, note string) (*ShareRequest, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	req := &ShareRequest{
		Model:      Model{ID: uuid.New()},
		StudentID:  studentID,
		TeacherID:  teacherID,
		ShareType:  scope.Type,
		CategoryID: scope.CategoryID,
		PageID:     scope.PageID,
		Message:    strings.TrimSpace(note),
		Status:     RequestPending,
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var msg *Message
	err := s.store.WithTx(ctx, func(tx Store) error {
		st, err := tx.GetStudent(ctx, studentID)
		if err != nil {
			return err
		}
		t, err := tx.GetTeacher(ctx, teacherID)
		if err != nil {
			return err
		}
		if err := checkScopeRefs(ctx, tx, studentID, scope); err != nil {
			return err
		}
		if err := tx.CreateShareRequest(ctx, req); err != nil {
			return fmt.Errorf("create share request: %w", err)
		}
		content := fmt.Sprintf("%s %s requests to share %s with you.", st.FirstName, st.LastName, describeScope(scope))
		if req.Message != "" {
			content += "\n\n" + req.Message
		}
		msg = &Message{
			Model:          Model{ID: uuid.New()},
			FromUserID:     st.AccountID,
			ToUserID:       t.AccountID,
			MessageType:    MessageShareRequest,
			Subject:        "Share request",
			Content:        content,
			ShareRequestID: &req.ID,
		}
		return tx.CreateMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("share request created",
		slog.String("share_request_id", req.ID.String()),
		slog.String("share_type", string(req.ShareType)),
	)
	s.publish(ctx, msg)
	return req, nil
}

// ResolveShareRequest 将 pending 请求转为 approved 或 rejected，并给学生发送 system 消息。
// 其他任何转换都返回 ErrInvalidTransition。
func (s *Service) ResolveShareRequest(ctx context.Context, requestID uuid.UUID, decision RequestStatus) (*ShareRequest, error) {
	switch decision {
	case RequestApproved, RequestRejected:
	case RequestPending:
		return nil, fmt.Errorf("%w: a request cannot move back to pending", ErrInvalidTransition)
	default:
		return nil, invalid(KindShareRequest, FieldError{Field: "status", Tag: "oneof", Message: "status must be one of [approved rejected]"})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		req *ShareRequest
		msg *Message
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetShareRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != RequestPending {
			return fmt.Errorf("%w: share request %s is %s", ErrInvalidTransition, requestID, req.Status)
		}
		now := s.clock()
		ok, err := tx.TransitionShareRequest(ctx, requestID, RequestPending, decision, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: share request %s is no longer pending", ErrInvalidTransition, requestID)
		}
		req.Status = decision
		req.DecidedAt = &now

		st, err := tx.GetStudent(ctx, req.StudentID)
		if err != nil {
			return err
		}
		t, err := tx.GetTeacher(ctx, req.TeacherID)
		if err != nil {
			return err
		}
		msg = &Message{
			Model:          Model{ID: uuid.New()},
			FromUserID:     t.AccountID,
			ToUserID:       st.AccountID,
			MessageType:    MessageSystem,
			Subject:        "Share request " + string(decision),
			Content:        fmt.Sprintf("%s %s %s your request to share %s.", t.FirstName, t.LastName, decision, describeScope(req.Scope())),
			ShareRequestID: &req.ID,
		}
		return tx.CreateMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("share request resolved",
		slog.String("share_request_id", req.ID.String()),
		slog.String("status", string(req.Status)),
	)
	s.publish(ctx, msg)
	return req, nil
}

// DecideShareRequest 以被请求教师的身份处理分享请求。
func (s *Service) DecideShareRequest(ctx context.Context, teacherID, requestID uuid.UUID, decision RequestStatus) (*ShareRequest, error) {
	req, err := s.ShareRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.TeacherID != teacherID {
		return nil, fmt.Errorf("%w: share request %s", ErrForbidden, requestID)
	}
	return s.ResolveShareRequest(ctx, requestID, decision)
}

func (s *Service) ShareRequest(ctx context.Context, id uuid.UUID) (*ShareRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetShareRequest(ctx, id)
}

func (s *Service) ListShareRequests(ctx context.Context, q ShareRequestQuery) ([]ShareRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListShareRequests(ctx, q)
}

// GrantedContent 返回已批准请求分享给教师的内容。
func (s *Service) GrantedContent(ctx context.Context, teacherID, requestID uuid.UUID) (*SharedContent, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := s.store.GetShareRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.TeacherID != teacherID {
		return nil, fmt.Errorf("%w: share request %s", ErrForbidden, requestID)
	}
	if req.Status != RequestApproved {
		return nil, fmt.Errorf("%w: share request %s is %s", ErrForbidden, requestID, req.Status)
	}
	return scopeContent(ctx, s.store, req.StudentID, req.Scope())
}

// checkScopeRefs 确认分享范围引用的分类或页面存在且属于该学生。
func checkScopeRefs(ctx context.Context, tx Store, studentID uuid.UUID, scope Scope) error {
	switch scope.Type {
	case ShareCategory:
		c, err := tx.GetCategory(ctx, *scope.CategoryID)
		if err != nil {
			return err
		}
		if c.StudentID != studentID {
			return fmt.Errorf("%w: category %s belongs to another student", ErrScope, c.ID)
		}
	case ShareSinglePage:
		p, err := tx.GetPage(ctx, *scope.PageID)
		if err != nil {
			return err
		}
		if p.StudentID != studentID {
			return fmt.Errorf("%w: page %s belongs to another student", ErrScope, p.ID)
		}
	}
	return nil
}

func describeScope(sc Scope) string {
	switch sc.Type {
	case ShareCategory:
		return "a category"
	case ShareSinglePage:
		return "a page"
	default:
		return "the whole portfolio"
	}
}
