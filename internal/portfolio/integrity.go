package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Delete 在单个事务内删除记录，并按类型执行级联删除与置空规则。
// 对象存储的清理在提交后进行：目录前缀交给 Purger 异步处理，单个附件直接删除。
func (s *Service) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var blob string
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		blob, err = deleteRecord(ctx, tx, kind, id)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info("record deleted", slog.String("kind", string(kind)), slog.String("id", id.String()))
	switch {
	case blob == "":
	case strings.HasSuffix(blob, "/"):
		s.purge(ctx, blob)
	case s.blobs != nil:
		s.removeBlob(ctx, blob)
	}
	return nil
}

// DeleteFor 仅在 actor 拥有该记录时删除。
func (s *Service) DeleteFor(ctx context.Context, actor Owner, kind Kind, id uuid.UUID) error {
	if err := s.checkOwnership(ctx, actor, kind, id); err != nil {
		return err
	}
	return s.Delete(ctx, kind, id)
}

func (s *Service) checkOwnership(ctx context.Context, actor Owner, kind Kind, id uuid.UUID) error {
	if !actor.Valid() {
		return ErrForbidden
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var owner Owner
	switch kind {
	case KindStudent:
		owner = StudentOwner(id)
		if _, err := s.store.GetStudent(ctx, id); err != nil {
			return err
		}
	case KindTeacher:
		owner = TeacherOwner(id)
		if _, err := s.store.GetTeacher(ctx, id); err != nil {
			return err
		}
	case KindPersonalGoal:
		g, err := s.store.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		owner = g.Owner
	case KindDream:
		d, err := s.store.GetDream(ctx, id)
		if err != nil {
			return err
		}
		owner = d.Owner
	case KindCategory:
		c, err := s.store.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		owner = StudentOwner(c.StudentID)
	case KindPortfolioPage:
		p, err := s.store.GetPage(ctx, id)
		if err != nil {
			return err
		}
		owner = StudentOwner(p.StudentID)
	case KindPageFile:
		f, err := s.store.GetPageFile(ctx, id)
		if err != nil {
			return err
		}
		p, err := s.store.GetPage(ctx, f.PageID)
		if err != nil {
			return err
		}
		owner = StudentOwner(p.StudentID)
	case KindCalendarEntry:
		e, err := s.store.GetCalendarEntry(ctx, id)
		if err != nil {
			return err
		}
		owner = StudentOwner(e.StudentID)
	case KindSharedLink:
		l, err := s.store.GetSharedLink(ctx, id)
		if err != nil {
			return err
		}
		owner = StudentOwner(l.StudentID)
	case KindShareRequest:
		r, err := s.store.GetShareRequest(ctx, id)
		if err != nil {
			return err
		}
		owner = StudentOwner(r.StudentID)
	default:
		return fmt.Errorf("%w: %s records cannot be deleted by users", ErrForbidden, kind)
	}
	if owner != actor {
		return fmt.Errorf("%w: %s %s", ErrForbidden, kind, id)
	}
	return nil
}

// deleteRecord 按类型执行删除路径，返回提交后需要清理的对象前缀或对象 key。
func deleteRecord(ctx context.Context, tx Store, kind Kind, id uuid.UUID) (string, error) {
	switch kind {
	case KindStudent:
		return deleteStudent(ctx, tx, id)
	case KindTeacher:
		return deleteTeacher(ctx, tx, id)
	case KindCategory:
		if _, err := tx.GetCategory(ctx, id); err != nil {
			return "", err
		}
		if err := clearAll(ctx, tx, id,
			ref{KindPortfolioPage, "category_id"},
			ref{KindCategory, "parent_category_id"},
			ref{KindSharedLink, "category_id"},
			ref{KindShareRequest, "category_id"},
		); err != nil {
			return "", err
		}
	case KindPageTemplate:
		if _, err := tx.GetTemplate(ctx, id); err != nil {
			return "", err
		}
		if err := clearAll(ctx, tx, id, ref{KindPortfolioPage, "template_id"}); err != nil {
			return "", err
		}
	case KindPortfolioPage:
		p, err := tx.GetPage(ctx, id)
		if err != nil {
			return "", err
		}
		if _, err := tx.DeleteWhere(ctx, KindPageFile, "page_id", id); err != nil {
			return "", err
		}
		if err := clearAll(ctx, tx, id,
			ref{KindSharedLink, "page_id"},
			ref{KindShareRequest, "page_id"},
		); err != nil {
			return "", err
		}
		if err := tx.Delete(ctx, kind, id); err != nil {
			return "", err
		}
		return PagePrefix(p.StudentID, p.ID), nil
	case KindPersonalGoal:
		if _, err := tx.GetGoal(ctx, id); err != nil {
			return "", err
		}
		if err := clearAll(ctx, tx, id, ref{KindCalendarEntry, "related_goal_id"}); err != nil {
			return "", err
		}
	case KindShareRequest:
		if _, err := tx.GetShareRequest(ctx, id); err != nil {
			return "", err
		}
		if err := clearAll(ctx, tx, id, ref{KindMessage, "share_request_id"}); err != nil {
			return "", err
		}
	case KindPageFile:
		f, err := tx.GetPageFile(ctx, id)
		if err != nil {
			return "", err
		}
		if err := tx.Delete(ctx, kind, id); err != nil {
			return "", err
		}
		return f.ObjectKey, nil
	case KindDream, KindCalendarEntry, KindSharedLink, KindMessage:
	default:
		return "", fmt.Errorf("delete: unknown kind %q", kind)
	}
	return "", tx.Delete(ctx, kind, id)
}

type ref struct {
	kind   Kind
	column string
}

func clearAll(ctx context.Context, tx Store, id uuid.UUID, refs ...ref) error {
	for _, r := range refs {
		if _, err := tx.ClearReference(ctx, r.kind, r.column, id); err != nil {
			return fmt.Errorf("clear %s.%s: %w", r.kind, r.column, err)
		}
	}
	return nil
}

func deleteStudent(ctx context.Context, tx Store, id uuid.UUID) (string, error) {
	if _, err := tx.GetStudent(ctx, id); err != nil {
		return "", err
	}
	if err := deleteRequests(ctx, tx, ShareRequestQuery{StudentID: &id}); err != nil {
		return "", err
	}
	pages, err := tx.ListPages(ctx, PageQuery{StudentID: id})
	if err != nil {
		return "", err
	}
	for _, p := range pages {
		if _, err := tx.DeleteWhere(ctx, KindPageFile, "page_id", p.ID); err != nil {
			return "", err
		}
	}
	for _, k := range []Kind{KindPortfolioPage, KindCategory, KindCalendarEntry, KindSharedLink} {
		if _, err := tx.DeleteWhere(ctx, k, "student_id", id); err != nil {
			return "", fmt.Errorf("cascade %s: %w", k, err)
		}
	}
	if err := deleteOwned(ctx, tx, StudentOwner(id)); err != nil {
		return "", err
	}
	if err := tx.Delete(ctx, KindStudent, id); err != nil {
		return "", err
	}
	return StudentPrefix(id), nil
}

func deleteTeacher(ctx context.Context, tx Store, id uuid.UUID) (string, error) {
	if _, err := tx.GetTeacher(ctx, id); err != nil {
		return "", err
	}
	if err := deleteRequests(ctx, tx, ShareRequestQuery{TeacherID: &id}); err != nil {
		return "", err
	}
	if err := deleteOwned(ctx, tx, TeacherOwner(id)); err != nil {
		return "", err
	}
	if err := tx.Delete(ctx, KindTeacher, id); err != nil {
		return "", err
	}
	return TeacherPrefix(id), nil
}

func deleteRequests(ctx context.Context, tx Store, q ShareRequestQuery) error {
	reqs, err := tx.ListShareRequests(ctx, q)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		if _, err := tx.ClearReference(ctx, KindMessage, "share_request_id", r.ID); err != nil {
			return fmt.Errorf("clear messages.share_request_id: %w", err)
		}
		if err := tx.Delete(ctx, KindShareRequest, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// deleteOwned 删除 o 名下的目标与梦想。
func deleteOwned(ctx context.Context, tx Store, o Owner) error {
	for _, k := range []Kind{KindPersonalGoal, KindDream} {
		if o.Kind() == OwnerTeacher && k == KindPersonalGoal {
			goals, err := tx.ListGoals(ctx, o, ListOptions{})
			if err != nil {
				return err
			}
			for _, g := range goals {
				if _, err := tx.ClearReference(ctx, KindCalendarEntry, "related_goal_id", g.ID); err != nil {
					return err
				}
			}
		}
		if _, err := tx.DeleteWhere(ctx, k, "owner", o.String()); err != nil {
			return fmt.Errorf("cascade %s: %w", k, err)
		}
	}
	return nil
}

// SetCategoryParent 修改分类的父分类。parent 为 nil 时总是成功；
// 父分类必须属于同一学生，且不能是自身或其后代，否则返回 ErrCycle。
func (s *Service) SetCategoryParent(ctx context.Context, id uuid.UUID, parent *uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.store.WithTx(ctx, func(tx Store) error {
		c, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if parent != nil {
			if err := checkParent(ctx, tx, c.StudentID, id, *parent); err != nil {
				return err
			}
		}
		return tx.UpdateCategory(ctx, id, Fields{"parent_category_id": parent})
	})
}

// SetCategoryParentFor 仅在 actor 拥有该分类时修改父分类。
func (s *Service) SetCategoryParentFor(ctx context.Context, actor Owner, id uuid.UUID, parent *uuid.UUID) error {
	if err := s.checkOwnership(ctx, actor, KindCategory, id); err != nil {
		return err
	}
	return s.SetCategoryParent(ctx, id, parent)
}

// checkParent 从 parent 向上遍历，遇到 self 即判定成环。
// 新建分类时 self 为尚未入库的 ID。
func checkParent(ctx context.Context, tx Store, studentID, self, parent uuid.UUID) error {
	if parent == self {
		return fmt.Errorf("%w: category %s cannot be its own parent", ErrCycle, self)
	}
	p, err := tx.GetCategory(ctx, parent)
	if err != nil {
		return err
	}
	if p.StudentID != studentID {
		return fmt.Errorf("%w: parent category %s belongs to another student", ErrForbidden, parent)
	}
	visited := map[uuid.UUID]bool{parent: true}
	for cur := p.ParentCategoryID; cur != nil; {
		if *cur == self {
			return fmt.Errorf("%w: %s is a descendant of %s", ErrCycle, parent, self)
		}
		if visited[*cur] {
			return fmt.Errorf("%w: existing parent chain of %s loops", ErrCycle, parent)
		}
		visited[*cur] = true
		next, err := tx.GetCategory(ctx, *cur)
		if err != nil {
			return err
		}
		cur = next.ParentCategoryID
	}
	return nil
}
