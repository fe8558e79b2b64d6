package portfolio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile 是注册学生或教师的输入。
type Profile struct {
	AccountID   uuid.UUID
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Bio         string
}

// Upload 表示交给对象存储的文件。
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// RegisterStudent 在同一事务内创建学生及其预置分类。
// 任一分类写入失败则整体回滚，并返回包装了 ErrSeed 的错误。
func (s *Service) RegisterStudent(ctx context.Context, p Profile) (*Student, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	st := &Student{
		Model:       Model{ID: uuid.New()},
		AccountID:   p.AccountID,
		FirstName:   strings.TrimSpace(p.FirstName),
		LastName:    strings.TrimSpace(p.LastName),
		DateOfBirth: p.DateOfBirth,
	}
	if err := Validate(st); err != nil {
		return nil, err
	}
	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateStudent(ctx, st); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		_, err := seedCategories(ctx, tx, st.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student registered", slog.String("student_id", st.ID.String()))
	return st, nil
}

func (s *Service) RegisterTeacher(ctx context.Context, p Profile) (*Teacher, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	t := &Teacher{
		Model:     Model{ID: uuid.New()},
		AccountID: p.AccountID,
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Bio:       p.Bio,
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	if err := s.store.CreateTeacher(ctx, t); err != nil {
		return nil, fmt.Errorf("create teacher: %w", err)
	}
	s.logger.Info("teacher registered", slog.String("teacher_id", t.ID.String()))
	return t, nil
}

func (s *Service) Student(ctx context.Context, id uuid.UUID) (*Student, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetStudent(ctx, id)
}

func (s *Service) Teacher(ctx context.Context, id uuid.UUID) (*Teacher, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetTeacher(ctx, id)
}

func (s *Service) StudentByAccount(ctx context.Context, accountID uuid.UUID) (*Student, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetStudentByAccount(ctx, accountID)
}

func (s *Service) TeacherByAccount(ctx context.Context, accountID uuid.UUID) (*Teacher, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetTeacherByAccount(ctx, accountID)
}

// StudentPrefix 是学生全部上传文件的对象前缀。
func StudentPrefix(id uuid.UUID) string { return "students/" + id.String() + "/" }

func TeacherPrefix(id uuid.UUID) string { return "teachers/" + id.String() + "/" }

func PagePrefix(studentID, pageID uuid.UUID) string {
	return StudentPrefix(studentID) + "pages/" + pageID.String() + "/"
}

func ownerPrefix(o Owner) string {
	if o.Kind() == OwnerTeacher {
		return TeacherPrefix(o.ID())
	}
	return StudentPrefix(o.ID())
}

// SetAvatar 上传头像并返回对象 key；记录指向新对象后再删除旧头像。
func (s *Service) SetAvatar(ctx context.Context, owner Owner, up Upload) (string, error) {
	if !owner.Valid() {
		return "", fmt.Errorf("set avatar: invalid owner")
	}
	if s.blobs == nil {
		return "", fmt.Errorf("set avatar: no blob store configured")
	}
	if err := s.checkUpload(up); err != nil {
		return "", err
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return "", invalid(kindOfOwner(owner), FieldError{Field: "avatar", Tag: "image", Message: "avatar must be an image"})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var previous *string
	switch owner.Kind() {
	case OwnerStudent:
		st, err := s.store.GetStudent(ctx, owner.ID())
		if err != nil {
			return "", err
		}
		previous = st.Avatar
	case OwnerTeacher:
		t, err := s.store.GetTeacher(ctx, owner.ID())
		if err != nil {
			return "", err
		}
		previous = t.Avatar
	}

	key := ownerPrefix(owner) + "avatar/" + uuid.NewString() + strings.ToLower(path.Ext(up.FileName))
	if err := s.blobs.UploadFile(ctx, key, up.Body, up.Size, up.ContentType); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	fields := Fields{"avatar": key}
	var err error
	if owner.Kind() == OwnerStudent {
		err = s.store.UpdateStudent(ctx, owner.ID(), fields)
	} else {
		err = s.store.UpdateTeacher(ctx, owner.ID(), fields)
	}
	if err != nil {
		s.removeBlob(ctx, key)
		return "", err
	}
	if previous != nil && *previous != "" {
		s.removeBlob(ctx, *previous)
	}
	return key, nil
}

func (s *Service) removeBlob(ctx context.Context, key string) {
	if err := s.blobs.DeleteObject(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to delete blob", slog.String("object_key", key), slog.Any("error", err))
	}
}

func (s *Service) checkUpload(up Upload) error {
	if up.Body == nil || up.Size <= 0 {
		return invalid(KindPageFile, FieldError{Field: "file", Tag: "required", Message: "file is required"})
	}
	if up.Size > s.maxFileSize {
		return fmt.Errorf("%w: file %q is %d bytes, limit %d", ErrLimit, up.FileName, up.Size, s.maxFileSize)
	}
	return nil
}

func kindOfOwner(o Owner) Kind {
	if o.Kind() == OwnerTeacher {
		return KindTeacher
	}
	return KindStudent
}
