package portfolio

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Fields 是按列名组织的更新内容。
type Fields map[string]any

type ListOptions struct {
	Limit int
}

type PageQuery struct {
	StudentID  uuid.UUID
	CategoryID *uuid.UUID
	Visibility Visibility
	Limit      int
}

type ShareRequestQuery struct {
	StudentID *uuid.UUID
	TeacherID *uuid.UUID
	Status    RequestStatus
}

type MessageQuery struct {
	ToUserID   uuid.UUID
	UnreadOnly bool
	Limit      int
}

// Store 是领域层依赖的记录存储。记录不存在返回 ErrNotFound，
// 暂时性故障返回 ErrStoreUnavailable（均为包装后的错误）。
type Store interface {
	// WithTx 在单个事务中执行 fn，tx 上的写入一起提交或回滚。
	WithTx(ctx context.Context, fn func(tx Store) error) error

	CreateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, id uuid.UUID) (*Student, error)
	GetStudentByAccount(ctx context.Context, accountID uuid.UUID) (*Student, error)
	UpdateStudent(ctx context.Context, id uuid.UUID, fields Fields) error

	CreateTeacher(ctx context.Context, t *Teacher) error
	GetTeacher(ctx context.Context, id uuid.UUID) (*Teacher, error)
	GetTeacherByAccount(ctx context.Context, accountID uuid.UUID) (*Teacher, error)
	UpdateTeacher(ctx context.Context, id uuid.UUID, fields Fields) error

	CreateGoal(ctx context.Context, g *PersonalGoal) error
	GetGoal(ctx context.Context, id uuid.UUID) (*PersonalGoal, error)
	UpdateGoal(ctx context.Context, id uuid.UUID, fields Fields) error
	ListGoals(ctx context.Context, owner Owner, opts ListOptions) ([]PersonalGoal, error)

	CreateDream(ctx context.Context, d *Dream) error
	GetDream(ctx context.Context, id uuid.UUID) (*Dream, error)
	ListDreams(ctx context.Context, owner Owner, opts ListOptions) ([]Dream, error)

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, fields Fields) error
	ListCategories(ctx context.Context, studentID uuid.UUID) ([]Category, error)

	CreateTemplate(ctx context.Context, t *PageTemplate) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*PageTemplate, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]PageTemplate, error)

	CreatePage(ctx context.Context, p *PortfolioPage) error
	GetPage(ctx context.Context, id uuid.UUID) (*PortfolioPage, error)
	UpdatePage(ctx context.Context, id uuid.UUID, fields Fields) error
	ListPages(ctx context.Context, q PageQuery) ([]PortfolioPage, error)

	CreatePageFile(ctx context.Context, f *PageFile) error
	GetPageFile(ctx context.Context, id uuid.UUID) (*PageFile, error)
	ListPageFiles(ctx context.Context, pageID uuid.UUID) ([]PageFile, error)

	CreateCalendarEntry(ctx context.Context, e *CalendarEntry) error
	GetCalendarEntry(ctx context.Context, id uuid.UUID) (*CalendarEntry, error)
	UpdateCalendarEntry(ctx context.Context, id uuid.UUID, fields Fields) error
	ListCalendarEntries(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]CalendarEntry, error)

	CreateSharedLink(ctx context.Context, l *SharedLink) error
	GetSharedLink(ctx context.Context, id uuid.UUID) (*SharedLink, error)
	GetSharedLinkByToken(ctx context.Context, token string) (*SharedLink, error)
	ShareTokenExists(ctx context.Context, token string) (bool, error)
	UpdateSharedLink(ctx context.Context, id uuid.UUID, fields Fields) error
	ListSharedLinks(ctx context.Context, studentID uuid.UUID) ([]SharedLink, error)
	// RecordSharedLinkView 以单条条件更新将 view_count 加 1，同时复查 is_active 与 expires_at。
	// 链接在 now 时刻已不可用时返回 false。
	RecordSharedLinkView(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	CreateShareRequest(ctx context.Context, r *ShareRequest) error
	GetShareRequest(ctx context.Context, id uuid.UUID) (*ShareRequest, error)
	ListShareRequests(ctx context.Context, q ShareRequestQuery) ([]ShareRequest, error)
	// TransitionShareRequest 仅当请求仍处于 from 状态时才转换，返回是否发生变更。
	TransitionShareRequest(ctx context.Context, id uuid.UUID, from, to RequestStatus, at time.Time) (bool, error)

	CreateMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	ListMessages(ctx context.Context, q MessageQuery) ([]Message, error)
	// MarkMessageRead 将 is_read 从 false 置为 true，返回是否发生变更。
	MarkMessageRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	Delete(ctx context.Context, kind Kind, id uuid.UUID) error
	// DeleteWhere 删除 column 等于 value 的全部记录。
	DeleteWhere(ctx context.Context, kind Kind, column string, value any) (int64, error)
	// ClearReference 将指向 id 的 column 置空。
	ClearReference(ctx context.Context, kind Kind, column string, id uuid.UUID) (int64, error)
}

// BlobStore 存放头像与页面附件。
type BlobStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, objectKey string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// Purger 在记录删除后清理某个前缀下的全部对象。
type Purger interface {
	PurgePrefix(ctx context.Context, prefix string) error
}

// Notifier 在消息提交后接收通知。
type Notifier interface {
	NotifyMessage(ctx context.Context, m *Message) error
}

// PasswordHasher 负责分享链接密码的哈希与校验。
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPasswordHash(password, hash string) bool
}
