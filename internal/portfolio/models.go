package portfolio

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Kind 标识实体集合，取值同时作为表名。
type Kind string

const (
	KindStudent       Kind = "students"
	KindTeacher       Kind = "teachers"
	KindPersonalGoal  Kind = "personal_goals"
	KindDream         Kind = "dreams"
	KindCategory      Kind = "categories"
	KindPageTemplate  Kind = "page_templates"
	KindPortfolioPage Kind = "portfolio_pages"
	KindPageFile      Kind = "portfolio_pages_files"
	KindCalendarEntry Kind = "calendar_entries"
	KindSharedLink    Kind = "shared_links"
	KindShareRequest  Kind = "share_requests"
	KindMessage       Kind = "messages"
)

type GoalType string

const (
	GoalShortTerm GoalType = "short_term"
	GoalLongTerm  GoalType = "long_term"
	GoalLifelong  GoalType = "lifelong"
)

type TemplateType string

const (
	TemplateFreeForm   TemplateType = "free_form"
	TemplateWorkSheet  TemplateType = "work_sheet"
	TemplateProject    TemplateType = "project"
	TemplateReflection TemplateType = "reflection"
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
)

type EntryType string

const (
	EntryPlan         EntryType = "plan"
	EntryEvent        EntryType = "event"
	EntryGoalDeadline EntryType = "goal_deadline"
	EntryReflection   EntryType = "reflection"
)

type ShareType string

const (
	ShareFullPortfolio ShareType = "full_portfolio"
	ShareCategory      ShareType = "category"
	ShareSinglePage    ShareType = "single_page"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type MessageType string

const (
	MessageText         MessageType = "text"
	MessageShareRequest MessageType = "share_request"
	MessageSystem       MessageType = "system"
)

// Record 由所有持久化实体实现。
type Record interface {
	Kind() Kind
}

// Model 是所有集合共有的列。
type Model struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Student 表示学生档案，与身份提供方账号一一对应。
type Student struct {
	Model
	AccountID   uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"account_id" validate:"required"`
	FirstName   string     `gorm:"size:100;not null" json:"first_name" validate:"required,notblank,min=2,max=100"`
	LastName    string     `gorm:"size:100;not null" json:"last_name" validate:"required,notblank,min=2,max=100"`
	Avatar      *string    `gorm:"size:512" json:"avatar,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// Teacher 表示教师档案，与身份提供方账号一一对应。
type Teacher struct {
	Model
	AccountID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"account_id" validate:"required"`
	FirstName string    `gorm:"size:100;not null" json:"first_name" validate:"required,notblank,min=2,max=100"`
	LastName  string    `gorm:"size:100;not null" json:"last_name" validate:"required,notblank,min=2,max=100"`
	Avatar    *string   `gorm:"size:512" json:"avatar,omitempty"`
	Bio       string    `gorm:"type:text" json:"bio,omitempty"`
}

// PersonalGoal 归属于学生或教师。
// CompletedDate 仅在 Completed 为 true 时有意义，不做强制校验。
type PersonalGoal struct {
	Model
	Owner         Owner      `gorm:"column:owner;size:80;index;not null" json:"owner" validate:"required"`
	Title         string     `gorm:"size:255;not null" json:"title" validate:"required,notblank,min=3,max=255"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	GoalType      GoalType   `gorm:"size:32;not null" json:"goal_type" validate:"required,oneof=short_term long_term lifelong"`
	Completed     bool       `gorm:"not null" json:"completed"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
}

type Dream struct {
	Model
	Owner       Owner  `gorm:"column:owner;size:80;index;not null" json:"owner" validate:"required"`
	Title       string `gorm:"size:255;not null" json:"title" validate:"required,notblank,min=3,max=255"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

// Category 归属于单个学生，可通过 ParentCategoryID 嵌套。
type Category struct {
	Model
	StudentID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"student_id" validate:"required"`
	Name             string     `gorm:"size:100;not null" json:"name" validate:"required,notblank,min=2,max=100"`
	ParentCategoryID *uuid.UUID `gorm:"type:uuid;index" json:"parent_category_id,omitempty"`
	IsPredefined     bool       `gorm:"not null" json:"is_predefined"`
	SortOrder        int        `gorm:"not null" json:"sort_order" validate:"gte=0"`
}

// PageTemplate 是全局只读的页面模板目录。
type PageTemplate struct {
	Model
	Name            string         `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	TemplateType    TemplateType   `gorm:"size:32;not null" json:"template_type" validate:"required,oneof=free_form work_sheet project reflection"`
	StructureSchema datatypes.JSON `json:"structure_schema,omitempty"`
	IsActive        bool           `gorm:"not null" json:"is_active"`
}

type PortfolioPage struct {
	Model
	StudentID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"student_id" validate:"required"`
	Title          string         `gorm:"size:255;not null" json:"title" validate:"required,notblank,min=3,max=255"`
	TemplateID     *uuid.UUID     `gorm:"type:uuid;index" json:"template_id,omitempty"`
	CategoryID     *uuid.UUID     `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Content        string         `gorm:"type:text" json:"content,omitempty"`
	StructuredData datatypes.JSON `json:"structured_data,omitempty"`
	Visibility     Visibility     `gorm:"size:16;not null" json:"visibility" validate:"required,oneof=private shared"`
	SortOrder      int            `gorm:"not null" json:"sort_order" validate:"gte=0"`
}

// PageFile 将对象存储中的文件挂到作品集页面上（portfolio_pages_files）。
type PageFile struct {
	Model
	PageID      uuid.UUID `gorm:"type:uuid;index;not null" json:"page_id" validate:"required"`
	ObjectKey   string    `gorm:"size:512;not null" json:"object_key" validate:"required,max=512"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Size        int64     `gorm:"not null" json:"size" validate:"gte=0"`
}

type CalendarEntry struct {
	Model
	StudentID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"student_id" validate:"required"`
	Date          time.Time  `gorm:"index;not null" json:"date" validate:"required"`
	Title         string     `gorm:"size:255" json:"title,omitempty" validate:"max=255"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	EntryType     EntryType  `gorm:"size:32;not null" json:"entry_type" validate:"required,oneof=plan event goal_deadline reflection"`
	RelatedGoalID *uuid.UUID `gorm:"type:uuid;index" json:"related_goal_id,omitempty"`
	Completed     bool       `gorm:"not null" json:"completed"`
}

// SharedLink 通过令牌授予对学生作品集某个范围的只读访问。
type SharedLink struct {
	Model
	StudentID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"student_id" validate:"required"`
	ShareToken   string     `gorm:"size:64;uniqueIndex;not null" json:"share_token" validate:"required,len=32,hexadecimal"`
	ShareType    ShareType  `gorm:"size:32;not null" json:"share_type" validate:"required,oneof=full_portfolio category single_page"`
	CategoryID   *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	PageID       *uuid.UUID `gorm:"type:uuid;index" json:"page_id,omitempty"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ViewCount    int64      `gorm:"not null" json:"view_count" validate:"gte=0"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
}

func (l SharedLink) HasPassword() bool { return l.PasswordHash != "" }

// Usable 判断链接在 now 时刻是否可用。
func (l SharedLink) Usable(now time.Time) bool {
	return l.IsActive && (l.ExpiresAt == nil || l.ExpiresAt.After(now))
}

func (l SharedLink) Scope() Scope {
	return Scope{Type: l.ShareType, CategoryID: l.CategoryID, PageID: l.PageID}
}

// ShareRequest 请求教师接收学生某个范围内容的分享。
type ShareRequest struct {
	Model
	StudentID  uuid.UUID     `gorm:"type:uuid;index;not null" json:"student_id" validate:"required"`
	TeacherID  uuid.UUID     `gorm:"type:uuid;index;not null" json:"teacher_id" validate:"required"`
	ShareType  ShareType     `gorm:"size:32;not null" json:"share_type" validate:"required,oneof=full_portfolio category single_page"`
	CategoryID *uuid.UUID    `gorm:"type:uuid;index" json:"category_id,omitempty"`
	PageID     *uuid.UUID    `gorm:"type:uuid;index" json:"page_id,omitempty"`
	Message    string        `gorm:"type:text" json:"message,omitempty"`
	Status     RequestStatus `gorm:"size:16;index;not null" json:"status" validate:"required,oneof=pending approved rejected"`
	DecidedAt  *time.Time    `json:"decided_at,omitempty"`
}

func (r ShareRequest) Scope() Scope {
	return Scope{Type: r.ShareType, CategoryID: r.CategoryID, PageID: r.PageID}
}

// Message 在两个身份提供方账号之间传递。
type Message struct {
	Model
	FromUserID     uuid.UUID   `gorm:"type:uuid;index;not null" json:"from_user_id" validate:"required"`
	ToUserID       uuid.UUID   `gorm:"type:uuid;index;not null" json:"to_user_id" validate:"required"`
	MessageType    MessageType `gorm:"size:32;not null" json:"message_type" validate:"required,oneof=text share_request system"`
	Subject        string      `gorm:"size:255" json:"subject,omitempty" validate:"max=255"`
	Content        string      `gorm:"type:text;not null" json:"content" validate:"required"`
	ShareRequestID *uuid.UUID  `gorm:"type:uuid;index" json:"share_request_id,omitempty"`
	IsRead         bool        `gorm:"not null" json:"is_read"`
	ReadAt         *time.Time  `json:"read_at,omitempty"`
}

func (Student) Kind() Kind       { return KindStudent }
func (Teacher) Kind() Kind       { return KindTeacher }
func (PersonalGoal) Kind() Kind  { return KindPersonalGoal }
func (Dream) Kind() Kind         { return KindDream }
func (Category) Kind() Kind      { return KindCategory }
func (PageTemplate) Kind() Kind  { return KindPageTemplate }
func (PortfolioPage) Kind() Kind { return KindPortfolioPage }
func (PageFile) Kind() Kind      { return KindPageFile }
func (CalendarEntry) Kind() Kind { return KindCalendarEntry }
func (SharedLink) Kind() Kind    { return KindSharedLink }
func (ShareRequest) Kind() Kind  { return KindShareRequest }
func (Message) Kind() Kind       { return KindMessage }

func (Student) TableName() string       { return string(KindStudent) }
func (Teacher) TableName() string       { return string(KindTeacher) }
func (PersonalGoal) TableName() string  { return string(KindPersonalGoal) }
func (Dream) TableName() string         { return string(KindDream) }
func (Category) TableName() string      { return string(KindCategory) }
func (PageTemplate) TableName() string  { return string(KindPageTemplate) }
func (PortfolioPage) TableName() string { return string(KindPortfolioPage) }
func (PageFile) TableName() string      { return string(KindPageFile) }
func (CalendarEntry) TableName() string { return string(KindCalendarEntry) }
func (SharedLink) TableName() string    { return string(KindSharedLink) }
func (ShareRequest) TableName() string  { return string(KindShareRequest) }
func (Message) TableName() string       { return string(KindMessage) }
