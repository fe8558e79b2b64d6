package portfolio

type FieldKind string

const (
	TypeUUID     FieldKind = "uuid"
	TypeString   FieldKind = "string"
	TypeText     FieldKind = "text"
	TypeBool     FieldKind = "bool"
	TypeInt      FieldKind = "int"
	TypeDate     FieldKind = "date"
	TypeDateTime FieldKind = "datetime"
	TypeJSON     FieldKind = "json"
	TypeEnum     FieldKind = "enum"
	TypeOwner    FieldKind = "owner"
)

type DeleteRule string

const (
	Cascade DeleteRule = "CASCADE"
	SetNull DeleteRule = "SET NULL"
)

// FieldSchema 描述实体的一个字段。
type FieldSchema struct {
	Name     string     `json:"name"`
	Type     FieldKind  `json:"type"`
	Required bool       `json:"required"`
	Enum     []string   `json:"enum,omitempty"`
	MinLen   int        `json:"min_length,omitempty"`
	MaxLen   int        `json:"max_length,omitempty"`
	Ref      Kind       `json:"references,omitempty"`
	OnDelete DeleteRule `json:"on_delete,omitempty"`
}

type EntitySchema struct {
	Kind   Kind          `json:"kind"`
	Fields []FieldSchema `json:"fields"`
}

var kinds = []Kind{
	KindStudent, KindTeacher, KindPersonalGoal, KindDream, KindCategory, KindPageTemplate,
	KindPortfolioPage, KindPageFile, KindCalendarEntry, KindSharedLink, KindShareRequest, KindMessage,
}

// Kinds 按依赖顺序列出全部实体类型。
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func base(fields ...FieldSchema) []FieldSchema {
	out := []FieldSchema{{Name: "id", Type: TypeUUID, Required: true}}
	out = append(out, fields...)
	return append(out,
		FieldSchema{Name: "created_at", Type: TypeDateTime},
		FieldSchema{Name: "updated_at", Type: TypeDateTime},
	)
}

var (
	goalTypes      = []string{string(GoalShortTerm), string(GoalLongTerm), string(GoalLifelong)}
	templateTypes  = []string{string(TemplateFreeForm), string(TemplateWorkSheet), string(TemplateProject), string(TemplateReflection)}
	visibilities   = []string{string(VisibilityPrivate), string(VisibilityShared)}
	entryTypes     = []string{string(EntryPlan), string(EntryEvent), string(EntryGoalDeadline), string(EntryReflection)}
	shareTypes     = []string{string(ShareFullPortfolio), string(ShareCategory), string(ShareSinglePage)}
	requestStatus  = []string{string(RequestPending), string(RequestApproved), string(RequestRejected)}
	messageTypes   = []string{string(MessageText), string(MessageShareRequest), string(MessageSystem)}
	ownerReference = FieldSchema{Name: "owner", Type: TypeOwner, Required: true, OnDelete: Cascade}
)

var schemas = map[Kind]EntitySchema{
	KindStudent: {Kind: KindStudent, Fields: base(
		FieldSchema{Name: "account_id", Type: TypeUUID, Required: true},
		FieldSchema{Name: "first_name", Type: TypeString, Required: true, MinLen: 2, MaxLen: 100},
		FieldSchema{Name: "last_name", Type: TypeString, Required: true, MinLen: 2, MaxLen: 100},
		FieldSchema{Name: "avatar", Type: TypeString},
		FieldSchema{Name: "date_of_birth", Type: TypeDate},
	)},
	KindTeacher: {Kind: KindTeacher, Fields: base(
		FieldSchema{Name: "account_id", Type: TypeUUID, Required: true},
		FieldSchema{Name: "first_name", Type: TypeString, Required: true, MinLen: 2, MaxLen: 100},
		FieldSchema{Name: "last_name", Type: TypeString, Required: true, MinLen: 2, MaxLen: 100},
		FieldSchema{Name: "avatar", Type: TypeString},
		FieldSchema{Name: "bio", Type: TypeText},
	)},
	KindPersonalGoal: {Kind: KindPersonalGoal, Fields: base(
		ownerReference,
		FieldSchema{Name: "title", Type: TypeString, Required: true, MinLen: 3, MaxLen: 255},
		FieldSchema{Name: "description", Type: TypeText},
		FieldSchema{Name: "goal_type", Type: TypeEnum, Required: true, Enum: goalTypes},
		FieldSchema{Name: "completed", Type: TypeBool},
		FieldSchema{Name: "target_date", Type: TypeDate},
		FieldSchema{Name: "completed_date", Type: TypeDate},
	)},
	KindDream: {Kind: KindDream, Fields: base(
		ownerReference,
		FieldSchema{Name: "title", Type: TypeString, Required: true, MinLen: 3, MaxLen: 255},
		FieldSchema{Name: "description", Type: TypeText},
	)},
	KindCategory: {Kind: KindCategory, Fields: base(
		FieldSchema{Name: "student_id", Type: TypeUUID, Required: true, Ref: KindStudent, OnDelete: Cascade},
		FieldSchema{Name: "name", Type: TypeString, Required: true, MinLen: 2, MaxLen: 100},
		FieldSchema{Name: "parent_category_id", Type: TypeUUID, Ref: KindCategory, OnDelete: SetNull},
		FieldSchema{Name: "is_predefined", Type: TypeBool},
		FieldSchema{Name: "sort_order", Type: TypeInt},
	)},
	KindPageTemplate: {Kind: KindPageTemplate, Fields: base(
		FieldSchema{Name: "name", Type: TypeString, Required: true, MaxLen: 255},
		FieldSchema{Name: "description", Type: TypeText},
		FieldSchema{Name: "template_type", Type: TypeEnum, Required: true, Enum: templateTypes},
		FieldSchema{Name: "structure_schema", Type: TypeJSON},
		FieldSchema{Name: "is_active", Type: TypeBool},
	)},
	KindPortfolioPage: {Kind: KindPortfolioPage, Fields: base(
		FieldSchema{Name: "student_id", Type: TypeUUID, Required: true, Ref: KindStudent, OnDelete: Cascade},
		FieldSchema{Name: "title", Type: TypeString, Required: true, MinLen: 3, MaxLen: 255},
		FieldSchema{Name: "template_id", Type: TypeUUID, Ref: KindPageTemplate, OnDelete: SetNull},
		FieldSchema{Name: "category_id", Type: TypeUUID, Ref: KindCategory, OnDelete: SetNull},
		FieldSchema{Name: "content", Type: TypeText},
		FieldSchema{Name: "structured_data", Type: TypeJSON},
		FieldSchema{Name: "visibility", Type: TypeEnum, Required: true, Enum: visibilities},
		FieldSchema{Name: "sort_order", Type: TypeInt},
	)},
	KindPageFile: {Kind: KindPageFile, Fields: base(
		FieldSchema{Name: "page_id", Type: TypeUUID, Required: true, Ref: KindPortfolioPage, OnDelete: Cascade},
		FieldSchema{Name: "object_key", Type: TypeString, Required: true, MaxLen: 512},
		FieldSchema{Name: "file_name", Type: TypeString, MaxLen: 255},
		FieldSchema{Name: "content_type", Type: TypeString, MaxLen: 128},
		FieldSchema{Name: "size", Type: TypeInt},
	)},
	KindCalendarEntry: {Kind: KindCalendarEntry, Fields: base(
		FieldSchema{Name: "student_id", Type: TypeUUID, Required: true, Ref: KindStudent, OnDelete: Cascade},
		FieldSchema{Name: "date", Type: TypeDate, Required: true},
		FieldSchema{Name: "title", Type: TypeString, MaxLen: 255},
		FieldSchema{Name: "description", Type: TypeText},
		FieldSchema{Name: "entry_type", Type: TypeEnum, Required: true, Enum: entryTypes},
		FieldSchema{Name: "related_goal_id", Type: TypeUUID, Ref: KindPersonalGoal, OnDelete: SetNull},
		FieldSchema{Name: "completed", Type: TypeBool},
	)},
	KindSharedLink: {Kind: KindSharedLink, Fields: base(
		FieldSchema{Name: "student_id", Type: TypeUUID, Required: true, Ref: KindStudent, OnDelete: Cascade},
		FieldSchema{Name: "share_token", Type: TypeString, Required: true, MinLen: 32, MaxLen: 32},
		FieldSchema{Name: "share_type", Type: TypeEnum, Required: true, Enum: shareTypes},
		FieldSchema{Name: "category_id", Type: TypeUUID, Ref: KindCategory, OnDelete: SetNull},
		FieldSchema{Name: "page_id", Type: TypeUUID, Ref: KindPortfolioPage, OnDelete: SetNull},
		FieldSchema{Name: "password_hash", Type: TypeString},
		FieldSchema{Name: "expires_at", Type: TypeDateTime},
		FieldSchema{Name: "view_count", Type: TypeInt},
		FieldSchema{Name: "is_active", Type: TypeBool},
	)},
	KindShareRequest: {Kind: KindShareRequest, Fields: base(
		FieldSchema{Name: "student_id", Type: TypeUUID, Required: true, Ref: KindStudent, OnDelete: Cascade},
		FieldSchema{Name: "teacher_id", Type: TypeUUID, Required: true, Ref: KindTeacher, OnDelete: Cascade},
		FieldSchema{Name: "share_type", Type: TypeEnum, Required: true, Enum: shareTypes},
		FieldSchema{Name: "category_id", Type: TypeUUID, Ref: KindCategory, OnDelete: SetNull},
		FieldSchema{Name: "page_id", Type: TypeUUID, Ref: KindPortfolioPage, OnDelete: SetNull},
		FieldSchema{Name: "message", Type: TypeText},
		FieldSchema{Name: "status", Type: TypeEnum, Required: true, Enum: requestStatus},
		FieldSchema{Name: "decided_at", Type: TypeDateTime},
	)},
	KindMessage: {Kind: KindMessage, Fields: base(
		FieldSchema{Name: "from_user_id", Type: TypeUUID, Required: true},
		FieldSchema{Name: "to_user_id", Type: TypeUUID, Required: true},
		FieldSchema{Name: "message_type", Type: TypeEnum, Required: true, Enum: messageTypes},
		FieldSchema{Name: "subject", Type: TypeString, MaxLen: 255},
		FieldSchema{Name: "content", Type: TypeText, Required: true},
		FieldSchema{Name: "share_request_id", Type: TypeUUID, Ref: KindShareRequest, OnDelete: SetNull},
		FieldSchema{Name: "is_read", Type: TypeBool},
		FieldSchema{Name: "read_at", Type: TypeDateTime},
	)},
}

// SchemaOf 返回实体类型的字段定义。
func SchemaOf(kind Kind) (EntitySchema, bool) {
	s, ok := schemas[kind]
	if !ok {
		return EntitySchema{}, false
	}
	s.Fields = append([]FieldSchema(nil), s.Fields...)
	return s, true
}

// Dependents 列出引用 kind 的其他实体字段及删除时适用的规则。
func Dependents(kind Kind) []Dependent {
	var out []Dependent
	for _, k := range kinds {
		for _, f := range schemas[k].Fields {
			if f.Ref == kind && f.OnDelete != "" {
				out = append(out, Dependent{Kind: k, Field: f.Name, Rule: f.OnDelete})
			}
		}
	}
	return out
}

type Dependent struct {
	Kind  Kind       `json:"kind"`
	Field string     `json:"field"`
	Rule  DeleteRule `json:"rule"`
}
