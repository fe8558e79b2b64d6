package portfolio

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type OwnerKind string

const (
	OwnerStudent OwnerKind = "student"
	OwnerTeacher OwnerKind = "teacher"
)

// Owner 是 Student(id) 或 Teacher(id) 的标签联合。零值不属于任何人，校验不通过。
type Owner struct {
	kind OwnerKind
	id   uuid.UUID
}

func StudentOwner(id uuid.UUID) Owner { return Owner{kind: OwnerStudent, id: id} }
func TeacherOwner(id uuid.UUID) Owner { return Owner{kind: OwnerTeacher, id: id} }

// ParseOwner 解析 "student:<uuid>" / "teacher:<uuid>" 形式。
func ParseOwner(s string) (Owner, error) {
	kind, rawID, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Owner{}, fmt.Errorf("parse owner %q: missing kind", s)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Owner{}, fmt.Errorf("parse owner %q: %w", s, err)
	}
	switch OwnerKind(kind) {
	case OwnerStudent:
		return StudentOwner(id), nil
	case OwnerTeacher:
		return TeacherOwner(id), nil
	default:
		return Owner{}, fmt.Errorf("parse owner %q: unknown kind %q", s, kind)
	}
}

func (o Owner) Kind() OwnerKind { return o.kind }
func (o Owner) ID() uuid.UUID   { return o.id }

// Valid 判断 owner 是否指向具体的学生或教师。
func (o Owner) Valid() bool {
	return (o.kind == OwnerStudent || o.kind == OwnerTeacher) && o.id != uuid.Nil
}

func (o Owner) String() string {
	if !o.Valid() {
		return ""
	}
	return string(o.kind) + ":" + o.id.String()
}

// GormDataType 避免 gorm 将 Owner 当作关联处理。
func (Owner) GormDataType() string { return "string" }

// Value 将 owner 存为单个文本列。
func (o Owner) Value() (driver.Value, error) {
	if !o.Valid() {
		return nil, errors.New("invalid owner")
	}
	return o.String(), nil
}

func (o *Owner) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*o = Owner{}
		return nil
	default:
		return fmt.Errorf("scan owner: unsupported type %T", src)
	}
	parsed, err := ParseOwner(raw)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

type ownerJSON struct {
	Kind OwnerKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func (o Owner) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(ownerJSON{Kind: o.kind, ID: o.id})
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Owner{}
		return nil
	}
	var v ownerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Kind {
	case OwnerStudent:
		*o = StudentOwner(v.ID)
	case OwnerTeacher:
		*o = TeacherOwner(v.ID)
	default:
		return fmt.Errorf("unknown owner kind %q", v.Kind)
	}
	return nil
}
