package portfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
)

// TemplateField 描述结构化模板中的一个输入项。
type TemplateField struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

type templateSchema struct {
	Fields []TemplateField `json:"fields"`
}

// Fields 解析 StructureSchema，兼容 {"fields":[...]} 与裸数组两种形式；null 表示没有字段。
func (t PageTemplate) Fields() ([]TemplateField, error) {
	raw := bytes.TrimSpace(t.StructureSchema)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var fields []TemplateField
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode structure schema: %w", err)
		}
	} else {
		var s templateSchema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode structure schema: %w", err)
		}
		fields = s.Fields
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, errors.New("structure schema field without name")
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("duplicate structure schema field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Type {
		case FieldText, FieldTextarea:
		default:
			return nil, fmt.Errorf("structure schema field %q: unknown type %q", f.Name, f.Type)
		}
	}
	return fields, nil
}

func schemaJSON(fields ...TemplateField) datatypes.JSON {
	b, _ := json.Marshal(templateSchema{Fields: fields})
	return datatypes.JSON(b)
}

// DefaultTemplates 是内置的页面模板目录。
func DefaultTemplates() []PageTemplate {
	return []PageTemplate{
		{
			Name:         "Volná forma",
			Description:  "Prázdná stránka pro libovolný obsah - text, obrázky, videa.",
			TemplateType: TemplateFreeForm,
			IsActive:     true,
		},
		{
			Name:         "Pracovní list",
			Description:  "Šablona pro dokončené pracovní listy s místem na zadání a řešení.",
			TemplateType: TemplateWorkSheet,
			StructureSchema: schemaJSON(
				TemplateField{Name: "subject", Label: "Předmět", Type: FieldText, Required: true},
				TemplateField{Name: "topic", Label: "Téma", Type: FieldText, Required: true},
				TemplateField{Name: "assignment", Label: "Zadání", Type: FieldTextarea},
				TemplateField{Name: "solution", Label: "Moje řešení", Type: FieldTextarea},
				TemplateField{Name: "reflection", Label: "Co jsem se naučil/a", Type: FieldTextarea},
			),
			IsActive: true,
		},
		{
			Name:         "Projekt",
			Description:  "Šablona pro komplexní projekty s popisem, postupem a výsledky.",
			TemplateType: TemplateProject,
			StructureSchema: schemaJSON(
				TemplateField{Name: "project_name", Label: "Název projektu", Type: FieldText, Required: true},
				TemplateField{Name: "goal", Label: "Cíl projektu", Type: FieldTextarea, Required: true},
				TemplateField{Name: "duration", Label: "Doba realizace", Type: FieldText},
				TemplateField{Name: "process", Label: "Jak jsem postupoval/a", Type: FieldTextarea},
				TemplateField{Name: "results", Label: "Výsledky", Type: FieldTextarea},
				TemplateField{Name: "challenges", Label: "Výzvy a problémy", Type: FieldTextarea},
				TemplateField{Name: "learned", Label: "Co jsem se naučil/a", Type: FieldTextarea},
			),
			IsActive: true,
		},
		{
			Name:         "Reflexe",
			Description:  "Šablona pro zamyšlení nad prací, pokrokem nebo zkušeností.",
			TemplateType: TemplateReflection,
			StructureSchema: schemaJSON(
				TemplateField{Name: "activity", Label: "Aktivita/téma", Type: FieldText, Required: true},
				TemplateField{Name: "what_happened", Label: "Co se stalo", Type: FieldTextarea},
				TemplateField{Name: "feelings", Label: "Jak jsem se cítil/a", Type: FieldTextarea},
				TemplateField{Name: "learned", Label: "Co jsem zjistil/a", Type: FieldTextarea},
				TemplateField{Name: "next_steps", Label: "Co budu dělat příště", Type: FieldTextarea},
			),
			IsActive: true,
		},
	}
}

// SeedTemplates 安装尚不存在对应类型的默认模板，返回新建数量。
func (s *Service) SeedTemplates(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created := 0
	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.ListTemplates(ctx, false)
		if err != nil {
			return err
		}
		have := make(map[TemplateType]bool, len(existing))
		for _, t := range existing {
			have[t.TemplateType] = true
		}
		for _, t := range DefaultTemplates() {
			if have[t.TemplateType] {
				continue
			}
			t.ID = uuid.New()
			if err := Validate(&t); err != nil {
				return err
			}
			if err := tx.CreateTemplate(ctx, &t); err != nil {
				return fmt.Errorf("create template %s: %w", t.TemplateType, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]PageTemplate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListTemplates(ctx, true)
}

func (s *Service) Template(ctx context.Context, id uuid.UUID) (*PageTemplate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetTemplate(ctx, id)
}
