package portfolio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const notBlankTag = "notblank"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// 错误路径使用 JSON 字段名。
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Owner 字段不可导出，按文本形式校验，使 required 能拒绝零值。
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		if o, ok := v.Interface().(Owner); ok {
			return o.String()
		}
		return nil
	}, Owner{})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(ut.Translator, validator.FieldError) string { return "this field cannot be blank" })
}

// Validate 按实体类型校验记录，返回列出全部问题的 *ValidationError，或 nil。
func Validate(rec Record) error {
	if rec == nil {
		return errors.New("validate: nil record")
	}
	fields := structViolations(rec)
	switch r := rec.(type) {
	case *PortfolioPage:
		fields = append(fields, jsonObjectViolations("structured_data", r.StructuredData)...)
	case *PageTemplate:
		if _, err := r.Fields(); err != nil {
			fields = append(fields, FieldError{Field: "structure_schema", Tag: "schema", Message: err.Error()})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return invalid(rec.Kind(), fields...)
}

// ValidatePage 校验页面；提供 tmpl 时还检查 structured_data 是否包含模板的必填字段。
func ValidatePage(p *PortfolioPage, tmpl *PageTemplate) error {
	var fields []FieldError
	if err := Validate(p); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		fields = ve.Fields
	}
	if tmpl != nil {
		fields = append(fields, templateViolations(p.StructuredData, tmpl)...)
	}
	if len(fields) == 0 {
		return nil
	}
	return invalid(KindPortfolioPage, fields...)
}

func structViolations(rec Record) []FieldError {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Tag: "invalid", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: fe.Translate(translator)})
	}
	return out
}

func jsonObjectViolations(field string, raw []byte) []FieldError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return []FieldError{{Field: field, Tag: "object", Message: field + " must be a JSON object"}}
	}
	return nil
}

func templateViolations(raw []byte, tmpl *PageTemplate) []FieldError {
	tfields, err := tmpl.Fields()
	if err != nil || len(tfields) == 0 {
		return nil
	}
	values := map[string]json.RawMessage{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &values); err != nil {
			// 非对象的情况已在 Validate 中报告
			return nil
		}
	}
	var out []FieldError
	for _, tf := range tfields {
		v, ok := values[tf.Name]
		path := "structured_data." + tf.Name
		if !ok || isBlankJSON(v) {
			if tf.Required {
				out = append(out, FieldError{Field: path, Tag: "required", Message: fmt.Sprintf("%s is a required field", tf.Label)})
			}
			continue
		}
		if (tf.Type == FieldText || tf.Type == FieldTextarea) && !isJSONString(v) {
			out = append(out, FieldError{Field: path, Tag: "string", Message: fmt.Sprintf("%s must be text", tf.Label)})
		}
	}
	return out
}

func isBlankJSON(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return true
	}
	var s string
	if json.Unmarshal(t, &s) == nil {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func isJSONString(v json.RawMessage) bool {
	var s string
	return json.Unmarshal(v, &s) == nil
}
