package portfolio

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func validationFields(t *testing.T, err error) *ValidationError {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %v", err)
	assert.ErrorIs(t, err, ErrValidation)
	return ve
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	err := Validate(&Student{FirstName: "   ", LastName: "X"})
	ve := validationFields(t, err)
	assert.Equal(t, KindStudent, ve.Kind)
	assert.True(t, ve.Has("account_id"))
	assert.True(t, ve.Has("first_name"))
	assert.True(t, ve.Has("last_name"))
	assert.Len(t, ve.Fields, 3)
}

func TestValidate_OwnerRequired(t *testing.T) {
	goal := &PersonalGoal{Title: "Read ten books", GoalType: GoalLongTerm}
	ve := validationFields(t, Validate(goal))
	assert.True(t, ve.Has("owner"))

	goal.Owner = StudentOwner(uuid.New())
	assert.NoError(t, Validate(goal))

	goal.GoalType = "someday"
	ve = validationFields(t, Validate(goal))
	assert.True(t, ve.Has("goal_type"))
}

func TestValidate_SharedLinkToken(t *testing.T) {
	link := &SharedLink{
		StudentID:  uuid.New(),
		ShareToken: "0123456789abcdef0123456789abcdef",
		ShareType:  ShareFullPortfolio,
	}
	assert.NoError(t, Validate(link))

	link.ShareToken = "short"
	link.ViewCount = -1
	ve := validationFields(t, Validate(link))
	assert.True(t, ve.Has("share_token"))
	assert.True(t, ve.Has("view_count"))
}

func TestValidate_StructuredDataMustBeObject(t *testing.T) {
	page := &PortfolioPage{
		StudentID:  uuid.New(),
		Title:      "My project",
		Visibility: VisibilityPrivate,
	}
	assert.NoError(t, Validate(page))

	page.StructuredData = datatypes.JSON(`null`)
	assert.NoError(t, Validate(page))

	page.StructuredData = datatypes.JSON(`[1,2]`)
	ve := validationFields(t, Validate(page))
	assert.True(t, ve.Has("structured_data"))
}

func TestValidatePage_TemplateFields(t *testing.T) {
	tmpl := &PageTemplate{
		Name:         "Reflection",
		TemplateType: TemplateReflection,
		StructureSchema: schemaJSON(
			TemplateField{Name: "what_went_well", Label: "What went well", Type: FieldTextarea, Required: true},
			TemplateField{Name: "next_steps", Label: "Next steps", Type: FieldText},
		),
	}
	page := &PortfolioPage{
		StudentID:      uuid.New(),
		Title:          "Week one",
		Visibility:     VisibilityShared,
		StructuredData: datatypes.JSON(`{"what_went_well":"  ","next_steps":3}`),
	}

	ve := validationFields(t, ValidatePage(page, tmpl))
	assert.Equal(t, KindPortfolioPage, ve.Kind)
	assert.True(t, ve.Has("structured_data.what_went_well"))
	assert.True(t, ve.Has("structured_data.next_steps"))

	page.StructuredData = datatypes.JSON(`{"what_went_well":"presentation"}`)
	assert.NoError(t, ValidatePage(page, tmpl))
	assert.NoError(t, ValidatePage(page, nil))
}

func TestTemplateFields(t *testing.T) {
	fields, err := PageTemplate{StructureSchema: datatypes.JSON(`[{"name":"a","label":"A","type":"text"}]`)}.Fields()
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Name)

	fields, err = PageTemplate{}.Fields()
	require.NoError(t, err)
	assert.Empty(t, fields)

	bad := []string{
		`{"fields":[{"name":"a","type":"text"},{"name":"a","type":"text"}]}`,
		`{"fields":[{"name":"a","type":"checkbox"}]}`,
		`{"fields":[{"type":"text"}]}`,
		`{"fields":`,
	}
	for _, raw := range bad {
		_, err := PageTemplate{StructureSchema: datatypes.JSON(raw)}.Fields()
		assert.Error(t, err, raw)
	}

	for _, tmpl := range DefaultTemplates() {
		assert.NoError(t, Validate(&tmpl), tmpl.Name)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, DefaultListLimit, clampLimit(-5))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxListLimit, clampLimit(MaxListLimit+1))
}
