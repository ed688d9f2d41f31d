package validator

import (
	stderrors "errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ binding.StructValidator = (*Validator)(nil)

type chatRequest struct {
	Question string `json:"question" binding:"notblank"`
}

type personalizeRequest struct {
	Text     string `json:"text" binding:"required"`
	Hardware string `json:"hardware" binding:"required,oneof=cpu gpu"`
}

func TestGlobal(t *testing.T) {
	v1 := Global()
	require.NotNil(t, v1)
	assert.Same(t, v1, Global())

	custom := New()
	SetGlobal(custom)
	t.Cleanup(func() { SetGlobal(v1) })
	assert.Same(t, custom, Global())
}

func TestValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   any
		wantErr bool
	}{
		{name: "有效问题", input: chatRequest{Question: "what is ROS?"}, wantErr: false},
		{name: "空问题", input: chatRequest{Question: ""}, wantErr: true},
		{name: "空白问题", input: &chatRequest{Question: " \t\n"}, wantErr: true},
		{name: "有效硬件", input: personalizeRequest{Text: "x", Hardware: "gpu"}, wantErr: false},
		{name: "未知硬件", input: personalizeRequest{Text: "x", Hardware: "tpu"}, wantErr: true},
		{name: "非结构体", input: []string{"a"}, wantErr: false},
		{name: "nil 指针", input: (*chatRequest)(nil), wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateWithLang(t *testing.T) {
	v := New()
	invalid := personalizeRequest{Hardware: "tpu"}

	t.Run("英文", func(t *testing.T) {
		errs := v.ValidateWithLang(invalid, LangEN)
		require.True(t, errs.HasErrors())
		assert.Equal(t, 2, errs.Count())
		assert.Equal(t, "text", errs.FirstField())
		assert.Equal(t, "text is a required field", errs.First())
		assert.Equal(t, "hardware must be one of [cpu gpu]", errs.Messages()[1])
	})

	t.Run("中文", func(t *testing.T) {
		errs := v.ValidateWithLang(invalid, LangZH)
		require.True(t, errs.HasErrors())
		assert.Equal(t, "text为必填字段", errs.First())
	})

	t.Run("未知语言回退英文", func(t *testing.T) {
		errs := v.ValidateWithLang(invalid, "fr")
		assert.Equal(t, "text is a required field", errs.First())
	})

	t.Run("有效结构体", func(t *testing.T) {
		assert.Nil(t, v.ValidateWithLang(personalizeRequest{Text: "x", Hardware: "cpu"}, LangEN))
	})
}

func TestCustomRuleTranslation(t *testing.T) {
	v := New()
	errs := v.ValidateWithLang(chatRequest{Question: "  "}, LangEN)
	assert.Equal(t, "question must not be empty", errs.First())

	errs = v.ValidateWithLang(chatRequest{}, LangZH)
	assert.Equal(t, "question不能为空", errs.First())
}

func TestValidateVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateVar("  ok", "notblank"))
	assert.Error(t, v.ValidateVar("  ok", "trimmed"))

	errs := v.ValidateVarWithLang("", "required", LangEN)
	require.True(t, errs.HasErrors())
	assert.Empty(t, errs.FirstField())
}

func TestTranslateForeignError(t *testing.T) {
	v := New()
	errs := v.Translate(stderrors.New("unexpected EOF"), LangEN)
	assert.Equal(t, "unexpected EOF", errs.First())
	assert.Nil(t, v.Translate(nil, LangEN))
}

func TestRegisterValidationWithTranslation(t *testing.T) {
	v := New()
	err := v.RegisterValidationWithTranslation("magic", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "please"
	}, map[string]string{
		LangEN: "{0} must be the magic word",
		LangZH: "{0}必须是魔法词",
	})
	require.NoError(t, err)

	type magicRequest struct {
		Word string `json:"word" binding:"magic"`
	}
	assert.NoError(t, v.Validate(magicRequest{Word: "please"}))
	assert.Equal(t, "word must be the magic word", v.ValidateWithLang(magicRequest{Word: "now"}, LangEN).First())
	assert.Equal(t, "word必须是魔法词", v.ValidateWithLang(magicRequest{Word: "now"}, LangZH).First())
}

func TestValidationErrorsError(t *testing.T) {
	var nilErrs *ValidationErrors
	assert.Equal(t, "", nilErrs.Error())
	assert.Equal(t, 0, nilErrs.Count())

	errs := &ValidationErrors{Errors: []FieldError{
		{Field: "text", Message: "text is a required field"},
		{Field: "hardware", Message: "hardware must be one of [cpu gpu]"},
	}}
	assert.Equal(t, "validation failed: text is a required field; hardware must be one of [cpu gpu]", errs.Error())
}
