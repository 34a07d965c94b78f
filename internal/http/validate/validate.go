// Package validate checks request bodies with go-playground/validator and
// renders failures in Traditional Chinese, naming fields by their json tag.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/zh_Hant_TW"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_tw_translations "github.com/go-playground/validator/v10/translations/zh_tw"
)

var (
	Validator *validator.Validate
	Trans     ut.Translator
)

var fieldNames = map[string]string{
	"subject":        "科目",
	"grade":          "年級",
	"unit":           "單元",
	"generation_id":  "生成編號",
	"chapter_number": "章節編號",
}

func init() {
	Validator = validator.New(validator.WithRequiredStructEnabled())
	Validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := zh_Hant_TW.New()
	uni := ut.New(locale, locale)
	Trans, _ = uni.GetTranslator("zh_Hant_TW")
	if err := zh_tw_translations.RegisterDefaultTranslations(Validator, Trans); err != nil {
		panic(err)
	}

	register := func(tag, msg string) {
		_ = Validator.RegisterTranslation(tag, Trans, func(t ut.Translator) error {
			return t.Add(tag, msg, true)
		}, func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fieldLabel(fe.Field()), fe.Param())
			return s
		})
	}
	register("required", "{0}為必填欄位")
	register("max", "{0}長度不能超過{1}個字元")
	register("gt", "{0}必須大於{1}")
	register("notblank", "{0}不能只包含空白")

	_ = Validator.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func fieldLabel(json string) string {
	if label, ok := fieldNames[json]; ok {
		return label
	}
	return json
}

// Struct validates v. A failure comes back as one error joining every field
// message with "；".
func Struct(v any) error {
	err := Validator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(Trans))
	}
	return errors.New(strings.Join(msgs, "；"))
}
