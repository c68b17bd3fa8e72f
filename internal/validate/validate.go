// Package validate checks user input before it reaches the write gateway.
package validate

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	"github.com/dukerupert/classdesk/internal/apperr"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/schedule"
)

const (
	notBlankTag = "notblank"
	clockTag    = "clock"
	weekdayTag  = "weekday"
	endAfterTag = "end_after_start"
)

// ConfirmReset is the phrase an account reset must be confirmed with.
const ConfirmReset = "DELETE-MY-DATA"

var (
	v          *validator.Validate
	translator ut.Translator
)

func init() {
	v = validator.New()

	eng := en.New()
	uni := ut.New(eng, eng)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(clockTag, clock)
	_ = v.RegisterValidation(weekdayTag, weekday)
	v.RegisterStructValidation(entryStructValidation, EntryInput{})

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, clockTag, weekdayTag, endAfterTag} {
		_ = v.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case clockTag:
		return "must be a time in HH:MM format"
	case weekdayTag:
		return "must be a day name such as Monday"
	case endAfterTag:
		return "end time must be after start time"
	}
	return ""
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func clock(fl validator.FieldLevel) bool {
	_, err := schedule.ParseClock(fl.Field().String())
	return err == nil
}

func weekday(fl validator.FieldLevel) bool {
	return model.Weekday(fl.Field().String()).Valid()
}

func entryStructValidation(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(EntryInput)
	if !ok {
		return
	}
	start, err := schedule.ParseClock(in.StartTime)
	if err != nil {
		return
	}
	end, err := schedule.ParseClock(in.EndTime)
	if err != nil {
		return
	}
	if end <= start {
		sl.ReportError(in.EndTime, "endTime", "EndTime", endAfterTag, "")
	}
}

// EntryInput is the editable part of an entry.
type EntryInput struct {
	Days      []model.Weekday `json:"days" validate:"min=1,dive,weekday"`
	StartTime string          `json:"startTime" validate:"required,clock"`
	EndTime   string          `json:"endTime" validate:"required,clock"`
	Subject   string          `json:"subject" validate:"notblank,max=100"`
	Location  string          `json:"location" validate:"max=100"`
	Color     string          `json:"color" validate:"omitempty,len=7,hexcolor"`
}

// Apply copies the input onto e.
func (in EntryInput) Apply(e *model.Entry) {
	e.Days = dedupeDays(in.Days)
	e.StartTime = in.StartTime
	e.EndTime = in.EndTime
	e.Subject = strings.TrimSpace(in.Subject)
	e.Location = strings.TrimSpace(in.Location)
	e.Color = in.Color
}

func dedupeDays(days []model.Weekday) []model.Weekday {
	seen := make(map[model.Weekday]bool, len(days))
	out := make([]model.Weekday, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

type TodoInput struct {
	Text string `json:"text" validate:"notblank,max=500"`
}

type CustomDurationInput struct {
	Minutes int `json:"minutes" validate:"min=1,max=180"`
}

type ModeInput struct {
	Mode      string `json:"mode" validate:"oneof=focus short_break long_break custom"`
	Confirmed bool   `json:"confirmed"`
}

type CredentialsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SettingsInput struct {
	Theme                *string `json:"theme" validate:"omitempty,oneof=light dark system"`
	NotificationsEnabled *bool   `json:"notificationsEnabled"`
	OnboardingSeen       *bool   `json:"onboardingSeen"`
}

type SubscriptionInput struct {
	Endpoint   string `json:"endpoint" validate:"required,url,max=2048"`
	P256dh     string `json:"p256dh" validate:"required,max=256"`
	Auth       string `json:"auth" validate:"required,max=256"`
	DeviceName string `json:"deviceName" validate:"max=100"`
}

type PermissionInput struct {
	Permission string `json:"permission" validate:"oneof=default granted denied"`
}

type ResetInput struct {
	Confirm string `json:"confirm" validate:"eq=DELETE-MY-DATA"`
}

// Struct validates s and converts failures into an apperr validation error
// labelled with op.
func Struct(op string, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, op, err)
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field:   fieldName(fe),
			Message: fe.Translate(translator),
		})
	}
	return apperr.Validation(op, fields...)
}

// fieldName strips the struct prefix, keeping slice indexes: "days[1]".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
