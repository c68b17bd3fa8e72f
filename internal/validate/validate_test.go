package validate

import (
	"testing"

	"github.com/dukerupert/classdesk/internal/apperr"
	"github.com/dukerupert/classdesk/internal/model"
)

func validEntry() EntryInput {
	return EntryInput{
		Days:      []model.Weekday{model.Monday, model.Wednesday},
		StartTime: "09:00",
		EndTime:   "10:00",
		Subject:   "Math",
		Color:     "#3b82f6",
	}
}

func fieldSet(err error) map[string]string {
	out := make(map[string]string)
	for _, f := range apperr.FieldsOf(err) {
		out[f.Field] = f.Message
	}
	return out
}

func TestEntryValid(t *testing.T) {
	if err := Struct("entry.create", validEntry()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, color := range []string{"", "#3B82F6", "#000000"} {
		in := validEntry()
		in.Color = color
		if err := Struct("entry.create", in); err != nil {
			t.Errorf("color %q: unexpected error: %v", color, err)
		}
	}
}

func TestEntryInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EntryInput)
		field  string
	}{
		{"no days", func(in *EntryInput) { in.Days = nil }, "days"},
		{"bad day", func(in *EntryInput) { in.Days = []model.Weekday{"Funday"} }, "days[0]"},
		{"bad start", func(in *EntryInput) { in.StartTime = "9:00" }, "startTime"},
		{"missing end", func(in *EntryInput) { in.EndTime = "" }, "endTime"},
		{"end before start", func(in *EntryInput) { in.EndTime = "08:00" }, "endTime"},
		{"end equals start", func(in *EntryInput) { in.EndTime = "09:00" }, "endTime"},
		{"blank subject", func(in *EntryInput) { in.Subject = "   " }, "subject"},
		{"bad color", func(in *EntryInput) { in.Color = "blue" }, "color"},
		{"short hex color", func(in *EntryInput) { in.Color = "#abc" }, "color"},
		{"hex color with alpha", func(in *EntryInput) { in.Color = "#aabbccdd" }, "color"},
		{"rgb color", func(in *EntryInput) { in.Color = "rgb(1,2,3)" }, "color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validEntry()
			tt.mutate(&in)

			err := Struct("entry.create", in)
			if err == nil {
				t.Fatal("expected error")
			}
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("kind = %v, want validation", apperr.KindOf(err))
			}
			fields := fieldSet(err)
			if _, ok := fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", fields, tt.field)
			}
		})
	}
}

func TestEndAfterStartMessage(t *testing.T) {
	in := validEntry()
	in.EndTime = "08:00"
	fields := fieldSet(Struct("entry.create", in))
	if got := fields["endTime"]; got != "end time must be after start time" {
		t.Errorf("message = %q", got)
	}
}

func TestApplyDedupesDays(t *testing.T) {
	in := validEntry()
	in.Days = []model.Weekday{model.Monday, model.Monday, model.Friday}
	in.Subject = "  Math  "

	var e model.Entry
	in.Apply(&e)
	if len(e.Days) != 2 {
		t.Errorf("days = %v, want 2 distinct", e.Days)
	}
	if e.Subject != "Math" {
		t.Errorf("subject = %q, want trimmed", e.Subject)
	}
}

func TestCustomDuration(t *testing.T) {
	for _, m := range []int{1, 30, 180} {
		if err := Struct("focus.custom", CustomDurationInput{Minutes: m}); err != nil {
			t.Errorf("minutes %d: unexpected error %v", m, err)
		}
	}
	for _, m := range []int{0, -5, 181} {
		if err := Struct("focus.custom", CustomDurationInput{Minutes: m}); err == nil {
			t.Errorf("minutes %d: expected error", m)
		}
	}
}

func TestTodoAndReset(t *testing.T) {
	if err := Struct("todo.create", TodoInput{Text: ""}); err == nil {
		t.Error("expected error for empty todo")
	}
	if err := Struct("account.reset", ResetInput{Confirm: "yes"}); err == nil {
		t.Error("expected error for wrong confirmation")
	}
	if err := Struct("account.reset", ResetInput{Confirm: ConfirmReset}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSettingsTheme(t *testing.T) {
	dark, neon := "dark", "neon"
	if err := Struct("settings.update", SettingsInput{Theme: &dark}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Struct("settings.update", SettingsInput{Theme: &neon}); err == nil {
		t.Error("expected error for unknown theme")
	}
	if err := Struct("settings.update", SettingsInput{}); err != nil {
		t.Errorf("empty update: unexpected error %v", err)
	}
}

func TestModeInput(t *testing.T) {
	if err := Struct("focus.mode", ModeInput{Mode: "short_break"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Struct("focus.mode", ModeInput{Mode: "nap"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSubscriptionInput(t *testing.T) {
	ok := SubscriptionInput{Endpoint: "https://push.example.com/abc", P256dh: "key", Auth: "auth"}
	if err := Struct("push.subscribe", ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := SubscriptionInput{Endpoint: "not a url", P256dh: "key"}
	err := Struct("push.subscribe", bad)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := len(apperr.FieldsOf(err)); n != 2 {
		t.Errorf("got %d field errors, want 2 (endpoint, auth)", n)
	}
}
