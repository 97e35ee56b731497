package cwidget

import (
	"testing"

	"fyne.io/fyne/v2/test"
)

func TestIntInput(t *testing.T) {
	test.NewApp()

	var got []int
	in := NewIntInput("Camera", 0, 0, func(v int) { got = append(got, v) })

	in.SetText("2")
	if in.Value != 2 || in.ErrorText() != "" {
		t.Errorf("Value = %d, error %q", in.Value, in.ErrorText())
	}

	in.SetText("-1")
	if in.Value != 2 || in.ErrorText() == "" {
		t.Errorf("negative accepted: Value = %d, error %q", in.Value, in.ErrorText())
	}

	in.SetText("abc")
	if in.ErrorText() != "not a number" {
		t.Errorf("error = %q", in.ErrorText())
	}

	in.SetText("")
	if in.Value != 0 || in.ErrorText() != "" {
		t.Errorf("empty entry: Value = %d, error %q", in.Value, in.ErrorText())
	}

	if len(got) != 2 || got[0] != 2 || got[1] != 0 {
		t.Errorf("OnChanged calls = %v, want [2 0]", got)
	}
}

func TestIntInputDisable(t *testing.T) {
	test.NewApp()

	in := NewIntInput("Camera", 0, 0, nil)
	in.Disable()
	if !in.Disabled() {
		t.Error("Disabled() = false after Disable")
	}
	in.Enable()
	if in.Disabled() {
		t.Error("Disabled() = true after Enable")
	}
}
