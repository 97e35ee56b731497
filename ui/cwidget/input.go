package cwidget

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Input is a labelled entry that parses its text into T and reports parse
// errors inline.
type Input[T any] struct {
	widget.BaseWidget

	labelWidget *widget.Label
	entryWidget *widget.Entry
	errorWidget *widget.Label

	LabelText string
	Value     T

	OnChanged func(T)
	Parse     func(string) (T, error)
	Format    func(T) string
}

// NewIntInput accepts integers no smaller than min. An empty entry means def.
func NewIntInput(label string, def, min int, onChanged func(int)) *Input[int] {
	input := &Input[int]{
		LabelText: label,
		Value:     def,
		OnChanged: onChanged,
		Format:    strconv.Itoa,
	}
	input.Parse = func(s string) (int, error) {
		if s == "" {
			return def, nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return def, fmt.Errorf("not a number")
		}
		if v < min {
			return def, fmt.Errorf("must be at least %d", min)
		}
		return v, nil
	}
	input.build(strconv.Itoa(def))
	return input
}

func (item *Input[T]) build(placeholder string) {
	item.labelWidget = widget.NewLabel(item.labelText())
	item.labelWidget.TextStyle = fyne.TextStyle{Bold: true}

	item.entryWidget = widget.NewEntry()
	item.entryWidget.SetPlaceHolder(placeholder)

	item.errorWidget = widget.NewLabel("")
	item.errorWidget.Hidden = true
	item.errorWidget.TextStyle = fyne.TextStyle{Italic: true}
	item.errorWidget.Importance = widget.DangerImportance

	item.entryWidget.OnChanged = func(s string) {
		v, err := item.Parse(s)
		item.SetError(err)
		if err != nil {
			return
		}
		item.Value = v
		item.labelWidget.SetText(item.labelText())
		if item.OnChanged != nil {
			item.OnChanged(v)
		}
	}

	item.ExtendBaseWidget(item)
}

func (item *Input[T]) labelText() string {
	return fmt.Sprintf("%s: %s", item.LabelText, item.Format(item.Value))
}

func (item *Input[T]) CreateRenderer() fyne.WidgetRenderer {
	c := container.NewVBox(
		item.labelWidget,
		item.entryWidget,
		item.errorWidget,
	)
	return widget.NewSimpleRenderer(c)
}

func (item *Input[T]) SetError(err error) {
	item.errorWidget.Hidden = err == nil
	if err != nil {
		item.errorWidget.SetText(err.Error())
	}
	item.errorWidget.Refresh()
}

func (item *Input[T]) SetText(text string) {
	item.entryWidget.SetText(text)
}

// ErrorText returns the inline error currently shown, or "".
func (item *Input[T]) ErrorText() string {
	if item.errorWidget.Hidden {
		return ""
	}
	return item.errorWidget.Text
}

func (item *Input[T]) Enable() {
	item.entryWidget.Enable()
}

func (item *Input[T]) Disable() {
	item.entryWidget.Disable()
}

func (item *Input[T]) Disabled() bool {
	return item.entryWidget.Disabled()
}
