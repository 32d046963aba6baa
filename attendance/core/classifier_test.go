package core

import (
	"testing"

	"axiapac.com/attendance/attendance/model"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected model.Keyword
		ok       bool
	}{
		{name: "Bare token", text: "#entry", expected: model.Entry, ok: true},
		{name: "Surrounding prose", text: "morning all, #entry from site B", expected: model.Entry, ok: true},
		{name: "Upper case", text: "#BREAKSTART coffee", expected: model.BreakStart, ok: true},
		{name: "Lunch end", text: "back #lunchEnd", expected: model.LunchEnd, ok: true},
		{name: "Task start", text: "#taskstart ticket 42", expected: model.TaskStart, ok: true},
		{name: "First in vocabulary order wins", text: "#breakend then #exit", expected: model.Exit, ok: true},
		{name: "Token without hash", text: "entry", ok: false},
		{name: "No keyword", text: "hello there", ok: false},
		{name: "Empty", text: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, ok := Classify(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, k)
		})
	}
}

func TestParseKeyword(t *testing.T) {
	for _, in := range []string{"BREAK_START", "break_start", "#breakstart", "breakstart", " #BreakStart "} {
		k, err := ParseKeyword(in)
		assert.NoError(t, err, in)
		assert.Equal(t, model.BreakStart, k, in)
	}

	_, err := ParseKeyword("nap")
	assert.ErrorIs(t, err, ErrUnknownKeyword)
}
