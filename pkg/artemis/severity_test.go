package artemis

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		level    string
		constant string
	}{
		{ErrorKindFatal, LevelError, "E_ERROR"},
		{ErrorKindWarning, LevelWarning, "E_WARNING"},
		{ErrorKindParse, LevelCritical, "E_PARSE"},
		{ErrorKindNotice, LevelInfo, "E_NOTICE"},
		{ErrorKindUserError, LevelError, "E_USER_ERROR"},
		{ErrorKindUserWarning, LevelWarning, "E_USER_WARNING"},
		{ErrorKindUserNotice, LevelInfo, "E_USER_NOTICE"},
		{ErrorKindStrict, LevelInfo, "E_STRICT"},
		{ErrorKindRecoverable, LevelError, "E_RECOVERABLE_ERROR"},
		{ErrorKindDeprecated, LevelInfo, "E_DEPRECATED"},
		{ErrorKindUserDeprecate, LevelInfo, "E_USER_DEPRECATED"},
		{3, LevelInfo, "#3"},
		{0, LevelInfo, "#0"},
		{-1, LevelInfo, "#-1"},
	}

	for _, tt := range tests {
		got := Classify(tt.kind)
		if got.Level != tt.level || got.Constant != tt.constant {
			t.Errorf("Classify(%d) = %+v, want {%s %s}", tt.kind, got, tt.level, tt.constant)
		}
	}
}

func TestClassifyLegacy_ParseIsNotice(t *testing.T) {
	got := ClassifyLegacy(ErrorKindParse)
	if got.Level != LevelInfo || got.Constant != "E_NOTICE" {
		t.Errorf("ClassifyLegacy(parse) = %+v, want notice", got)
	}
	if ClassifyLegacy(ErrorKindWarning) != Classify(ErrorKindWarning) {
		t.Error("legacy table differs beyond kind 4")
	}
}

func TestErrorKind_IsFatal(t *testing.T) {
	for kind := range severities {
		want := kind == ErrorKindFatal || kind == ErrorKindParse
		if kind.IsFatal() != want {
			t.Errorf("%d.IsFatal() = %v, want %v", kind, kind.IsFatal(), want)
		}
	}
}
