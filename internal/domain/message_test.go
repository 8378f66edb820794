package domain_test

import (
	"testing"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

func TestNormalizeContent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "你好，今天怎么样？", "你好，今天怎么样？"},
		{"plain with braces in prose", "JSON uses { and } a lot", "JSON uses { and } a lot"},
		{"wrapped object", `{"conversationId":"abc","text":"hello"}`, "hello"},
		{"wrapped object with whitespace", ` {"text":"你好"} `, "你好"},
		{"concatenated objects takes last", `{"text":"first"}{"text":"second"}`, "second"},
		{"concatenated with trailing non-text object", `{"text":"keep"}{"other":1}`, "keep"},
		{"object without text field", `{"conversationId":"abc"}`, `{"conversationId":"abc"}`},
		{"invalid json braces", `{not json}`, `{not json}`},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.NormalizeContent(tc.in); got != tc.want {
				t.Errorf("NormalizeContent(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestAllowListAccess(t *testing.T) {
	list := domain.NewAllowList([]string{"test1", "test2", "test3"}, "admin")

	if !list.Contains("test1") || !list.Contains("admin") {
		t.Error("expected members to be present")
	}
	if list.Contains("mallory") {
		t.Error("unexpected member")
	}
	if !list.IsAdmin("admin") || list.IsAdmin("test1") {
		t.Error("admin detection wrong")
	}

	// Owner and admin may access; nobody else.
	if !list.CanAccess("test1", "test1") {
		t.Error("owner denied")
	}
	if !list.CanAccess("admin", "test1") {
		t.Error("admin denied")
	}
	if list.CanAccess("test2", "test1") {
		t.Error("cross-user access allowed")
	}

	// Legacy rows without an owner belong to the administrator.
	if !list.CanAccess("admin", "") {
		t.Error("admin denied legacy row")
	}
	if list.CanAccess("test1", "") {
		t.Error("user allowed legacy row")
	}
}
