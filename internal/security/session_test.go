package security_test

import (
	"strings"
	"testing"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/security"
)

func newTestCodec(secret string) *security.SessionCodec {
	list := domain.NewAllowList([]string{"test1", "test2", "test3"}, "admin")
	return security.NewSessionCodec(secret, list)
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec("test-secret")

	for _, user := range []string{"test1", "test2", "admin"} {
		token := codec.Issue(user)
		if token == "" {
			t.Fatalf("empty token for %s", user)
		}
		if got := strings.Count(token, "."); got != 3 {
			t.Fatalf("token %q has %d dots, want 3", token, got)
		}

		parsed, ok := codec.Parse(token)
		if !ok {
			t.Fatalf("failed to parse issued token for %s", user)
		}
		if parsed != user {
			t.Errorf("parsed username = %q, want %q", parsed, user)
		}
	}
}

func TestSessionCodec_RejectsTampering(t *testing.T) {
	codec := newTestCodec("test-secret")
	token := codec.Issue("test1")

	// Every single-character mutation must fail verification.
	for i := 0; i < len(token); i++ {
		mutated := []byte(token)
		if mutated[i] == 'x' {
			mutated[i] = 'y'
		} else {
			mutated[i] = 'x'
		}
		if _, ok := codec.Parse(string(mutated)); ok {
			t.Errorf("mutation at %d accepted: %q", i, mutated)
		}
	}
}

func TestSessionCodec_RejectsMalformed(t *testing.T) {
	codec := newTestCodec("test-secret")

	cases := map[string]string{
		"empty":             "",
		"plain username":    "test1",
		"three fields":      "v1.test1.123",
		"five fields":       "v1.test1.123.abc.def",
		"unknown version":   strings.Replace(codec.Issue("test1"), "v1.", "v2.", 1),
		"non-numeric stamp": "v1.test1.notatime.deadbeef",
	}
	for name, token := range cases {
		if _, ok := codec.Parse(token); ok {
			t.Errorf("%s: token %q accepted", name, token)
		}
	}
}

func TestSessionCodec_RejectsUnknownUser(t *testing.T) {
	codec := newTestCodec("test-secret")

	// Correctly signed but not on the allow-list.
	token := codec.Issue("mallory")
	if _, ok := codec.Parse(token); ok {
		t.Error("token for unknown user accepted")
	}
}

func TestSessionCodec_RejectsForeignSecret(t *testing.T) {
	codec := newTestCodec("test-secret")
	other := newTestCodec("other-secret")

	if _, ok := codec.Parse(other.Issue("test1")); ok {
		t.Error("token signed with different secret accepted")
	}
}
