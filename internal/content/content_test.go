package content

import (
	"errors"
	"strings"
	"testing"

	"govorilka/internal/models"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"  padded  ", "padded"},
		{"<b>bold</b> move", "bold move"},
		{`<script>alert("xss")</script>hi`, "hi"},
		{`<img src=x onerror=alert(1)>`, ""},
		{"<a href='http://x'>link</a>", "link"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Alice"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateName(""); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("empty name = %v, want ErrInvalidArgument", err)
	}
	if err := ValidateName(strings.Repeat("x", 65)); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("overlong name = %v, want ErrInvalidArgument", err)
	}
	if err := ValidateName(strings.Repeat("x", 64)); err != nil {
		t.Errorf("64-char name rejected: %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "user.name+tag@example.com"} {
		if err := ValidateEmail(ok); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "plain", "no@tld", "two@@at.com", "spaces in@mail.com"} {
		if err := ValidateEmail(bad); !errors.Is(err, models.ErrInvalidArgument) {
			t.Errorf("ValidateEmail(%q) = %v, want ErrInvalidArgument", bad, err)
		}
	}
}
