package submission

import "testing"

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"your-name", "your-name"},
		{"Your-Name", "your-name"},
		{"  Email Address ", "email_address"},
		{"menu-123[]", "menu-123__"},
		{"Über", "_ber"},
		{"   ", ""},
		{"_wpcf7", "_wpcf7"},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.in); got != tc.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeKeyIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"your-name", "E-Mail Address!", "  tel  ", "chk[]", "naïve café", "A_B-c d", "ß", "ID"}
	for _, in := range inputs {
		once := NormalizeKey(in)
		if twice := NormalizeKey(once); twice != once {
			t.Fatalf("NormalizeKey(NormalizeKey(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"your-name":       "Your Name",
		"email_address":   "Email Address",
		"phone":           "Phone",
		"acceptance-GDPR": "Acceptance GDPR",
		"menu-123":        "Menu 123",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Fatalf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHeaderName(t *testing.T) {
	t.Parallel()

	if got := HeaderName("__internal"); got != "internal" {
		t.Fatalf("HeaderName() = %q", got)
	}
	if got := HeaderName("email"); got != "email" {
		t.Fatalf("HeaderName() = %q", got)
	}
}
