package submission

import "strings"

// Aliases lists, per semantic column, the field keys that usually carry it.
// Order matters: the first non-empty match wins.
type Aliases struct {
	FirstName string   `toml:"first_name"`
	LastName  string   `toml:"last_name"`
	Name      []string `toml:"name"`
	Email     []string `toml:"email"`
	Phone     []string `toml:"phone"`
}

func DefaultAliases() Aliases {
	return Aliases{
		FirstName: "first-name",
		LastName:  "last-name",
		Name:      []string{"your-name", "name", "full_name", "fullname", "first-name", "first_name", "contact-name"},
		Email:     []string{"your-email", "email", "email_address", "contact-email"},
		Phone:     []string{"tel", "phone", "your-phone", "phone_number", "contact-phone"},
	}
}

// Contact is the best-effort name/email/phone guess for list views.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func InferContact(attrs map[string]Value, aliases Aliases) Contact {
	return Contact{
		Name:  inferName(attrs, aliases),
		Email: firstAttr(attrs, aliases.Email),
		Phone: firstAttr(attrs, aliases.Phone),
	}
}

func inferName(attrs map[string]Value, aliases Aliases) string {
	first := attrString(attrs, aliases.FirstName)
	last := attrString(attrs, aliases.LastName)
	if full := strings.TrimSpace(first + " " + last); full != "" {
		return full
	}
	return firstAttr(attrs, aliases.Name)
}

func firstAttr(attrs map[string]Value, keys []string) string {
	for _, key := range keys {
		if s := attrString(attrs, key); s != "" {
			return s
		}
	}
	return ""
}

func attrString(attrs map[string]Value, name string) string {
	if name == "" {
		return ""
	}
	value, ok := attrs[NormalizeKey(name)]
	if !ok || value.IsEmpty() {
		return ""
	}
	return value.String()
}
