package access

import (
	"errors"
	"testing"

	"formledger/internal/errs"
)

func TestRequireAdministrator(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		principal Principal
		wantErr   error
		wantCode  errs.Code
	}{
		{"anonymous", Principal{}, ErrUnauthenticated, errs.CodeUnauthenticated},
		{"editor", Principal{Subject: "sam", Roles: []string{"editor"}}, ErrForbidden, errs.CodeForbidden},
		{"admin", Principal{Subject: "root", Roles: []string{"editor", RoleAdministrator}}, nil, errs.CodeUnknown},
		{"operator", Operator(""), nil, errs.CodeUnknown},
	}
	for _, tc := range cases {
		err := RequireAdministrator(tc.principal)
		if tc.wantErr == nil {
			if err != nil {
				t.Fatalf("%s: RequireAdministrator() error = %v", tc.name, err)
			}
			continue
		}
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.wantErr)
		}
		if errs.CodeOf(err) != tc.wantCode {
			t.Fatalf("%s: code = %q, want %q", tc.name, errs.CodeOf(err), tc.wantCode)
		}
	}
}
