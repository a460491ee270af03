package ports

import "formledger/internal/domain/submission"

// FieldProfile supplies the current contact alias lists. Implementations
// may reload them at runtime.
type FieldProfile interface {
	Aliases() submission.Aliases
}

// StaticProfile is a FieldProfile that never changes.
type StaticProfile submission.Aliases

func (p StaticProfile) Aliases() submission.Aliases {
	return submission.Aliases(p)
}
