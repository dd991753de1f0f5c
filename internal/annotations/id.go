package annotations

import "github.com/google/uuid"

// IDProvider issues fresh note identifiers.
type IDProvider interface {
	NewID() (NoteID, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers,
// which sort by creation time.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (NoteID, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return NoteID(value.String()), nil
}
