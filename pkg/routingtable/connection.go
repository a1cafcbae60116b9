package routingtable

import "github.com/google/uuid"

// ConnID identifies one subscriber connection.
type ConnID string

// NewConnID returns a fresh random connection ID.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// String returns the ID as a plain string.
func (id ConnID) String() string {
	return string(id)
}
