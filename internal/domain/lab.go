package domain

import "time"

// Lab is a named, saved topology. Console state is never part of a lab.
type Lab struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Snapshot    *Snapshot `json:"snapshot,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LinkCount returns the number of saved links
func (l *Lab) LinkCount() int {
	if l.Snapshot == nil {
		return 0
	}
	return len(l.Snapshot.Links)
}
