// Package model contains the domain values passed between the scoring core,
// its collaborators and the transport layer.
package model

import (
	"fmt"
	"strings"
)

// Profile is an attendee snapshot consumed by the scorers. Any of the
// attribute sets may be empty.
type Profile struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Industries []string `json:"industries,omitempty"`
	Interests  []string `json:"interests,omitempty"`
	Goals      []string `json:"networking_goals,omitempty"`
	Active     bool     `json:"active"`
}

// Validate reports whether p can be stored.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProfile)
	}
	return nil
}

// ProfileFilter narrows ListProfiles. The zero value lists everything.
type ProfileFilter struct {
	ActiveOnly bool
	Exclude    []string
	Limit      int
}

// Excludes reports whether id is filtered out.
func (f ProfileFilter) Excludes(id string) bool {
	for _, x := range f.Exclude {
		if x == id {
			return true
		}
	}
	return false
}

// Matches reports whether p passes the filter, ignoring Limit.
func (f ProfileFilter) Matches(p Profile) bool {
	if f.ActiveOnly && !p.Active {
		return false
	}
	return !f.Excludes(p.ID)
}
