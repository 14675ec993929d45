package models

import "strings"

// Player is one seat at the scoresheet. Players are identified by name only.
type Player struct {
	Name string `json:"name"`
}

// Key is the case-insensitive form of the name used for uniqueness checks.
func (p Player) Key() string {
	return strings.ToLower(p.Name)
}
