package models

import "slices"

// Principal is the authenticated identity derived from a verified access
// token. It lives only for the duration of one request.
type Principal struct {
	Subject     string   `json:"subject"`
	Authorities []string `json:"authorities"`
}

func (p Principal) HasAuthority(authority string) bool {
	return slices.Contains(p.Authorities, authority)
}
