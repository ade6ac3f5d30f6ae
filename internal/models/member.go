package models

import (
	"strings"
	"time"
)

const DefaultAuthority = "USER_ROLE"

type Member struct {
	Email         string    `json:"email" dynamodbav:"email"`
	PasswordHash  string    `json:"-" dynamodbav:"password_hash"`
	Nickname      string    `json:"nickname,omitempty" dynamodbav:"nickname,omitempty"`
	Authorities   string    `json:"authorities" dynamodbav:"authorities"`
	AccountStatus bool      `json:"account_status" dynamodbav:"account_status"`
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (m *Member) GetPK() string {
	return "MEMBER!" + m.Email
}

func (m *Member) GetSK() string {
	return "METADATA"
}

// AuthorityList splits the stored comma-separated authorities.
func (m *Member) AuthorityList() []string {
	return SplitAuthorities(m.Authorities)
}

// SplitAuthorities splits a comma-delimited authority string, trimming each
// entry and dropping empties. Order is preserved.
func SplitAuthorities(s string) []string {
	authorities := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			authorities = append(authorities, part)
		}
	}
	return authorities
}

// JoinAuthorities is the inverse of SplitAuthorities.
func JoinAuthorities(authorities []string) string {
	return strings.Join(authorities, ",")
}
