package services

import (
	"strings"

	"github.com/isdelr/private-leagues-api/internal/models"
)

// Scope describes what the caller of a league operation may reach: leagues of
// one application in which the user holds a membership. Every league query is
// built from a Scope, so a league outside it is indistinguishable from a
// league that does not exist.
type Scope struct {
	AppKey   string
	UserID   string
	LeagueID string // empty for collection-level operations

	role models.Role // empty means any membership
}

// NewScope creates a member-level scope for user within app.
func NewScope(appKey, userID string) Scope {
	return Scope{AppKey: appKey, UserID: userID}
}

// ForLeague narrows the scope to a single league.
func (s Scope) ForLeague(id string) Scope {
	s.LeagueID = id
	return s
}

// AdminOnly tightens the scope to leagues where the user is an admin.
func (s Scope) AdminOnly() Scope {
	s.role = models.RoleAdmin
	return s
}

// Role reports the membership the scope requires, empty for any.
func (s Scope) Role() models.Role {
	return s.role
}

// predicate renders the scope as a WHERE fragment over table, which must hold
// league rows with id and app_key columns.
func (s Scope) predicate(table string) (string, []any) {
	var b strings.Builder
	args := []any{s.AppKey, s.UserID}

	b.WriteString(table + ".app_key = ? AND " + table + ".id IN (SELECT league_id FROM league_members WHERE user_id = ?")
	if s.role != "" {
		b.WriteString(" AND role = ?")
		args = append(args, string(s.role))
	}
	b.WriteString(")")

	if s.LeagueID != "" {
		b.WriteString(" AND " + table + ".id = ?")
		args = append(args, s.LeagueID)
	}
	return b.String(), args
}
