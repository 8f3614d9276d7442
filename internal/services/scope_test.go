package services

import (
	"testing"

	"github.com/isdelr/private-leagues-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestScopePredicate(t *testing.T) {
	tests := []struct {
		name      string
		scope     Scope
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "collection",
			scope:     NewScope("app", "u1"),
			wantWhere: "leagues.app_key = ? AND leagues.id IN (SELECT league_id FROM league_members WHERE user_id = ?)",
			wantArgs:  []any{"app", "u1"},
		},
		{
			name:      "single league",
			scope:     NewScope("app", "u1").ForLeague("l1"),
			wantWhere: "leagues.app_key = ? AND leagues.id IN (SELECT league_id FROM league_members WHERE user_id = ?) AND leagues.id = ?",
			wantArgs:  []any{"app", "u1", "l1"},
		},
		{
			name:      "admin only",
			scope:     NewScope("app", "u1").ForLeague("l1").AdminOnly(),
			wantWhere: "leagues.app_key = ? AND leagues.id IN (SELECT league_id FROM league_members WHERE user_id = ? AND role = ?) AND leagues.id = ?",
			wantArgs:  []any{"app", "u1", "admin", "l1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.scope.predicate("leagues")
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestScopeIsValue(t *testing.T) {
	base := NewScope("app", "u1")
	admin := base.ForLeague("l1").AdminOnly()

	assert.Empty(t, base.LeagueID)
	assert.Equal(t, models.Role(""), base.Role())
	assert.Equal(t, models.RoleAdmin, admin.Role())
}
