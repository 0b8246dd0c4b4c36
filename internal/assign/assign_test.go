package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestRole(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        string
	}{
		{"coding keyword in title", "Fix login bug", "", RoleDevelopment},
		{"research keyword", "", "investigate slow queries", RoleResearch},
		{"communication keyword", "", "send the weekly email update", RoleCommunications},
		{"browser keyword", "", "scrape the pricing page", RoleBrowser},
		{"creative keyword", "", "draft a blog announcement", RoleCreative},
		{"personal keyword", "", "schedule the retro meeting", RolePersonal},
		{"no match falls back to default", "Mystery", "something unrelated", DefaultRole},
		{"case insensitive", "", "FIX THE API", RoleDevelopment},
		{"description wins over title", "fix crash", "send a status email", RoleCommunications},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestRole(tt.title, tt.description))
		})
	}
}

func TestSuggestRoleDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, RoleResearch, SuggestRole("", "compare the two libraries"))
	}
}

func TestRuleOrderTieBreak(t *testing.T) {
	// Contains both a communications keyword ("email") and a development
	// keyword ("bug"): rule 1 beats rule 3.
	got := SuggestRole("", "email the team about the login bug")
	assert.Equal(t, RoleCommunications, got)
}

func TestRoles(t *testing.T) {
	roles := Roles()
	assert.Equal(t, RoleCommunications, roles[0])
	assert.Len(t, roles, 6)
	for _, r := range roles {
		assert.True(t, IsValidRole(r))
	}
	assert.False(t, IsValidRole("astronaut"))
}
