// Package assign suggests an agent role from a task's free text.
//
// Suggestion is a pure function: no network, no state, same text in, same
// role out. Rules are an ordered list of keyword sets; the first rule with
// any substring match wins, so earlier rules act as tie-breaks.
package assign

import (
	"strings"
)

// Agent roles understood by the backend.
const (
	RoleCommunications = "communications"
	RoleResearch       = "research"
	RoleDevelopment    = "development"
	RoleBrowser        = "browser"
	RoleCreative       = "creative"
	RolePersonal       = "personal"
)

// DefaultRole is returned when no rule matches.
const DefaultRole = RoleDevelopment

// rule maps a keyword set to a role.
type rule struct {
	role     string
	keywords []string
}

// rules is ordered: earlier entries win over later ones when a description
// matches several keyword sets.
var rules = []rule{
	{RoleCommunications, []string{"email", "send", "message", "reply", "slack", "notify", "reach out"}},
	{RoleResearch, []string{"research", "investigate", "find out", "analyze", "compare", "summarize", "look into"}},
	{RoleDevelopment, []string{"code", "bug", "fix", "implement", "refactor", "feature", "test", "debug", "api"}},
	{RoleBrowser, []string{"browse", "scrape", "website", "crawl", "download", "navigate"}},
	{RoleCreative, []string{"write", "draft", "blog", "content", "copy", "article", "post"}},
	{RolePersonal, []string{"schedule", "calendar", "remind", "organize", "plan", "book"}},
}

// SuggestRole returns the agent role for a task given its title and
// description. The description is the primary signal; the title is the
// fallback when the description is empty.
func SuggestRole(title, description string) string {
	text := description
	if text == "" {
		text = title
	}
	return suggest(strings.ToLower(text))
}

func suggest(text string) string {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.role
			}
		}
	}
	return DefaultRole
}

// Roles returns all known roles in rule order.
func Roles() []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.role)
	}
	return out
}

// IsValidRole returns true if role is one of the known agent roles.
func IsValidRole(role string) bool {
	for _, r := range rules {
		if r.role == role {
			return true
		}
	}
	return false
}
