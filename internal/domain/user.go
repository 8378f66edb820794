package domain

// AllowList is the closed set of usernames permitted to log in. It is fixed at
// configuration time; one member is distinguished as the administrator, who has
// fleet-wide read access but is barred from the ordinary chat flow.
type AllowList struct {
	users map[string]struct{}
	admin string
}

// NewAllowList builds an allow-list. The admin username is always a member,
// whether or not it appears in users.
func NewAllowList(users []string, admin string) *AllowList {
	set := make(map[string]struct{}, len(users)+1)
	for _, u := range users {
		if u != "" {
			set[u] = struct{}{}
		}
	}
	set[admin] = struct{}{}
	return &AllowList{users: set, admin: admin}
}

// Contains reports whether username is a member of the allow-list.
func (l *AllowList) Contains(username string) bool {
	_, ok := l.users[username]
	return ok
}

// Admin returns the administrator username.
func (l *AllowList) Admin() string {
	return l.admin
}

// IsAdmin reports whether username is the administrator.
func (l *AllowList) IsAdmin(username string) bool {
	return username == l.admin
}

// CanAccess reports whether username may read or mutate a conversation tagged
// with owner. Conversations without an owner are legacy rows treated as owned
// by the administrator.
func (l *AllowList) CanAccess(username, owner string) bool {
	if owner == "" {
		owner = l.admin
	}
	return username == owner || l.IsAdmin(username)
}
