package auth

import "context"

type contextKey string

const (
	contextKeyUser      contextKey = "user"
	contextKeySessionID contextKey = "session_id"
)

// User is the authenticated person viewing the dashboard.
type User struct {
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

// InAnyGroup reports whether u belongs to one of groups. An empty list allows everyone.
func (u *User) InAnyGroup(groups ...string) bool {
	if len(groups) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	for _, want := range groups {
		for _, have := range u.Groups {
			if want == have {
				return true
			}
		}
	}
	return false
}

func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKeyUser).(*User)
	return u, ok
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(contextKeySessionID).(string)
	return s
}
