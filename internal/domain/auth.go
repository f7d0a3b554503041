package domain

// CallerKind classifies who is making a request.
type CallerKind int

const (
	CallerAnonymous CallerKind = iota
	CallerUser
	CallerAdmin
)

func (k CallerKind) String() string {
	switch k {
	case CallerUser:
		return "user"
	case CallerAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Caller is the resolved identity of a request. The zero value is Anonymous.
type Caller struct {
	Kind   CallerKind
	UserID int64
	Name   string
	Email  string
}

// Anonymous returns a caller without credentials.
func Anonymous() Caller {
	return Caller{Kind: CallerAnonymous}
}

// CallerFromUser classifies an authenticated user.
func CallerFromUser(user *User) Caller {
	kind := CallerUser
	if user.IsAdmin {
		kind = CallerAdmin
	}
	return Caller{Kind: kind, UserID: user.ID, Name: user.Name, Email: user.Email}
}

// IsAnonymous reports whether no user is attached to the caller.
func (c Caller) IsAnonymous() bool { return c.Kind == CallerAnonymous }

// IsAdmin reports whether the caller holds administrator rights.
func (c Caller) IsAdmin() bool { return c.Kind == CallerAdmin }

// UserIDPtr returns the caller's user id, or nil for anonymous callers.
func (c Caller) UserIDPtr() *int64 {
	if c.IsAnonymous() {
		return nil
	}
	id := c.UserID
	return &id
}
