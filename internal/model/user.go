package model

// UserCapability gates access to management pages.
type UserCapability string

const (
	// CapUserManagement allows creating users and assigning capabilities.
	CapUserManagement UserCapability = "USER_MANAGEMENT"
	// CapServerManagement allows creating servers and assigning users.
	CapServerManagement UserCapability = "SERVER_MANAGEMENT"
)

// UserView is the user model without sensitive data; it is what handlers
// and converters see.
type UserView struct {
	Username     string
	Capabilities []UserCapability
}

// HasCapability reports whether the view carries every requested capability.
func (v UserView) HasCapabilities(caps ...UserCapability) bool {
	for _, want := range caps {
		found := false
		for _, have := range v.Capabilities {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Can is the template-friendly capability check; templates pass plain
// strings.
func (v UserView) Can(name string) bool {
	return v.HasCapabilities(UserCapability(name))
}

// User is the full user record, including the hashed password.
type User struct {
	UserView
	HashedPassword string
	Disabled       bool
}
