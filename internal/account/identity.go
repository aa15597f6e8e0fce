package account

// Role separates the two kinds of account.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Identity is the verified caller of a request. It is passed explicitly to every service call.
type Identity struct {
	ID    string
	Role  Role
	Email string
	Name  string
}

func (i Identity) IsTeacher() bool { return i.Role == RoleTeacher && i.ID != "" }

func (i Identity) IsStudent() bool { return i.Role == RoleStudent && i.ID != "" }
