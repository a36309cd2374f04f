package entity

// Role classifies directory accounts.
type Role string

const (
	RoleHeadquarters Role = "headquarters"
	RoleAdmin        Role = "admin"
	RoleStudent      Role = "student"
)

// User is a directory record. Authentication happens upstream; the engine
// only resolves references and denormalizes display fields from it.
type User struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}
