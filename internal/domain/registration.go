package domain

import "strings"

// RegistrationBase holds the fields every registration carries regardless of
// role. Email, password and name are mandatory; everything else is optional.
type RegistrationBase struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8"`
	Name     string    `json:"name" validate:"required"`
	Phone    string    `json:"phone,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Registration is the role-discriminated registration request. The two
// concrete shapes are SeekerRegistration and EmployerRegistration; the
// orchestrator switches on the concrete type instead of probing optional
// fields.
type Registration interface {
	Base() *RegistrationBase
	Role() string
}

type SeekerRegistration struct {
	RegistrationBase
	Skills       []string `json:"skills,omitempty"`
	Experience   string   `json:"experience,omitempty"`
	Availability string   `json:"availability,omitempty"`
}

func (r *SeekerRegistration) Base() *RegistrationBase { return &r.RegistrationBase }
func (r *SeekerRegistration) Role() string            { return RoleSeeker }

type EmployerRegistration struct {
	RegistrationBase
	BusinessDetails *BusinessDetails `json:"businessDetails,omitempty"`
}

func (r *EmployerRegistration) Base() *RegistrationBase { return &r.RegistrationBase }
func (r *EmployerRegistration) Role() string            { return RoleEmployer }

func (b *RegistrationBase) Normalize() {
	b.Email = NormalizeEmail(b.Email)
	b.Name = strings.TrimSpace(b.Name)
	b.Phone = strings.TrimSpace(b.Phone)
}

// NormalizeEmail canonicalizes an email for use as a store key. Every lookup
// keyed by email must pass through here so the staged records written at
// registration stay reachable regardless of the casing the client sends later.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PendingRegistration is the staged, not-yet-durable account data held in the
// session store under `user_session:{email}` until OTP verification succeeds.
// The plaintext password is never staged, only its hash.
type PendingRegistration struct {
	Email           string           `json:"email"`
	HashedPassword  string           `json:"hashedPassword"`
	Name            string           `json:"name"`
	Role            string           `json:"role"`
	Phone           string           `json:"phone,omitempty"`
	Location        *Location        `json:"location,omitempty"`
	Skills          []string         `json:"skills,omitempty"`
	Experience      string           `json:"experience,omitempty"`
	Availability    string           `json:"availability,omitempty"`
	BusinessDetails *BusinessDetails `json:"businessDetails,omitempty"`
}

// Stage builds the staged record from a registration request and the hashed
// password, pattern-matching on the request's role.
func Stage(reg Registration, hashedPassword string) *PendingRegistration {
	base := reg.Base()
	p := &PendingRegistration{
		Email:          base.Email,
		HashedPassword: hashedPassword,
		Name:           base.Name,
		Role:           reg.Role(),
		Phone:          base.Phone,
		Location:       base.Location,
	}

	switch req := reg.(type) {
	case *SeekerRegistration:
		p.Skills = req.Skills
		p.Experience = req.Experience
		p.Availability = req.Availability
	case *EmployerRegistration:
		p.BusinessDetails = req.BusinessDetails
	}

	return p
}

// ToAccount promotes the staged data into a durable account carrying the
// freshly allocated external identity.
func (p *PendingRegistration) ToAccount(userID string) *Account {
	return &Account{
		UserID:          userID,
		Email:           p.Email,
		PasswordHash:    p.HashedPassword,
		Name:            p.Name,
		Role:            p.Role,
		Phone:           p.Phone,
		IsVerified:      true,
		Location:        p.Location,
		Skills:          p.Skills,
		Experience:      p.Experience,
		Availability:    p.Availability,
		BusinessDetails: p.BusinessDetails,
	}
}
