package domain

import "time"

// Valid account roles
const (
	RoleSeeker   = "user"
	RoleEmployer = "employer"
)

var validRoles = map[string]bool{
	RoleSeeker:   true,
	RoleEmployer: true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

// Location is the structured address captured by the client's geolocation
// flow. All fields are optional.
type Location struct {
	State     string   `json:"state,omitempty"`
	City      string   `json:"city,omitempty"`
	Pincode   string   `json:"pincode,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type BusinessDetails struct {
	ShopName     string `json:"shopName,omitempty"`
	BusinessType string `json:"businessType,omitempty"`
}

// Account is a verified, durable user record. ID is the database primary key;
// UserID is the externally visible identity carried in token claims and API
// responses.
type Account struct {
	ID              int64
	UserID          string
	Email           string
	PasswordHash    string
	Name            string
	Role            string
	Phone           string
	IsVerified      bool
	Location        *Location
	Skills          []string
	Experience      string
	Availability    string
	BusinessDetails *BusinessDetails
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AccountView is the base response shape shared by both roles. Sensitive
// fields (password hash, internal primary key) are never exposed.
type AccountView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SeekerView is the job-seeker-shaped response payload. Skills defaults to an
// empty list rather than null.
type SeekerView struct {
	AccountView
	Skills       []string `json:"skills"`
	Experience   string   `json:"experience,omitempty"`
	Availability string   `json:"availability,omitempty"`
}

// EmployerView is the employer-shaped response payload. It carries business
// details and no seeker substructure.
type EmployerView struct {
	AccountView
	BusinessDetails BusinessDetails `json:"businessDetails"`
}

func (a *Account) baseView() AccountView {
	v := AccountView{
		ID:        a.UserID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		Phone:     a.Phone,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Location != nil {
		v.Location = *a.Location
	}
	return v
}

// View returns the role-shaped response payload for the account.
func (a *Account) View() interface{} {
	if a.Role == RoleEmployer {
		v := EmployerView{AccountView: a.baseView()}
		if a.BusinessDetails != nil {
			v.BusinessDetails = *a.BusinessDetails
		}
		return v
	}

	v := SeekerView{
		AccountView:  a.baseView(),
		Skills:       a.Skills,
		Experience:   a.Experience,
		Availability: a.Availability,
	}
	if v.Skills == nil {
		v.Skills = []string{}
	}
	return v
}
