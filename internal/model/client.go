package model

import "strings"

const (
	ssnMaskPrefix = "•••-••-"
	ssnMaskTail   = "••••"
)

// Client is a person record as served by the backend. Field names follow the
// backend's opt_party table.
type Client struct {
	ID        string  `json:"PTY_ID"`
	FirstName string  `json:"PTY_FirstName"`
	LastName  string  `json:"PTY_LastName"`
	Gender    string  `json:"PTY_Gender"`
	Age       int     `json:"PTY_Age"`
	Phone     *string `json:"PTY_Phone,omitempty"`
	SSN       *string `json:"PTY_SSN,omitempty"`
}

func (c Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// PhoneDisplay returns the phone number or "-" when there is none.
func (c Client) PhoneDisplay() string {
	if c.Phone == nil || *c.Phone == "" {
		return "-"
	}
	return *c.Phone
}

// MaskedSSN reveals only the last four characters of the SSN.
func (c Client) MaskedSSN() string {
	if c.SSN == nil {
		return MaskSSN("")
	}
	return MaskSSN(*c.SSN)
}

// MaskSSN renders "•••-••-" followed by the last four characters of v, or a
// full mask when v is empty.
func MaskSSN(v string) string {
	if v == "" {
		return ssnMaskPrefix + ssnMaskTail
	}
	r := []rune(v)
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	return ssnMaskPrefix + string(r)
}

// GenderClass is the lower-cased gender used as a badge style key.
func (c Client) GenderClass() string {
	return strings.ToLower(c.Gender)
}

// ClientRow is the render-ready form of a Client shared by table and card views.
type ClientRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	GenderClass string `json:"gender_class"`
	Age         int    `json:"age"`
	Phone       string `json:"phone"`
	SSN         string `json:"ssn"`
}

func (c Client) Row() ClientRow {
	return ClientRow{
		ID:          c.ID,
		Name:        c.FullName(),
		Gender:      c.Gender,
		GenderClass: c.GenderClass(),
		Age:         c.Age,
		Phone:       c.PhoneDisplay(),
		SSN:         c.MaskedSSN(),
	}
}

// GenderCount is the response body of the gender count endpoint.
type GenderCount struct {
	Count int `json:"count"`
}

// FallbackGenders is used when the gender catalog cannot be fetched.
func FallbackGenders() []string {
	return []string{"Male", "Female"}
}
