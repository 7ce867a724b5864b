package inbound

import "time"

type ProfileResponse struct {
	ID              int64      `json:"id,string"`
	PhoneNumber     string     `json:"phone_number"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	Role            string     `json:"role"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}
