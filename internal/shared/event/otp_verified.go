package event

import "time"

const OTPVerifiedDestination string = "otp_verified"
const OTPVerifiedDestinationConsumerAccount string = "otp_verified_account"

type OTPVerifiedMessage struct {
	TokenID    int64     `json:"token_id"`
	UserID     int64     `json:"user_id,omitempty"`
	Phone      string    `json:"phone"`
	Purpose    string    `json:"purpose"`
	Email      string    `json:"email,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}
