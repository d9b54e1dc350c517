package entity

import "time"

// User represents an account row in the `users` table.
// OTP expiries are unix milliseconds; zero means no active code.
type User struct {
	ID                int64     `db:"id"`
	Name              string    `db:"name"`
	Email             string    `db:"email"`
	PasswordHash      string    `db:"password_hash"`
	IsAccountVerified bool      `db:"is_account_verified"`
	VerifyOTP         string    `db:"verify_otp"`
	VerifyOTPExpireAt int64     `db:"verify_otp_expire_at"`
	ResetOTP          string    `db:"reset_otp"`
	ResetOTPExpireAt  int64     `db:"reset_otp_expire_at"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// PublicUser is the account projection returned to clients after auth.
type PublicUser struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

// Data is the minimal projection behind GET /api/user/data.
type Data struct {
	Name              string `json:"name"`
	IsAccountVerified bool   `json:"isAccountVerified"`
}
