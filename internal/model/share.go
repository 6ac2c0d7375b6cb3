package model

// Share is an OTP-gated external access grant to a single document. The
// access code is stored only as a bcrypt hash; the plaintext exists in the
// recipient's email and nowhere else.
type Share struct {
	ID             string `json:"id"`
	DocumentID     string `json:"document_id"`
	RecipientEmail string `json:"recipient_email"`
	CreatedBy      string `json:"created_by"`
	CodeHash       string `json:"-"`
	State          int    `json:"state"`
	FailedAttempts int    `json:"failed_attempts"`
	VerifiedAt     int64  `json:"verified_at"`
	OtpExpiresAt   int64  `json:"otp_expires_at"`
	Ctime          int64  `json:"ctime"`
	Mtime          int64  `json:"mtime"`
}
