package mailer

// Service delivers one-time passcodes. A send error is fatal to the
// registration attempt that triggered it.
type Service interface {
	SendOTPEmail(toEmail, code string) error
}
