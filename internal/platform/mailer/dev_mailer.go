package mailer

import (
	"fmt"

	"github.com/flexora/jobboard-api/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendOTPEmail(toEmail, code string) error {
	logger.Info("[DEV MAIL] OTP Email",
		"to", toEmail,
		"code", code,
	)

	fmt.Printf("\n"+
		"=================================================================\n"+
		"OTP EMAIL (DEV MODE)\n"+
		"=================================================================\n"+
		"To: %s\n"+
		"Subject: Your OTP Code for Verification\n"+
		"\n"+
		"Code: %s\n"+
		"=================================================================\n\n",
		toEmail, code)

	return nil
}
