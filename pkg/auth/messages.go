package auth

import (
	"fmt"
	"time"

	"library_service/pkg/mailer"
)

func registrationMail(to, firstName, code string, ttl time.Duration) mailer.Message {
	return mailer.Message{
		To:      to,
		Subject: "Confirm your library account",
		Body: fmt.Sprintf("Hello %s,\n\nYour verification code is %s.\nIt expires in %s.\n",
			firstName, code, ttl),
	}
}

func passwordResetMail(to, userName, code string, ttl time.Duration) mailer.Message {
	return mailer.Message{
		To:      to,
		Subject: "Reset your library password",
		Body: fmt.Sprintf("Hello %s,\n\nUse code %s to reset your password.\nIt expires in %s. "+
			"If you did not ask for a reset, ignore this message.\n",
			userName, code, ttl),
	}
}
