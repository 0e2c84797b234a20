package auth

import (
	"fmt"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

var (
	sendgridKey string
	otpFrom     string
)

func initMailer() {
	sendgridKey = os.Getenv("SENDGRID_API_KEY")
	otpFrom = os.Getenv("OTP_FROM_EMAIL")
	if sendgridKey == "" {
		logrus.Info("SENDGRID_API_KEY not set, OTP codes will be logged instead of emailed")
	}
}

// deliverOTP emails the code when SendGrid is configured and logs it
// otherwise, so local development works without an account. Delivery
// failures are logged, not surfaced; the code stays valid and can be
// re-requested.
func deliverOTP(email, code string) {
	log := logrus.WithField("email", email)
	if sendgridKey == "" || otpFrom == "" {
		log.WithField("otp", code).Info("OTP issued")
		return
	}

	from := mail.NewEmail("Gallery", otpFrom)
	to := mail.NewEmail("", email)
	subject := "Your verification code"
	body := fmt.Sprintf("Your one-time code is %s. It expires in %d minutes.", code, int(otpTTL.Minutes()))
	message := mail.NewSingleEmail(from, subject, to, body, fmt.Sprintf("<p>%s</p>", body))

	resp, err := sendgrid.NewSendClient(sendgridKey).Send(message)
	if err != nil {
		log.WithError(err).Error("Failed to send OTP email")
		return
	}
	if resp.StatusCode >= 400 {
		log.WithFields(logrus.Fields{"status": resp.StatusCode, "body": resp.Body}).Error("OTP email rejected")
		return
	}
	log.Info("OTP email sent")
}
