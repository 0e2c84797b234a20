package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Registration is the account data collected before OTP verification.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Login exchanges credentials for a bearer token and stores it together
// with the owner id, moving the session to Authenticated.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Field: "email"}
	}
	if password == "" {
		return &ValidationError{Field: "password"}
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := c.postJSON(ctx, "/auth/login", map[string]string{"email": email, "password": password}, &resp); err != nil {
		return err
	}
	return c.sess.Save(resp.Token, resp.User.ID)
}

// SendOTP requests a registration code for the given address.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Field: "email"}
	}
	return c.postJSON(ctx, "/auth/send-otp", map[string]string{"email": email}, nil)
}

// VerifyOTP completes registration with the emailed code.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string, reg Registration) error {
	if strings.TrimSpace(otp) == "" {
		return &ValidationError{Field: "otp"}
	}
	return c.postJSON(ctx, "/auth/verify-otp", struct {
		Email string       `json:"email"`
		OTP   string       `json:"otp"`
		Form  Registration `json:"form"`
	}{Email: email, OTP: otp, Form: reg}, nil)
}

// ForgotPassword requests a reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Field: "email"}
	}
	return c.postJSON(ctx, "/auth/forgot-password", map[string]string{"email": strings.TrimSpace(email)}, nil)
}

// ResetPassword sets a new password using the emailed code.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if strings.TrimSpace(otp) == "" {
		return &ValidationError{Field: "otp"}
	}
	if strings.TrimSpace(newPassword) == "" {
		return &ValidationError{Field: "newPassword"}
	}
	return c.postJSON(ctx, "/auth/reset-password", map[string]string{
		"email":       email,
		"otp":         otp,
		"newPassword": newPassword,
	}, nil)
}

// Logout discards the stored credential. Purely local, the server keeps
// no session state.
func (c *Client) Logout() {
	c.sess.Reset()
}
