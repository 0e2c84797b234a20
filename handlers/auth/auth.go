package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"gallery-complete/core"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var jwtSecret []byte

const otpTTL = 10 * time.Minute

type otpEntry struct {
	code    string
	expires time.Time
}

var (
	otpMu    sync.Mutex
	otpCodes = make(map[string]otpEntry)
)

// AuthClaims are the custom claims carried by issued tokens. Subject is the
// user id.
type AuthClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

func InitAuth() {
	jwtSecret = []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}
	initMailer()
}

func createJWT(user *core.User) (string, error) {
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 7)), // 1 week
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AuthClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func issueOTP(email string) (string, error) {
	code, err := newOTP()
	if err != nil {
		return "", err
	}
	otpMu.Lock()
	otpCodes[email] = otpEntry{code: code, expires: time.Now().Add(otpTTL)}
	otpMu.Unlock()
	return code, nil
}

func consumeOTP(email, code string) bool {
	otpMu.Lock()
	defer otpMu.Unlock()
	entry, ok := otpCodes[email]
	if !ok || time.Now().After(entry.expires) || entry.code != code {
		return false
	}
	delete(otpCodes, email)
	return true
}

func failAuth(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"msg": msg})
}

// HandleLogin exchanges email and password for a bearer token and the
// owner id the client scopes its collection with.
func HandleLogin(users core.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			failAuth(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := users.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			failAuth(w, r, http.StatusBadRequest, "Invalid credentials")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			failAuth(w, r, http.StatusBadRequest, "Invalid credentials")
			return
		}

		token, err := createJWT(user)
		if err != nil {
			logrus.WithError(err).Error("Failed to create JWT")
			failAuth(w, r, http.StatusInternalServerError, "Failed to create token")
			return
		}

		logrus.WithField("user_id", user.ID).Info("User logged in")
		render.JSON(w, r, map[string]any{
			"token": token,
			"user":  map[string]string{"id": user.ID, "username": user.Username, "email": user.Email},
		})
	}
}

// HandleSendOTP issues a registration code for an address that is not
// registered yet.
func HandleSendOTP(users core.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil || strings.TrimSpace(req.Email) == "" {
			failAuth(w, r, http.StatusBadRequest, "Email is required")
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))

		if _, err := users.UserByEmail(r.Context(), email); err == nil {
			failAuth(w, r, http.StatusBadRequest, "Email already registered")
			return
		}

		code, err := issueOTP(email)
		if err != nil {
			logrus.WithError(err).Error("Failed to generate OTP")
			failAuth(w, r, http.StatusInternalServerError, "Failed to generate OTP")
			return
		}
		deliverOTP(email, code)
		render.JSON(w, r, map[string]string{"msg": "OTP sent"})
	}
}

// HandleVerifyOTP completes registration: the code must match and the
// account is created with a bcrypt password hash.
func HandleVerifyOTP(users core.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			OTP   string `json:"otp"`
			Form  struct {
				Username        string `json:"username"`
				Email           string `json:"email"`
				Phone           string `json:"phone"`
				Password        string `json:"password"`
				ConfirmPassword string `json:"confirmPassword"`
			} `json:"form"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			failAuth(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))

		if !consumeOTP(email, req.OTP) {
			failAuth(w, r, http.StatusBadRequest, "Invalid or expired OTP")
			return
		}
		if req.Form.Password == "" || req.Form.Password != req.Form.ConfirmPassword {
			failAuth(w, r, http.StatusBadRequest, "Passwords do not match")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Form.Password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Error("Failed to hash password")
			failAuth(w, r, http.StatusInternalServerError, "Registration failed")
			return
		}

		user := &core.User{
			ID:           ulid.Make().String(),
			Username:     req.Form.Username,
			Email:        email,
			Phone:        req.Form.Phone,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		}
		if err := users.CreateUser(r.Context(), user); err != nil {
			logrus.WithField("email", email).WithError(err).Error("Failed to create user")
			failAuth(w, r, http.StatusBadRequest, "Registration failed")
			return
		}

		logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("User registered")
		render.JSON(w, r, map[string]string{"msg": "Registration successful"})
	}
}

// HandleForgotPassword issues a reset code for an existing account.
func HandleForgotPassword(users core.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil || strings.TrimSpace(req.Email) == "" {
			failAuth(w, r, http.StatusBadRequest, "Email is required")
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))

		if _, err := users.UserByEmail(r.Context(), email); err != nil {
			failAuth(w, r, http.StatusBadRequest, "No account for this email")
			return
		}

		code, err := issueOTP(email)
		if err != nil {
			logrus.WithError(err).Error("Failed to generate OTP")
			failAuth(w, r, http.StatusInternalServerError, "Failed to generate OTP")
			return
		}
		deliverOTP(email, code)
		render.JSON(w, r, map[string]string{"msg": "OTP sent"})
	}
}

// HandleResetPassword sets a new password after code verification.
func HandleResetPassword(users core.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email       string `json:"email"`
			OTP         string `json:"otp"`
			NewPassword string `json:"newPassword"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			failAuth(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))

		if !consumeOTP(email, req.OTP) {
			failAuth(w, r, http.StatusBadRequest, "Invalid or expired OTP")
			return
		}
		if strings.TrimSpace(req.NewPassword) == "" {
			failAuth(w, r, http.StatusBadRequest, "New password is required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Error("Failed to hash password")
			failAuth(w, r, http.StatusInternalServerError, "Password reset failed")
			return
		}
		if err := users.SetPassword(r.Context(), email, string(hash)); err != nil {
			logrus.WithField("email", email).WithError(err).Error("Failed to set password")
			failAuth(w, r, http.StatusBadRequest, "Password reset failed")
			return
		}

		render.JSON(w, r, map[string]string{"msg": "Password reset successfully"})
	}
}
