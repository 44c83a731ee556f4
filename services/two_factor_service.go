package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/sakany/db"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/mailingservices"
	"github.com/techagentng/sakany/models"
)

const (
	TwoFactorMethodEmail = "email"
	TwoFactorMethodSMS   = "sms"

	twoFactorCodeTTL = 5 * time.Minute
)

var (
	ErrInvalidCode     = apiError.New("invalid or expired verification code", http.StatusBadRequest)
	ErrPhoneMismatch   = apiError.New("verified phone number does not match your profile", http.StatusBadRequest)
	ErrPhoneNotSet     = apiError.New("add a phone number to your profile first", http.StatusBadRequest)
	ErrPhoneAuthAbsent = apiError.New("phone verification is not configured", http.StatusServiceUnavailable)
)

type TwoFactorService interface {
	Toggle(userID uint, enabled bool) (*models.User, error)
	SendCode(ctx context.Context, userID uint) error
	// VerifyCode checks an emailed code and turns email 2FA on.
	VerifyCode(ctx context.Context, userID uint, code string) (*models.User, error)
	// VerifySMS checks a Firebase phone ID token and turns phone 2FA on.
	VerifySMS(ctx context.Context, userID uint, idToken string) (*models.User, error)
	// CheckCode consumes a pending emailed code without changing settings.
	CheckCode(ctx context.Context, userID uint, code string) error
	CheckPhone(ctx context.Context, user *models.User, idToken string) error
}

type twoFactorService struct {
	authRepo db.AuthRepository
	codes    db.CodeStore
	mail     mailingservices.Mailer
	phones   PhoneVerifier
	now      func() time.Time
}

// NewTwoFactorService builds the service. phones may be nil when Firebase is
// not configured; SMS verification then reports ErrPhoneAuthAbsent.
func NewTwoFactorService(authRepo db.AuthRepository, codes db.CodeStore, mail mailingservices.Mailer, phones PhoneVerifier) TwoFactorService {
	return &twoFactorService{
		authRepo: authRepo,
		codes:    codes,
		mail:     mail,
		phones:   phones,
		now:      time.Now,
	}
}

func (t *twoFactorService) Toggle(userID uint, enabled bool) (*models.User, error) {
	user, err := t.authRepo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	user.TwoFactorEnabled = enabled
	if enabled {
		secret, err := randomHex(20)
		if err != nil {
			return nil, err
		}
		user.TwoFactorSecret = secret
	} else {
		user.TwoFactorSecret = ""
	}
	if err := t.authRepo.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (t *twoFactorService) SendCode(ctx context.Context, userID uint) error {
	user, err := t.authRepo.FindUserByID(userID)
	if err != nil {
		return err
	}
	return t.sendCode(ctx, user)
}

func (t *twoFactorService) sendCode(ctx context.Context, user *models.User) error {
	code, err := sixDigitCode()
	if err != nil {
		return err
	}
	if err := t.codes.SaveCode(ctx, db.TwoFactorCodeKey(user.ID), code, twoFactorCodeTTL); err != nil {
		return apiError.StoreUnavailable(err)
	}
	body := fmt.Sprintf("Your Sakany verification code is %s. It expires in 5 minutes.", code)
	if _, err := t.mail.SendSimpleMessage(ctx, user.Email, "Your verification code", body); err != nil {
		log.Printf("sending 2fa code to user %d: %v", user.ID, err)
		return apiError.ErrServiceUnavailable
	}
	return nil
}

func (t *twoFactorService) CheckCode(ctx context.Context, userID uint, code string) error {
	key := db.TwoFactorCodeKey(userID)
	stored, err := t.codes.GetCode(ctx, key)
	if errors.Is(err, apiError.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return apiError.StoreUnavailable(err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return ErrInvalidCode
	}
	if err := t.codes.DeleteCode(ctx, key); err != nil {
		log.Printf("deleting used 2fa code of user %d: %v", userID, err)
	}
	return nil
}

func (t *twoFactorService) VerifyCode(ctx context.Context, userID uint, code string) (*models.User, error) {
	if err := t.CheckCode(ctx, userID, code); err != nil {
		return nil, err
	}
	user, err := t.authRepo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	user.TwoFactorEnabled = true
	if err := t.authRepo.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (t *twoFactorService) CheckPhone(ctx context.Context, user *models.User, idToken string) error {
	if t.phones == nil {
		return ErrPhoneAuthAbsent
	}
	if user.Phone == "" {
		return ErrPhoneNotSet
	}
	phone, uid, err := t.phones.VerifyPhoneToken(ctx, idToken)
	if err != nil {
		log.Printf("phone verification for user %d: %v", user.ID, err)
		return apiError.ErrInvalidToken
	}
	if normalizePhone(phone) != normalizePhone(user.Phone) {
		return ErrPhoneMismatch
	}
	if user.FirebaseUID == "" {
		user.FirebaseUID = uid
	}
	return nil
}

func (t *twoFactorService) VerifySMS(ctx context.Context, userID uint, idToken string) (*models.User, error) {
	user, err := t.authRepo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if err := t.CheckPhone(ctx, user, idToken); err != nil {
		return nil, err
	}
	now := t.now()
	user.PhoneTwoFactorEnabled = true
	user.LastSMSVerificationAt = &now
	if err := t.authRepo.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.Wrap(err, "generating code")
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating secret")
	}
	return hex.EncodeToString(buf), nil
}
