package models

import (
	"errors"
	"fmt"
	"time"

	goval "github.com/go-passwd/validator"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/leebenson/conform"
	"golang.org/x/crypto/bcrypt"
)

// User represents an account of the application
type User struct {
	Model
	Email                 string       `json:"email" gorm:"uniqueIndex;not null"`
	Name                  string       `json:"name" gorm:"not null"`
	HashedPassword        string       `json:"-"`
	IsLandlord            bool         `json:"isLandlord" gorm:"default:false"`
	IsAdmin               bool         `json:"isAdmin" gorm:"default:false"`
	TwoFactorEnabled      bool         `json:"twoFactorEnabled" gorm:"default:false"`
	TwoFactorSecret       string       `json:"-"`
	Phone                 string       `json:"phone,omitempty"`
	PhoneTwoFactorEnabled bool         `json:"phoneTwoFactorEnabled" gorm:"default:false"`
	LastSMSVerificationAt *time.Time   `json:"lastSmsVerificationAt,omitempty"`
	FirebaseUID           string       `json:"-" gorm:"index"`
	DeviceToken           string       `json:"-"`
	PasswordResetToken    string       `json:"-" gorm:"index"`
	PasswordResetExpires  *time.Time   `json:"-"`
	LastLoginAt           *time.Time   `json:"lastLoginAt,omitempty"`
	Preferences           *Preferences `json:"preferences,omitempty" gorm:"serializer:json"`
}

type Preferences struct {
	Location     string   `json:"location"`
	Budget       int64    `json:"budget"`
	PropertyType string   `json:"propertyType"`
	Lifestyle    []string `json:"lifestyle"`
}

// PublicUser is the profile subset other users may see.
type PublicUser struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsLandlord bool   `json:"isLandlord"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsLandlord: u.IsLandlord,
	}
}

type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email" conform:"email"`
	Password   string `json:"password" validate:"required,min=6"`
	Name       string `json:"name" validate:"required,min=1" conform:"trim"`
	IsLandlord bool   `json:"isLandlord"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" conform:"email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TwoFactorChallenge is returned by login when a second factor is required.
type TwoFactorChallenge struct {
	TwoFactorRequired bool   `json:"two_factor_required"`
	ChallengeToken    string `json:"challenge_token"`
	Method            string `json:"method"`
}

type TwoFactorLoginRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code"`
	IDToken        string `json:"id_token"`
}

type UpdateProfileRequest struct {
	Name            *string      `json:"name" validate:"omitempty,min=1"`
	Email           *string      `json:"email" validate:"omitempty,email"`
	Password        *string      `json:"password" validate:"omitempty,min=6"`
	CurrentPassword string       `json:"currentPassword"`
	IsLandlord      *bool        `json:"isLandlord"`
	Phone           *string      `json:"phone" validate:"omitempty,e164"`
	Preferences     *Preferences `json:"preferences"`
}

type AdminUpdateUserRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1"`
	IsLandlord *bool   `json:"isLandlord"`
	IsAdmin    *bool   `json:"isAdmin"`
}

type ForgotPassword struct {
	Email string `json:"email" validate:"required,email" conform:"email"`
}

type ResetPassword struct {
	Token    string `json:"token" validate:"required" conform:"trim"`
	Password string `json:"password" validate:"required,min=6"`
}

type ToggleTwoFactorRequest struct {
	Enabled bool `json:"enabled"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric" conform:"trim"`
}

type VerifySMSRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type DeviceTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ = uni.GetTranslator("en")
	validate = validator.New()
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(fmt.Sprintf("registering validator translations: %v", err))
	}
}

// ValidateStruct trims whitespace in req and runs the struct validation rules.
// The returned error lists every failed rule in plain English.
func ValidateStruct(req interface{}) error {
	if err := validateWhiteSpaces(req); err != nil {
		return err
	}
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	errs := translateError(err, trans)
	if len(errs) == 0 {
		return err
	}
	return errors.Join(errs...)
}

func ValidatePassword(password string) error {
	passwordValidator := goval.New(goval.MinLength(6, errors.New("password cant be less than 6 characters")),
		goval.MaxLength(64, errors.New("password cant be more than 64 characters")))
	return passwordValidator.Validate(password)
}

func validateWhiteSpaces(data interface{}) error {
	return conform.Strings(data)
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}

// HashPassword hashes the provided password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword verifies the collected password with the user's hashed password
func (u *User) VerifyPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password))
}
