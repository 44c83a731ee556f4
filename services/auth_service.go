package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/sakany/config"
	"github.com/techagentng/sakany/db"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/mailingservices"
	"github.com/techagentng/sakany/models"
	"github.com/techagentng/sakany/services/jwt"
)

const (
	challengeTokenTTL = 10 * time.Minute
	resetTokenTTL     = time.Hour
)

var ErrWrongCurrentPassword = apiError.New("current password is incorrect", http.StatusBadRequest)

// AuthService interface
type AuthService interface {
	SignupUser(request *models.RegisterRequest) (*models.LoginResponse, error)
	// LoginUser returns either a token pair or, for accounts with a second
	// factor, a challenge to complete with CompleteTwoFactorLogin.
	LoginUser(ctx context.Context, request *models.LoginRequest) (*models.LoginResponse, *models.TwoFactorChallenge, error)
	CompleteTwoFactorLogin(ctx context.Context, request *models.TwoFactorLoginRequest) (*models.LoginResponse, error)
	Logout(accessToken string) error
	GetUserProfile(userID uint) (*models.User, error)
	EditUserProfile(userID uint, request *models.UpdateProfileRequest) (*models.User, error)
	DeleteAccount(userID uint, accessToken string) error
	SendEmailForPasswordReset(ctx context.Context, request *models.ForgotPassword) error
	ResetPassword(request *models.ResetPassword) error
	SetDeviceToken(userID uint, token string) error
	GetAllUsers() ([]models.User, error)
	AdminUpdateUser(userID uint, request *models.AdminUpdateUserRequest) (*models.User, error)
	AdminDeleteUser(ctx context.Context, userID uint) error
}

// authService struct
type authService struct {
	Config    *config.Config
	authRepo  db.AuthRepository
	twoFactor TwoFactorService
	mail      mailingservices.Mailer
	accounts  AccountDeleter
	now       func() time.Time
}

// NewAuthService instantiate an authService. accounts may be nil.
func NewAuthService(authRepo db.AuthRepository, twoFactor TwoFactorService, mail mailingservices.Mailer, accounts AccountDeleter, conf *config.Config) AuthService {
	return &authService{
		Config:    conf,
		authRepo:  authRepo,
		twoFactor: twoFactor,
		mail:      mail,
		accounts:  accounts,
		now:       time.Now,
	}
}

func (a *authService) SignupUser(request *models.RegisterRequest) (*models.LoginResponse, error) {
	if err := models.ValidatePassword(request.Password); err != nil {
		return nil, apiError.Validation(err.Error())
	}
	hashedPassword, err := models.HashPassword(request.Password)
	if err != nil {
		log.Printf("SignupUser error hashing password: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	user := &models.User{
		Email:          strings.ToLower(request.Email),
		Name:           request.Name,
		IsLandlord:     request.IsLandlord,
		HashedPassword: hashedPassword,
	}
	user, err = a.authRepo.CreateUser(user)
	if err != nil {
		log.Printf("SignupUser error creating user: %v", err)
		return nil, err
	}

	body := fmt.Sprintf("Hi %s,\n\nWelcome to Sakany. Your account is ready.", user.Name)
	if _, err := a.mail.SendSimpleMessage(context.Background(), user.Email, "Welcome to Sakany", body); err != nil {
		log.Printf("SignupUser welcome mail: %v", err)
	}
	return a.issueTokens(user)
}

func (a *authService) LoginUser(ctx context.Context, request *models.LoginRequest) (*models.LoginResponse, *models.TwoFactorChallenge, error) {
	foundUser, err := a.authRepo.FindUserByEmail(request.Email)
	if err != nil {
		if errors.Is(err, apiError.ErrNotFound) {
			return nil, nil, apiError.ErrInvalidPassword
		}
		return nil, nil, err
	}
	if err := foundUser.VerifyPassword(request.Password); err != nil {
		return nil, nil, apiError.ErrInvalidPassword
	}

	method := ""
	switch {
	case foundUser.TwoFactorEnabled:
		method = TwoFactorMethodEmail
		if err := a.twoFactor.SendCode(ctx, foundUser.ID); err != nil {
			return nil, nil, err
		}
	case foundUser.PhoneTwoFactorEnabled:
		method = TwoFactorMethodSMS
	}
	if method != "" {
		token, err := jwt.GenerateChallengeToken(foundUser.ID, method, a.Config.JWTSecret, challengeTokenTTL)
		if err != nil {
			log.Printf("LoginUser challenge token: %v", err)
			return nil, nil, apiError.ErrInternalServerError
		}
		return nil, &models.TwoFactorChallenge{TwoFactorRequired: true, ChallengeToken: token, Method: method}, nil
	}

	response, err := a.completeLogin(foundUser)
	return response, nil, err
}

func (a *authService) CompleteTwoFactorLogin(ctx context.Context, request *models.TwoFactorLoginRequest) (*models.LoginResponse, error) {
	userID, claims, err := jwt.ValidateTyped(request.ChallengeToken, a.Config.JWTSecret, jwt.ChallengeTokenType)
	if err != nil {
		return nil, apiError.ErrInvalidToken
	}
	user, err := a.authRepo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	switch method, _ := claims["method"].(string); method {
	case TwoFactorMethodEmail:
		if err := a.twoFactor.CheckCode(ctx, user.ID, request.Code); err != nil {
			return nil, err
		}
	case TwoFactorMethodSMS:
		if err := a.twoFactor.CheckPhone(ctx, user, request.IDToken); err != nil {
			return nil, err
		}
		now := a.now()
		user.LastSMSVerificationAt = &now
	default:
		return nil, apiError.ErrInvalidToken
	}
	return a.completeLogin(user)
}

func (a *authService) completeLogin(user *models.User) (*models.LoginResponse, error) {
	now := a.now()
	user.LastLoginAt = &now
	if err := a.authRepo.UpdateUser(user); err != nil {
		log.Printf("recording login of user %d: %v", user.ID, err)
	}
	return a.issueTokens(user)
}

func (a *authService) issueTokens(user *models.User) (*models.LoginResponse, error) {
	accessToken, refreshToken, err := jwt.GenerateTokenPair(user.Email, a.Config.JWTSecret, user.IsAdmin, user.ID,
		a.Config.AccessTokenTTL, a.Config.RefreshTokenTTL)
	if err != nil {
		log.Printf("Error generating token pair: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return &models.LoginResponse{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (a *authService) Logout(accessToken string) error {
	return a.authRepo.AddToBlackList(&models.Blacklist{Token: accessToken, CreatedAt: a.now()})
}

func (a *authService) GetUserProfile(userID uint) (*models.User, error) {
	return a.authRepo.FindUserByID(userID)
}

func (a *authService) EditUserProfile(userID uint, request *models.UpdateProfileRequest) (*models.User, error) {
	user, err := a.authRepo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	if request.Name != nil {
		user.Name = strings.TrimSpace(*request.Name)
	}
	if request.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*request.Email))
		if email != user.Email {
			if err := a.authRepo.IsEmailExist(email); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if request.Password != nil {
		if err := user.VerifyPassword(request.CurrentPassword); err != nil {
			return nil, ErrWrongCurrentPassword
		}
		if err := models.ValidatePassword(*request.Password); err != nil {
			return nil, apiError.Validation(err.Error())
		}
		hashed, err := models.HashPassword(*request.Password)
		if err != nil {
			return nil, apiError.ErrInternalServerError
		}
		user.HashedPassword = hashed
	}
	if request.IsLandlord != nil {
		user.IsLandlord = *request.IsLandlord
	}
	if request.Phone != nil && *request.Phone != user.Phone {
		user.Phone = *request.Phone
		user.PhoneTwoFactorEnabled = false
		user.LastSMSVerificationAt = nil
	}
	if request.Preferences != nil {
		user.Preferences = request.Preferences
	}

	if err := a.authRepo.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *authService) DeleteAccount(userID uint, accessToken string) error {
	if err := a.authRepo.DeleteUser(userID); err != nil {
		return err
	}
	if accessToken != "" {
		return a.Logout(accessToken)
	}
	return nil
}

func (a *authService) SendEmailForPasswordReset(ctx context.Context, request *models.ForgotPassword) error {
	user, err := a.authRepo.FindUserByEmail(request.Email)
	if err != nil {
		if errors.Is(err, apiError.ErrNotFound) {
			// Unknown addresses get the same response as known ones.
			return nil
		}
		return err
	}

	expires := a.now().Add(resetTokenTTL)
	user.PasswordResetToken = uuid.NewString()
	user.PasswordResetExpires = &expires
	if err := a.authRepo.UpdateUser(user); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(a.Config.BaseUrl, "/"), user.PasswordResetToken)
	body := fmt.Sprintf("Hi %s,\n\nReset your password with the link below. It is valid for one hour.\n\n%s", user.Name, link)
	if _, err := a.mail.SendSimpleMessage(ctx, user.Email, "Reset your Sakany password", body); err != nil {
		log.Printf("SendEmailForPasswordReset: %v", err)
		return apiError.ErrServiceUnavailable
	}
	return nil
}

func (a *authService) ResetPassword(request *models.ResetPassword) error {
	user, err := a.authRepo.FindUserByResetToken(request.Token, a.now())
	if err != nil {
		if errors.Is(err, apiError.ErrNotFound) {
			return apiError.ErrInvalidToken
		}
		return err
	}
	if err := models.ValidatePassword(request.Password); err != nil {
		return apiError.Validation(err.Error())
	}
	hashed, err := models.HashPassword(request.Password)
	if err != nil {
		return apiError.ErrInternalServerError
	}
	user.HashedPassword = hashed
	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil
	return a.authRepo.UpdateUser(user)
}

func (a *authService) SetDeviceToken(userID uint, token string) error {
	user, err := a.authRepo.FindUserByID(userID)
	if err != nil {
		return err
	}
	user.DeviceToken = token
	return a.authRepo.UpdateUser(user)
}

func (a *authService) GetAllUsers() ([]models.User, error) {
	return a.authRepo.GetAllUsers()
}

func (a *authService) AdminUpdateUser(userID uint, request *models.AdminUpdateUserRequest) (*models.User, error) {
	user, err := a.authRepo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if request.Name != nil {
		user.Name = strings.TrimSpace(*request.Name)
	}
	if request.IsLandlord != nil {
		user.IsLandlord = *request.IsLandlord
	}
	if request.IsAdmin != nil {
		user.IsAdmin = *request.IsAdmin
	}
	if err := a.authRepo.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *authService) AdminDeleteUser(ctx context.Context, userID uint) error {
	user, err := a.authRepo.FindUserByID(userID)
	if err != nil {
		return err
	}
	if err := a.authRepo.DeleteUser(userID); err != nil {
		return err
	}
	if a.accounts != nil && user.FirebaseUID != "" {
		if err := a.accounts.DeleteAccount(ctx, user.FirebaseUID); err != nil {
			log.Printf("AdminDeleteUser firebase cleanup for user %d: %v", userID, err)
		}
	}
	return nil
}
