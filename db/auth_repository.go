package db

import (
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
	"gorm.io/gorm"
)

type AuthRepository interface {
	CreateUser(user *models.User) (*models.User, error)
	IsEmailExist(email string) error
	FindUserByID(id uint) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	FindUserByResetToken(token string, now time.Time) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id uint) error
	GetAllUsers() ([]models.User, error)
	AddToBlackList(blacklist *models.Blacklist) error
	IsTokenInBlacklist(token string) bool
}

type authRepo struct {
	DB *gorm.DB
}

func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (a *authRepo) CreateUser(user *models.User) (*models.User, error) {
	if user == nil {
		log.Println("CreateUser error: user is nil")
		return nil, errors.New("user is nil")
	}
	if err := a.IsEmailExist(user.Email); err != nil {
		return nil, err
	}

	result := a.DB.Create(user)
	if result.Error != nil {
		log.Printf("CreateUser error: %v", result.Error)
		return nil, apiError.GetUniqueContraintError(result.Error)
	}
	return user, nil
}

func (a *authRepo) IsEmailExist(email string) error {
	var count int64
	err := a.DB.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "gorm count error")
	}
	if count > 0 {
		return apiError.ErrEmailExists
	}
	return nil
}

func (a *authRepo) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	err := a.DB.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, wrapNotFound(err, "user")
	}
	return &user, nil
}

func (a *authRepo) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := a.DB.Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		return nil, wrapNotFound(err, "user")
	}
	return &user, nil
}

func (a *authRepo) FindUserByResetToken(token string, now time.Time) (*models.User, error) {
	var user models.User
	err := a.DB.Where("password_reset_token = ? AND password_reset_expires > ?", token, now).First(&user).Error
	if err != nil {
		return nil, wrapNotFound(err, "reset token")
	}
	return &user, nil
}

func (a *authRepo) UpdateUser(user *models.User) error {
	if err := a.DB.Save(user).Error; err != nil {
		return apiError.GetUniqueContraintError(err)
	}
	return nil
}

// DeleteUser soft deletes the account; gorm sets deleted_at.
func (a *authRepo) DeleteUser(id uint) error {
	result := a.DB.Delete(&models.User{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "deleting user")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(apiError.ErrNotFound, "user")
	}
	return nil
}

func (a *authRepo) GetAllUsers() ([]models.User, error) {
	var users []models.User
	if err := a.DB.Order("id ASC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	return users, nil
}

func (a *authRepo) AddToBlackList(blacklist *models.Blacklist) error {
	return a.DB.Create(blacklist).Error
}

func (a *authRepo) IsTokenInBlacklist(token string) bool {
	var count int64
	a.DB.Model(&models.Blacklist{}).Where("token = ?", strings.TrimSpace(token)).Count(&count)
	return count > 0
}

// wrapNotFound turns gorm.ErrRecordNotFound into the API not-found error.
func wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(apiError.ErrNotFound, what)
	}
	return errors.Wrapf(err, "finding %s", what)
}
