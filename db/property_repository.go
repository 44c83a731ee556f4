package db

import (
	"github.com/pkg/errors"
	"github.com/techagentng/sakany/models"
	"gorm.io/gorm"
)

type PropertyRepository interface {
	CreateProperty(property *models.Property) error
	FindPropertyByID(id uint) (*models.Property, error)
	ListProperties(filter models.PropertyFilter) ([]models.Property, int64, error)
	UpdateProperty(property *models.Property) error
	DeleteProperty(id uint) error
}

type propertyRepo struct {
	DB *gorm.DB
}

func NewPropertyRepo(db *GormDB) PropertyRepository {
	return &propertyRepo{db.DB}
}

func (r *propertyRepo) CreateProperty(property *models.Property) error {
	if err := r.DB.Create(property).Error; err != nil {
		return errors.Wrap(err, "creating property")
	}
	return nil
}

func (r *propertyRepo) FindPropertyByID(id uint) (*models.Property, error) {
	var property models.Property
	if err := r.DB.First(&property, id).Error; err != nil {
		return nil, wrapNotFound(err, "property")
	}
	return &property, nil
}

func (r *propertyRepo) ListProperties(filter models.PropertyFilter) ([]models.Property, int64, error) {
	query := r.DB.Model(&models.Property{})
	if filter.Approval != "" {
		query = query.Where("approval_status = ?", filter.Approval)
	}
	if filter.OwnerID != 0 {
		query = query.Where("user_id = ?", filter.OwnerID)
	}
	if filter.Location != "" {
		query = query.Where("location ILIKE ?", "%"+filter.Location+"%")
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.MinPrice > 0 {
		query = query.Where("price >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("price <= ?", filter.MaxPrice)
	}
	if filter.Bedrooms > 0 {
		query = query.Where("bedrooms >= ?", filter.Bedrooms)
	}
	if filter.ForSale != nil {
		query = query.Where("for_sale = ?", *filter.ForSale)
	}
	if filter.ForRent != nil {
		query = query.Where("for_rent = ?", *filter.ForRent)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting properties")
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var properties []models.Property
	if err := query.Find(&properties).Error; err != nil {
		return nil, 0, errors.Wrap(err, "listing properties")
	}
	return properties, total, nil
}

func (r *propertyRepo) UpdateProperty(property *models.Property) error {
	if err := r.DB.Save(property).Error; err != nil {
		return errors.Wrap(err, "updating property")
	}
	return nil
}

func (r *propertyRepo) DeleteProperty(id uint) error {
	result := r.DB.Delete(&models.Property{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "deleting property")
	}
	if result.RowsAffected == 0 {
		return wrapNotFound(gorm.ErrRecordNotFound, "property")
	}
	return nil
}
