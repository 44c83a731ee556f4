package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/techagentng/sakany/db"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
)

const featuredLimit = 3

var ErrNotLandlord = apiError.New("only landlords can list properties", http.StatusForbidden)

type PropertyService interface {
	CreateProperty(owner *models.User, request *models.PropertyRequest) (*models.Property, error)
	// GetProperty hides listings that are not approved from everyone but
	// their owner and admins.
	GetProperty(id uint, viewer *models.User) (*models.Property, error)
	ListProperties(filter models.PropertyFilter) ([]models.Property, int64, error)
	FeaturedProperties() ([]models.Property, error)
	ListUserProperties(userID uint) ([]models.Property, error)
	ListPending() ([]models.Property, error)
	UpdateProperty(id uint, actor *models.User, request *models.PropertyRequest) (*models.Property, error)
	UpdateStatus(id uint, actor *models.User, status string) (*models.Property, error)
	DeleteProperty(ctx context.Context, id uint, actor *models.User) error
	AddImages(ctx context.Context, id uint, actor *models.User, files []*multipart.FileHeader) (*models.Property, error)
	RemoveImage(ctx context.Context, id uint, actor *models.User, index int) (*models.Property, error)
	Approve(id uint) (*models.Property, error)
	Reject(id uint, note string) (*models.Property, error)
}

type propertyService struct {
	propertyRepo db.PropertyRepository
	media        MediaService
}

func NewPropertyService(propertyRepo db.PropertyRepository, media MediaService) PropertyService {
	return &propertyService{propertyRepo: propertyRepo, media: media}
}

func (p *propertyService) CreateProperty(owner *models.User, request *models.PropertyRequest) (*models.Property, error) {
	if !owner.IsLandlord && !owner.IsAdmin {
		return nil, ErrNotLandlord
	}
	if err := checkListingKind(request.ForSale, request.ForRent); err != nil {
		return nil, err
	}

	property := &models.Property{
		UserID:         owner.ID,
		Status:         models.StatusActive,
		ApprovalStatus: models.ApprovalPending,
	}
	applyRequest(property, request, owner.IsAdmin)
	if err := p.propertyRepo.CreateProperty(property); err != nil {
		return nil, err
	}
	return property, nil
}

func applyRequest(property *models.Property, request *models.PropertyRequest, isAdmin bool) {
	property.Title = request.Title
	property.Description = request.Description
	property.Price = request.Price
	property.Location = request.Location
	property.Bedrooms = request.Bedrooms
	property.Bathrooms = request.Bathrooms
	property.Area = request.Area
	property.Type = request.Type
	property.Features = cleanFeatures(request.Features)
	property.ForSale = request.ForSale
	property.ForRent = request.ForRent
	if isAdmin {
		property.Featured = request.Featured
	}
}

func cleanFeatures(features []string) []string {
	out := make([]string, 0, len(features))
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		f = strings.TrimSpace(f)
		key := strings.ToLower(f)
		if f == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func checkListingKind(forSale, forRent bool) error {
	if !forSale && !forRent {
		return apiError.Validation("a property must be for sale, for rent, or both")
	}
	return nil
}

func checkStatus(property *models.Property, status string) error {
	switch status {
	case models.StatusSold:
		if !property.ForSale {
			return apiError.Validation("only properties for sale can be marked sold")
		}
	case models.StatusRented:
		if !property.ForRent {
			return apiError.Validation("only properties for rent can be marked rented")
		}
	case models.StatusActive, models.StatusInactive:
	default:
		return apiError.Validation(fmt.Sprintf("unknown status %q", status))
	}
	return nil
}

func (p *propertyService) GetProperty(id uint, viewer *models.User) (*models.Property, error) {
	property, err := p.propertyRepo.FindPropertyByID(id)
	if err != nil {
		return nil, err
	}
	if !property.IsApproved() && !property.CanBeManagedBy(viewer) {
		return nil, apiError.ErrNotFound
	}
	return property, nil
}

func (p *propertyService) ListProperties(filter models.PropertyFilter) ([]models.Property, int64, error) {
	filter.Approval = models.ApprovalApproved
	filter.OwnerID = 0
	return p.propertyRepo.ListProperties(filter)
}

func (p *propertyService) FeaturedProperties() ([]models.Property, error) {
	featured := true
	properties, _, err := p.propertyRepo.ListProperties(models.PropertyFilter{
		Approval: models.ApprovalApproved,
		Featured: &featured,
		Limit:    featuredLimit,
	})
	return properties, err
}

func (p *propertyService) ListUserProperties(userID uint) ([]models.Property, error) {
	properties, _, err := p.propertyRepo.ListProperties(models.PropertyFilter{OwnerID: userID})
	return properties, err
}

func (p *propertyService) ListPending() ([]models.Property, error) {
	properties, _, err := p.propertyRepo.ListProperties(models.PropertyFilter{Approval: models.ApprovalPending})
	return properties, err
}

// managed loads a property the actor may change.
func (p *propertyService) managed(id uint, actor *models.User) (*models.Property, error) {
	property, err := p.propertyRepo.FindPropertyByID(id)
	if err != nil {
		return nil, err
	}
	if !property.CanBeManagedBy(actor) {
		return nil, apiError.ErrForbidden
	}
	return property, nil
}

func (p *propertyService) UpdateProperty(id uint, actor *models.User, request *models.PropertyRequest) (*models.Property, error) {
	property, err := p.managed(id, actor)
	if err != nil {
		return nil, err
	}
	if err := checkListingKind(request.ForSale, request.ForRent); err != nil {
		return nil, err
	}
	applyRequest(property, request, actor.IsAdmin)
	if err := checkStatus(property, property.Status); err != nil {
		return nil, err
	}
	// Owner edits go back through review.
	if !actor.IsAdmin {
		property.ApprovalStatus = models.ApprovalPending
		property.RejectionNote = ""
	}
	if err := p.propertyRepo.UpdateProperty(property); err != nil {
		return nil, err
	}
	return property, nil
}

func (p *propertyService) UpdateStatus(id uint, actor *models.User, status string) (*models.Property, error) {
	property, err := p.managed(id, actor)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(property, status); err != nil {
		return nil, err
	}
	property.Status = status
	if err := p.propertyRepo.UpdateProperty(property); err != nil {
		return nil, err
	}
	return property, nil
}

func (p *propertyService) DeleteProperty(ctx context.Context, id uint, actor *models.User) error {
	property, err := p.managed(id, actor)
	if err != nil {
		return err
	}
	if err := p.propertyRepo.DeleteProperty(id); err != nil {
		return err
	}
	p.media.DeleteImages(ctx, property.Images)
	return nil
}

func (p *propertyService) AddImages(ctx context.Context, id uint, actor *models.User, files []*multipart.FileHeader) (*models.Property, error) {
	property, err := p.managed(id, actor)
	if err != nil {
		return nil, err
	}
	if len(property.Images)+len(files) > MaxPropertyImages {
		return nil, apiError.Validation(fmt.Sprintf("a property can have at most %d images", MaxPropertyImages))
	}
	images, err := p.media.ProcessImages(ctx, property.ID, files)
	if err != nil {
		return nil, err
	}
	property.Images = append(property.Images, images...)
	if err := p.propertyRepo.UpdateProperty(property); err != nil {
		p.media.DeleteImages(ctx, images)
		return nil, err
	}
	return property, nil
}

func (p *propertyService) RemoveImage(ctx context.Context, id uint, actor *models.User, index int) (*models.Property, error) {
	property, err := p.managed(id, actor)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(property.Images) {
		return nil, apiError.ErrNotFound
	}
	removed := property.Images[index]
	property.Images = append(property.Images[:index], property.Images[index+1:]...)
	if err := p.propertyRepo.UpdateProperty(property); err != nil {
		return nil, err
	}
	p.media.DeleteImages(ctx, []models.PropertyImage{removed})
	return property, nil
}

func (p *propertyService) Approve(id uint) (*models.Property, error) {
	return p.review(id, models.ApprovalApproved, "")
}

func (p *propertyService) Reject(id uint, note string) (*models.Property, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, apiError.Validation("a rejection note is required")
	}
	return p.review(id, models.ApprovalRejected, note)
}

func (p *propertyService) review(id uint, approval, note string) (*models.Property, error) {
	property, err := p.propertyRepo.FindPropertyByID(id)
	if err != nil {
		return nil, err
	}
	property.ApprovalStatus = approval
	property.RejectionNote = note
	if err := p.propertyRepo.UpdateProperty(property); err != nil {
		return nil, err
	}
	log.Printf("property %d %s", id, approval)
	return property, nil
}
