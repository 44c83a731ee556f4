package models

import (
	"time"
)

const (
	StatusActive   = "active"
	StatusSold     = "sold"
	StatusRented   = "rented"
	StatusInactive = "inactive"

	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Property is a listing owned by a landlord.
type Property struct {
	ID             uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID         uint            `json:"userId" gorm:"not null;index"`
	Title          string          `json:"title" gorm:"not null"`
	Description    string          `json:"description" gorm:"type:text;not null"`
	Price          int64           `json:"price" gorm:"not null;index"`
	Location       string          `json:"location" gorm:"not null;index"`
	Bedrooms       int             `json:"bedrooms"`
	Bathrooms      int             `json:"bathrooms"`
	Area           int             `json:"area"`
	Type           string          `json:"type" gorm:"index"`
	Features       []string        `json:"features" gorm:"serializer:json"`
	ForSale        bool            `json:"forSale"`
	ForRent        bool            `json:"forRent"`
	Featured       bool            `json:"featured" gorm:"default:false"`
	Status         string          `json:"status" gorm:"type:varchar(20);default:'active';index"`
	ApprovalStatus string          `json:"approvalStatus" gorm:"type:varchar(20);default:'pending';index"`
	RejectionNote  string          `json:"rejectionNote,omitempty" gorm:"type:text"`
	Images         []PropertyImage `json:"images" gorm:"serializer:json"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// PropertyImage references a stored listing image and its thumbnail.
type PropertyImage struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	ThumbnailKey string `json:"thumbnailKey"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// IsApproved reports whether the listing is publicly visible.
func (p *Property) IsApproved() bool {
	return p.ApprovalStatus == ApprovalApproved
}

// CanBeManagedBy reports whether user may edit or delete the listing.
func (p *Property) CanBeManagedBy(user *User) bool {
	return user != nil && (user.IsAdmin || user.ID == p.UserID)
}

type PropertyRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=200" conform:"trim"`
	Description string   `json:"description" validate:"required" conform:"trim"`
	Price       int64    `json:"price" validate:"required,gt=0"`
	Location    string   `json:"location" validate:"required" conform:"trim"`
	Bedrooms    int      `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int      `json:"bathrooms" validate:"gte=0"`
	Area        int      `json:"area" validate:"gte=0"`
	Type        string   `json:"type" validate:"required,oneof=apartment house villa studio land other" conform:"lower"`
	Features    []string `json:"features"`
	ForSale     bool     `json:"forSale"`
	ForRent     bool     `json:"forRent"`
	Featured    bool     `json:"featured"`
}

type PropertyStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active sold rented inactive" conform:"lower"`
}

type RejectPropertyRequest struct {
	Note string `json:"note" validate:"required" conform:"trim"`
}

// PropertyFilter narrows public listing queries. Zero values do not filter.
type PropertyFilter struct {
	Location string
	Type     string
	MinPrice int64
	MaxPrice int64
	Bedrooms int
	ForSale  *bool
	ForRent  *bool
	Featured *bool
	OwnerID  uint
	Approval string
	Page     int
	Limit    int
}

// Matches applies the filter to p in memory.
func (f PropertyFilter) Matches(p *Property) bool {
	switch {
	case f.Approval != "" && p.ApprovalStatus != f.Approval:
		return false
	case f.OwnerID != 0 && p.UserID != f.OwnerID:
		return false
	case f.Location != "" && !containsFold(p.Location, f.Location):
		return false
	case f.Type != "" && p.Type != f.Type:
		return false
	case f.MinPrice > 0 && p.Price < f.MinPrice:
		return false
	case f.MaxPrice > 0 && p.Price > f.MaxPrice:
		return false
	case f.Bedrooms > 0 && p.Bedrooms < f.Bedrooms:
		return false
	case f.ForSale != nil && p.ForSale != *f.ForSale:
		return false
	case f.ForRent != nil && p.ForRent != *f.ForRent:
		return false
	case f.Featured != nil && p.Featured != *f.Featured:
		return false
	}
	return true
}
