package services

import (
	"context"
	"mime/multipart"
	"testing"

	"github.com/pkg/errors"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
)

type propertyFixture struct {
	svc      PropertyService
	blobs    *memoryBlobs
	landlord *models.User
	other    *models.User
	admin    *models.User
	tenant   *models.User
}

func newPropertyFixture(t *testing.T) *propertyFixture {
	t.Helper()
	f := newServiceFixture(nil)
	blobs := newMemoryBlobs()
	repo := f.store.AuthRepository()

	mk := func(email string, landlord, admin bool) *models.User {
		u, err := repo.CreateUser(&models.User{Email: email, Name: email, IsLandlord: landlord, IsAdmin: admin})
		if err != nil {
			t.Fatal(err)
		}
		return u
	}
	return &propertyFixture{
		svc:      NewPropertyService(f.store.PropertyRepository(), NewMediaService(blobs)),
		blobs:    blobs,
		landlord: mk("landlord@example.com", true, false),
		other:    mk("other@example.com", true, false),
		admin:    mk("admin@example.com", false, true),
		tenant:   mk("tenant@example.com", false, false),
	}
}

func flatRequest() *models.PropertyRequest {
	return &models.PropertyRequest{
		Title:       "Sunny flat",
		Description: "Two bedrooms near the tram",
		Price:       4500,
		Location:    "Rabat, Agdal",
		Bedrooms:    2,
		Bathrooms:   1,
		Type:        "apartment",
		Features:    []string{"balcony", " Balcony ", "parking", ""},
		ForRent:     true,
		Featured:    true,
	}
}

func TestCreatePropertyRules(t *testing.T) {
	f := newPropertyFixture(t)

	if _, err := f.svc.CreateProperty(f.tenant, flatRequest()); !errors.Is(err, ErrNotLandlord) {
		t.Fatalf("tenant create err = %v", err)
	}

	req := flatRequest()
	req.ForRent = false
	if _, err := f.svc.CreateProperty(f.landlord, req); !errors.Is(err, apiError.ErrValidation) {
		t.Fatalf("neither sale nor rent err = %v", err)
	}

	p, err := f.svc.CreateProperty(f.landlord, flatRequest())
	if err != nil {
		t.Fatal(err)
	}
	if p.ApprovalStatus != models.ApprovalPending || p.Status != models.StatusActive {
		t.Fatalf("new property %+v", p)
	}
	if p.Featured {
		t.Error("landlord was able to feature their own listing")
	}
	if len(p.Features) != 2 {
		t.Errorf("features = %v, want deduplicated [balcony parking]", p.Features)
	}
}

func TestPropertyVisibilityAndApproval(t *testing.T) {
	f := newPropertyFixture(t)
	p, err := f.svc.CreateProperty(f.landlord, flatRequest())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.GetProperty(p.ID, f.tenant); !errors.Is(err, apiError.ErrNotFound) {
		t.Fatalf("pending listing visible to tenant: %v", err)
	}
	if _, err := f.svc.GetProperty(p.ID, nil); !errors.Is(err, apiError.ErrNotFound) {
		t.Fatalf("pending listing visible anonymously: %v", err)
	}
	if _, err := f.svc.GetProperty(p.ID, f.landlord); err != nil {
		t.Fatalf("owner cannot see own listing: %v", err)
	}
	if list, _, _ := f.svc.ListProperties(models.PropertyFilter{}); len(list) != 0 {
		t.Fatalf("public list shows pending listing")
	}
	if pending, _ := f.svc.ListPending(); len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	if _, err := f.svc.Reject(p.ID, "  "); !errors.Is(err, apiError.ErrValidation) {
		t.Fatalf("reject without note err = %v", err)
	}
	if _, err := f.svc.Approve(p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.GetProperty(p.ID, nil); err != nil {
		t.Fatalf("approved listing hidden: %v", err)
	}
	list, total, err := f.svc.ListProperties(models.PropertyFilter{Location: "agdal", MaxPrice: 5000})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("filtered list = %d/%d, %v", len(list), total, err)
	}

	// An owner edit sends the listing back to review.
	req := flatRequest()
	req.Price = 4800
	updated, err := f.svc.UpdateProperty(p.ID, f.landlord, req)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ApprovalStatus != models.ApprovalPending || updated.Price != 4800 {
		t.Fatalf("updated = %+v", updated)
	}

	rejected, err := f.svc.Reject(p.ID, "Photos missing")
	if err != nil || rejected.RejectionNote != "Photos missing" || rejected.ApprovalStatus != models.ApprovalRejected {
		t.Fatalf("Reject = %+v, %v", rejected, err)
	}
}

func TestUpdateRequiresOwnerOrAdmin(t *testing.T) {
	f := newPropertyFixture(t)
	p, _ := f.svc.CreateProperty(f.landlord, flatRequest())

	if _, err := f.svc.UpdateProperty(p.ID, f.other, flatRequest()); !errors.Is(err, apiError.ErrForbidden) {
		t.Fatalf("other landlord err = %v", err)
	}
	if err := f.svc.DeleteProperty(context.Background(), p.ID, f.other); !errors.Is(err, apiError.ErrForbidden) {
		t.Fatalf("other landlord delete err = %v", err)
	}

	if _, err := f.svc.Approve(p.ID); err != nil {
		t.Fatal(err)
	}
	updated, err := f.svc.UpdateProperty(p.ID, f.admin, flatRequest())
	if err != nil {
		t.Fatal(err)
	}
	if updated.ApprovalStatus != models.ApprovalApproved || !updated.Featured {
		t.Fatalf("admin edit = %+v", updated)
	}
	if featured, _ := f.svc.FeaturedProperties(); len(featured) != 1 {
		t.Fatalf("featured = %d, want 1", len(featured))
	}
}

func TestUpdateStatusRules(t *testing.T) {
	f := newPropertyFixture(t)
	p, _ := f.svc.CreateProperty(f.landlord, flatRequest())

	if _, err := f.svc.UpdateStatus(p.ID, f.landlord, models.StatusSold); !errors.Is(err, apiError.ErrValidation) {
		t.Fatalf("sold rental err = %v", err)
	}
	updated, err := f.svc.UpdateStatus(p.ID, f.landlord, models.StatusRented)
	if err != nil || updated.Status != models.StatusRented {
		t.Fatalf("UpdateStatus = %+v, %v", updated, err)
	}
	if _, err := f.svc.UpdateStatus(p.ID, f.landlord, "demolished"); !errors.Is(err, apiError.ErrValidation) {
		t.Fatalf("unknown status err = %v", err)
	}
}

func TestPropertyImages(t *testing.T) {
	f := newPropertyFixture(t)
	ctx := context.Background()
	p, _ := f.svc.CreateProperty(f.landlord, flatRequest())

	withImages, err := f.svc.AddImages(ctx, p.ID, f.landlord, []*multipart.FileHeader{pngUpload(t, "a.png", 64, 48), pngUpload(t, "b.png", 32, 32)})
	if err != nil {
		t.Fatalf("AddImages: %v", err)
	}
	if len(withImages.Images) != 2 || f.blobs.len() != 4 {
		t.Fatalf("images = %d, blobs = %d", len(withImages.Images), f.blobs.len())
	}

	removed, err := f.svc.RemoveImage(ctx, p.ID, f.landlord, 0)
	if err != nil || len(removed.Images) != 1 || f.blobs.len() != 2 {
		t.Fatalf("RemoveImage = %d images, %d blobs, %v", len(removed.Images), f.blobs.len(), err)
	}
	if _, err := f.svc.RemoveImage(ctx, p.ID, f.landlord, 5); !errors.Is(err, apiError.ErrNotFound) {
		t.Fatalf("out of range err = %v", err)
	}

	if err := f.svc.DeleteProperty(ctx, p.ID, f.landlord); err != nil {
		t.Fatal(err)
	}
	if f.blobs.len() != 0 {
		t.Fatalf("%d blobs left after delete", f.blobs.len())
	}
}
