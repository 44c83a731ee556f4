package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/techagentng/sakany/db"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
)

const (
	MaxImageFileSize  = 10 * 1024 * 1024 // 10 MB
	MaxPropertyImages = 10

	feedMaxWidth    = 1280
	thumbnailWidth  = 400
	thumbnailHeight = 300
)

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type MediaService interface {
	// ProcessImages resizes each upload, stores a feed-sized copy and a
	// thumbnail, and returns the stored references in upload order.
	ProcessImages(ctx context.Context, propertyID uint, files []*multipart.FileHeader) ([]models.PropertyImage, error)
	DeleteImages(ctx context.Context, images []models.PropertyImage)
}

type mediaService struct {
	blobs db.BlobStore
}

func NewMediaService(blobs db.BlobStore) MediaService {
	return &mediaService{blobs: blobs}
}

func CheckFileSize(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxImageFileSize {
		return apiError.Validation(fmt.Sprintf("%s exceeds the maximum allowed size", fileHeader.Filename))
	}
	return nil
}

func generateUniqueFilename(extension string) string {
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.New(), extension)
}

type imageResult struct {
	image models.PropertyImage
	err   error
}

func (m *mediaService) ProcessImages(ctx context.Context, propertyID uint, files []*multipart.FileHeader) ([]models.PropertyImage, error) {
	if len(files) == 0 {
		return nil, apiError.Validation("no images uploaded")
	}
	for _, fh := range files {
		if err := CheckFileSize(fh); err != nil {
			return nil, err
		}
	}

	results := make([]imageResult, len(files))
	var wg sync.WaitGroup
	for i, fh := range files {
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()
			img, err := m.processImage(ctx, propertyID, fh)
			results[i] = imageResult{image: img, err: err}
		}(i, fh)
	}
	wg.Wait()

	images := make([]models.PropertyImage, 0, len(files))
	var firstErr error
	for _, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		images = append(images, r.image)
	}
	if firstErr != nil {
		m.DeleteImages(ctx, images)
		return nil, firstErr
	}
	return images, nil
}

func (m *mediaService) processImage(ctx context.Context, propertyID uint, fh *multipart.FileHeader) (models.PropertyImage, error) {
	file, err := fh.Open()
	if err != nil {
		return models.PropertyImage{}, errors.Wrapf(err, "opening %s", fh.Filename)
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return models.PropertyImage{}, errors.Wrapf(err, "reading %s", fh.Filename)
	}
	if contentType := http.DetectContentType(fileBytes); !supportedImageTypes[contentType] {
		return models.PropertyImage{}, apiError.Validation(fmt.Sprintf("unsupported file type %s for %s", contentType, fh.Filename))
	}

	img, err := imaging.Decode(bytes.NewReader(fileBytes), imaging.AutoOrientation(true))
	if err != nil {
		return models.PropertyImage{}, apiError.Validation(fmt.Sprintf("failed to decode image %s", fh.Filename))
	}

	feed, err := encodeJPEG(feedImage(img))
	if err != nil {
		return models.PropertyImage{}, err
	}
	thumb, err := encodeJPEG(imaging.Fill(img, thumbnailWidth, thumbnailHeight, imaging.Center, imaging.Lanczos))
	if err != nil {
		return models.PropertyImage{}, err
	}

	name := generateUniqueFilename(".jpg")
	result := models.PropertyImage{
		Key:          fmt.Sprintf("properties/%d/feed/%s", propertyID, name),
		ThumbnailKey: fmt.Sprintf("properties/%d/thumbnail/%s", propertyID, name),
	}
	if result.URL, err = m.blobs.Put(ctx, result.Key, feed, "image/jpeg"); err != nil {
		return models.PropertyImage{}, err
	}
	if result.ThumbnailURL, err = m.blobs.Put(ctx, result.ThumbnailKey, thumb, "image/jpeg"); err != nil {
		m.deleteKey(ctx, result.Key)
		return models.PropertyImage{}, err
	}
	return result, nil
}

// feedImage scales wide images down to feedMaxWidth, keeping the aspect ratio.
func feedImage(img image.Image) image.Image {
	if img.Bounds().Dx() <= feedMaxWidth {
		return img
	}
	return resize.Resize(feedMaxWidth, 0, img, resize.Lanczos3)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, errors.Wrap(err, "encoding jpeg")
	}
	return buf.Bytes(), nil
}

func (m *mediaService) DeleteImages(ctx context.Context, images []models.PropertyImage) {
	for _, img := range images {
		m.deleteKey(ctx, img.Key)
		m.deleteKey(ctx, img.ThumbnailKey)
	}
}

func (m *mediaService) deleteKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := m.blobs.Delete(ctx, key); err != nil {
		log.Printf("deleting image %s: %v", key, err)
	}
}
