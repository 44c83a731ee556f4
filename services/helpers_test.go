package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/techagentng/sakany/config"
	"github.com/techagentng/sakany/db"
)

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) SendSimpleMessage(_ context.Context, to, subject, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return "id", nil
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	code := codePattern.FindString(m.last(t).body)
	if code == "" {
		t.Fatal("no code in mail body")
	}
	return code
}

type fakePhones struct {
	phone, uid string
	err        error
}

func (f fakePhones) VerifyPhoneToken(context.Context, string) (string, string, error) {
	return f.phone, f.uid, f.err
}

type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: make(map[string][]byte)}
}

func (b *memoryBlobs) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = body
	return "https://blobs.test/" + key, nil
}

func (b *memoryBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memoryBlobs) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		BaseUrl:         "http://localhost:3000",
	}
}

type serviceFixture struct {
	store     *db.MemoryStore
	mail      *recordingMailer
	codes     db.CodeStore
	twoFactor TwoFactorService
	auth      AuthService
}

func newServiceFixture(phones PhoneVerifier) *serviceFixture {
	store := db.NewMemoryStore()
	mail := &recordingMailer{}
	codes := db.NewMemoryCodeStore()
	twoFactor := NewTwoFactorService(store.AuthRepository(), codes, mail, phones)
	return &serviceFixture{
		store:     store,
		mail:      mail,
		codes:     codes,
		twoFactor: twoFactor,
		auth:      NewAuthService(store.AuthRepository(), twoFactor, mail, nil, testConfig()),
	}
}

// pngUpload builds a multipart file header holding a w x h PNG.
func pngUpload(t *testing.T, name string, w, h int) *multipart.FileHeader {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var raw bytes.Buffer
	if err := png.Encode(&raw, img); err != nil {
		t.Fatal(err)
	}
	return fileUpload(t, name, raw.Bytes())
}

func fileUpload(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("images", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File["images"][0]
}
