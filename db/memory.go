package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	apiError "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
	"gorm.io/gorm"
)

// MemoryStore backs every repository with maps guarded by one mutex. It is
// selected with SAKANY_STORE_DRIVER=memory and used by the tests.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[uint]*models.User
	blacklist     map[string]struct{}
	properties    map[uint]*models.Property
	messages      []*models.Message
	conversations map[[2]uint]*models.Conversation
	nextUser      uint
	nextProperty  uint
	nextMessage   uint
	nextConv      uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uint]*models.User),
		blacklist:     make(map[string]struct{}),
		properties:    make(map[uint]*models.Property),
		conversations: make(map[[2]uint]*models.Conversation),
	}
}

func (m *MemoryStore) AuthRepository() AuthRepository         { return memoryAuthRepo{m} }
func (m *MemoryStore) PropertyRepository() PropertyRepository { return memoryPropertyRepo{m} }
func (m *MemoryStore) ChatRepository() ChatRepository         { return memoryChatRepo{m} }

type memoryAuthRepo struct{ *MemoryStore }

func (r memoryAuthRepo) CreateUser(user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(user.Email, 0) {
		return nil, apiError.ErrEmailExists
	}
	r.nextUser++
	now := time.Now()
	user.ID = r.nextUser
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	r.users[user.ID] = &stored
	return user, nil
}

// emailTaken includes soft deleted accounts, matching the unique index.
func (r memoryAuthRepo) emailTaken(email string, except uint) bool {
	for id, u := range r.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r memoryAuthRepo) IsEmailExist(email string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.emailTaken(email, 0) {
		return apiError.ErrEmailExists
	}
	return nil
}

func (r memoryAuthRepo) live(id uint) (*models.User, bool) {
	u, ok := r.users[id]
	if !ok || u.DeletedAt.Valid {
		return nil, false
	}
	return u, true
}

func (r memoryAuthRepo) FindUserByID(id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.live(id)
	if !ok {
		return nil, errors.Wrap(apiError.ErrNotFound, "user")
	}
	found := *u
	return &found, nil
}

func (r memoryAuthRepo) FindUserByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.users {
		if u, ok := r.live(id); ok && strings.EqualFold(u.Email, email) {
			found := *u
			return &found, nil
		}
	}
	return nil, errors.Wrap(apiError.ErrNotFound, "user")
}

func (r memoryAuthRepo) FindUserByResetToken(token string, now time.Time) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.users {
		u, ok := r.live(id)
		if !ok || token == "" || u.PasswordResetToken != token {
			continue
		}
		if u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			found := *u
			return &found, nil
		}
	}
	return nil, errors.Wrap(apiError.ErrNotFound, "reset token")
}

func (r memoryAuthRepo) UpdateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live(user.ID); !ok {
		return errors.Wrap(apiError.ErrNotFound, "user")
	}
	if r.emailTaken(user.Email, user.ID) {
		return apiError.ErrEmailExists
	}
	user.UpdatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r memoryAuthRepo) DeleteUser(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.live(id)
	if !ok {
		return errors.Wrap(apiError.ErrNotFound, "user")
	}
	u.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (r memoryAuthRepo) GetAllUsers() ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, 0, len(r.users))
	for id := range r.users {
		if u, ok := r.live(id); ok {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r memoryAuthRepo) AddToBlackList(blacklist *models.Blacklist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blacklist[strings.TrimSpace(blacklist.Token)] = struct{}{}
	return nil
}

func (r memoryAuthRepo) IsTokenInBlacklist(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.blacklist[strings.TrimSpace(token)]
	return ok
}

type memoryPropertyRepo struct{ *MemoryStore }

func (r memoryPropertyRepo) CreateProperty(property *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextProperty++
	now := time.Now()
	property.ID = r.nextProperty
	property.CreatedAt, property.UpdatedAt = now, now
	if property.Status == "" {
		property.Status = models.StatusActive
	}
	if property.ApprovalStatus == "" {
		property.ApprovalStatus = models.ApprovalPending
	}
	r.properties[property.ID] = cloneProperty(property)
	return nil
}

func (r memoryPropertyRepo) FindPropertyByID(id uint) (*models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.properties[id]
	if !ok {
		return nil, errors.Wrap(apiError.ErrNotFound, "property")
	}
	return cloneProperty(p), nil
}

func (r memoryPropertyRepo) ListProperties(filter models.PropertyFilter) ([]models.Property, int64, error) {
	r.mu.RLock()
	matched := make([]models.Property, 0)
	for _, p := range r.properties {
		if filter.Matches(p) {
			matched = append(matched, *cloneProperty(p))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int64(len(matched))
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= len(matched) {
			return []models.Property{}, total, nil
		}
		end := start + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r memoryPropertyRepo) UpdateProperty(property *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties[property.ID]; !ok {
		return errors.Wrap(apiError.ErrNotFound, "property")
	}
	property.UpdatedAt = time.Now()
	r.properties[property.ID] = cloneProperty(property)
	return nil
}

func (r memoryPropertyRepo) DeleteProperty(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties[id]; !ok {
		return errors.Wrap(apiError.ErrNotFound, "property")
	}
	delete(r.properties, id)
	return nil
}

func cloneProperty(p *models.Property) *models.Property {
	c := *p
	c.Features = append([]string(nil), p.Features...)
	c.Images = append([]models.PropertyImage(nil), p.Images...)
	return &c
}

type memoryChatRepo struct{ *MemoryStore }

func (r memoryChatRepo) CreateMessage(_ context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextMessage++
	message.ID = r.nextMessage
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	stored := *message
	r.messages = append(r.messages, &stored)
	return nil
}

func (r memoryChatRepo) MessagesBetween(_ context.Context, a, b uint, afterID uint, limit int) ([]models.Message, error) {
	r.mu.RLock()
	out := make([]models.Message, 0)
	for _, msg := range r.messages {
		between := (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a)
		if between && msg.ID > afterID {
			out = append(out, *msg)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memoryChatRepo) MarkMessagesRead(_ context.Context, senderID, receiverID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, msg := range r.messages {
		if msg.SenderID == senderID && msg.ReceiverID == receiverID && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r memoryChatRepo) UpsertConversation(_ context.Context, a, b uint, at time.Time) (*models.Conversation, error) {
	low, high := models.OrderedPair(a, b)
	key := [2]uint{low, high}

	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[key]
	if !ok {
		r.nextConv++
		conv = &models.Conversation{
			ID:            r.nextConv,
			UserLowID:     low,
			UserHighID:    high,
			LastMessageAt: at,
			CreatedAt:     at,
		}
		r.conversations[key] = conv
	} else if at.After(conv.LastMessageAt) {
		conv.LastMessageAt = at
	}
	found := *conv
	return &found, nil
}

func (r memoryChatRepo) FindConversationByID(_ context.Context, id uint) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.conversations {
		if conv.ID == id {
			found := *conv
			return &found, nil
		}
	}
	return nil, errors.Wrap(apiError.ErrNotFound, "conversation")
}

func (r memoryChatRepo) ConversationsForUser(_ context.Context, userID uint) ([]models.Conversation, error) {
	r.mu.RLock()
	out := make([]models.Conversation, 0)
	for _, conv := range r.conversations {
		if conv.Involves(userID) {
			out = append(out, *conv)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
