package handlers_test

import (
	"context"
	"mime/multipart"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/models"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]*models.User{}}
}

func (s *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ID == id })
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s *memUsers) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Phone == phone })
}

func (s *memUsers) FindByConfirmedToken(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, services.ErrNotFound
	}
	return s.find(func(u *models.User) bool { return u.ConfirmedToken == token })
}

func (s *memUsers) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Phone == user.Phone {
			return services.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if len(user.Roles) == 0 {
		user.Roles = []string{models.RoleUser}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memUsers) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return services.ErrNotFound
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memUsers) get(id primitive.ObjectID) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

type memProperties struct {
	mu    sync.Mutex
	items []*models.Property
}

func (s *memProperties) owned(owner primitive.ObjectID) []models.Property {
	out := make([]models.Property, 0)
	for _, p := range s.items {
		if p.Owner == owner {
			out = append(out, *p)
		}
	}
	return out
}

func (s *memProperties) List(_ context.Context, owner primitive.ObjectID, q services.PropertyQuery) ([]models.Property, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.owned(owner)
	start := (q.Page - 1) * q.Limit
	if start > int64(len(all)) {
		start = int64(len(all))
	}
	end := start + q.Limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[start:end], int64(len(all)), nil
}

func (s *memProperties) StatusCounts(_ context.Context, owner primitive.ObjectID) (models.PropertyStatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c models.PropertyStatusCounts
	for _, p := range s.owned(owner) {
		c.Total++
		switch p.Status {
		case models.PropertyStatusAvailable:
			c.Available++
		case models.PropertyStatusSold:
			c.Sold++
		case models.PropertyStatusPending:
			c.Pending++
		}
	}
	return c, nil
}

func (s *memProperties) Overview(_ context.Context, owner primitive.ObjectID) (models.PropertyOverview, []models.TypeBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var o models.PropertyOverview
	for _, p := range s.owned(owner) {
		o.Total++
		o.TotalValue += p.Price
	}
	if o.Total > 0 {
		o.AvgPrice = o.TotalValue / float64(o.Total)
	}
	return o, nil, nil
}

func (s *memProperties) Get(_ context.Context, owner, id primitive.ObjectID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.ID == id && p.Owner == owner {
			cp := *p
			return &cp, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *memProperties) Create(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.AddedDate.IsZero() {
		p.AddedDate = time.Now().UTC()
	}
	p.CapImages()
	cp := *p
	s.items = append(s.items, &cp)
	return nil
}

func (s *memProperties) Update(_ context.Context, owner primitive.ObjectID, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.items {
		if cur.ID == p.ID && cur.Owner == owner {
			p.CapImages()
			cp := *p
			s.items[i] = &cp
			return nil
		}
	}
	return services.ErrNotFound
}

func (s *memProperties) Delete(_ context.Context, owner, id primitive.ObjectID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.items {
		if p.ID == id && p.Owner == owner {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return p, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *memProperties) All(_ context.Context, owner primitive.ObjectID) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owned(owner), nil
}

func (s *memProperties) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type memProspects struct {
	mu      sync.Mutex
	items   []*models.Prospect
	matches map[primitive.ObjectID][]primitive.ObjectID
}

func newMemProspects() *memProspects {
	return &memProspects{matches: map[primitive.ObjectID][]primitive.ObjectID{}}
}

// lookup returns the stored active prospect. Callers hold mu.
func (s *memProspects) lookup(owner, id primitive.ObjectID) *models.Prospect {
	for _, p := range s.items {
		if p.ID == id && p.UserID == owner && p.IsActive {
			return p
		}
	}
	return nil
}

func (s *memProspects) List(_ context.Context, owner primitive.ObjectID, q services.ProspectQuery) ([]models.Prospect, int64, error) {
	all, _ := s.Active(context.Background(), owner)
	return all, int64(len(all)), nil
}

func (s *memProspects) Get(_ context.Context, owner, id primitive.ObjectID) (*models.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.lookup(owner, id); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, services.ErrNotFound
}

func (s *memProspects) FindByEmail(_ context.Context, owner primitive.ObjectID, email string) (*models.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.UserID == owner && p.IsActive && p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *memProspects) Create(_ context.Context, p *models.Prospect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.IsActive = true
	p.Normalize()
	cp := *p
	s.items = append(s.items, &cp)
	return nil
}

func (s *memProspects) Update(_ context.Context, owner primitive.ObjectID, p *models.Prospect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.lookup(owner, p.ID)
	if cur == nil {
		return services.ErrNotFound
	}
	*cur = *p
	return nil
}

func (s *memProspects) Deactivate(_ context.Context, owner, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.lookup(owner, id)
	if cur == nil {
		return services.ErrNotFound
	}
	cur.IsActive = false
	return nil
}

func (s *memProspects) Stats(_ context.Context, owner primitive.ObjectID) (models.ProspectStats, error) {
	all, _ := s.Active(context.Background(), owner)
	stats := models.ProspectStats{Total: int64(len(all)), SourceBreakdown: []models.SourceCount{}}
	for _, p := range all {
		if p.Status == models.ProspectStatusHot {
			stats.Hot++
		}
	}
	return stats, nil
}

func (s *memProspects) Active(_ context.Context, owner primitive.ObjectID) ([]models.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Prospect, 0)
	for _, p := range s.items {
		if p.UserID == owner && p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memProspects) AddInteraction(_ context.Context, owner, id primitive.ObjectID, in models.Interaction) (*models.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.lookup(owner, id)
	if cur == nil {
		return nil, services.ErrNotFound
	}
	cur.Interactions = append(cur.Interactions, in)
	cur.LastContact = in.Date
	cp := *cur
	return &cp, nil
}

func (s *memProspects) SetMatches(_ context.Context, owner, id primitive.ObjectID, propertyIDs []primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.lookup(owner, id)
	if cur == nil {
		return services.ErrNotFound
	}
	cur.MatchedProperties = propertyIDs
	s.matches[id] = propertyIDs
	return nil
}

func (s *memProspects) byEmail(email string) *models.Prospect {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.Email == email {
			cp := *p
			return &cp
		}
	}
	return nil
}

type memImages struct {
	mu      sync.Mutex
	saved   []string
	removed []string
}

func (s *memImages) Save(_ context.Context, fh *multipart.FileHeader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := services.PublicImagePrefix + path.Base(fh.Filename)
	s.saved = append(s.saved, ref)
	return ref, nil
}

func (s *memImages) Remove(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, ref)
	return nil
}

// Owns claims local upload paths and delivery URLs in the Cloudinary folder.
func (s *memImages) Owns(ref string) bool {
	return strings.HasPrefix(ref, services.PublicImagePrefix) ||
		services.CloudinaryPublicID(ref, services.CloudinaryFolder) != ""
}

func (s *memImages) removedRefs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.removed...)
}

// stubConfirmed answers every provider call from its fields.
type stubConfirmed struct {
	mu          sync.Mutex
	registered  *services.ConfirmedUser
	registerErr error
	current     *services.ConfirmedUser
	currentErr  error
	profile     *services.ConfirmedUser
	profileErr  error
	forgotten   []string
}

func (c *stubConfirmed) Register(context.Context, services.ConfirmedRegistration) (*services.ConfirmedUser, error) {
	return c.registered, c.registerErr
}

func (c *stubConfirmed) CurrentUser(context.Context, string) (*services.ConfirmedUser, error) {
	return c.current, c.currentErr
}

func (c *stubConfirmed) Profile(context.Context, string) (*services.ConfirmedUser, error) {
	return c.profile, c.profileErr
}

func (c *stubConfirmed) Forget(_ context.Context, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgotten = append(c.forgotten, token)
}
