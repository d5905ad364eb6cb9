package devapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
)

type account struct {
	ID             int64
	Name           string
	Email          string
	ProfilePicture *string
	PwdHash        string
}

type product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    *string
	Category    string
	Quantity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	seq         int64
}

type resetGrant struct {
	userID  int64
	expires time.Time
}

// memStore holds all dev server state. Everything is lost on restart.
type memStore struct {
	mu       sync.RWMutex
	nextUser int64
	nextSeq  int64
	users    map[int64]*account
	byEmail  map[string]int64
	products map[string]*product
	resets   map[string]resetGrant
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*account),
		byEmail:  make(map[string]int64),
		products: make(map[string]*product),
		resets:   make(map[string]resetGrant),
	}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

var errEmailTaken = errors.New("email already registered")

func (s *memStore) createUser(name, email, pwdHash string) (account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := emailKey(email)
	if _, ok := s.byEmail[k]; ok {
		return account{}, errEmailTaken
	}
	s.nextUser++
	a := &account{ID: s.nextUser, Name: name, Email: strings.TrimSpace(email), PwdHash: pwdHash}
	s.users[a.ID] = a
	s.byEmail[k] = a.ID
	return *a, nil
}

func (s *memStore) userByEmail(email string) (account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return account{}, errs.ErrNotFound
	}
	return *s.users[id], nil
}

func (s *memStore) userByID(id int64) (account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.users[id]
	if !ok {
		return account{}, errs.ErrNotFound
	}
	return *a, nil
}

func (s *memStore) updateUser(id int64, ch model.UserPatch) (account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return account{}, errs.ErrNotFound
	}
	if ch.Email != nil && strings.TrimSpace(*ch.Email) != "" {
		k := emailKey(*ch.Email)
		if owner, taken := s.byEmail[k]; taken && owner != id {
			return account{}, errEmailTaken
		}
		delete(s.byEmail, emailKey(a.Email))
		a.Email = strings.TrimSpace(*ch.Email)
		s.byEmail[k] = id
	}
	if ch.Name != nil {
		a.Name = *ch.Name
	}
	if ch.ProfilePicture != nil {
		pic := *ch.ProfilePicture
		a.ProfilePicture = &pic
	}
	return *a, nil
}

func (s *memStore) setPassword(id int64, pwdHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	a.PwdHash = pwdHash
	return nil
}

func (s *memStore) grantReset(userID int64, ttl time.Duration, now time.Time) (string, error) {
	tok, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.resets[tok.String()] = resetGrant{userID: userID, expires: now.Add(ttl)}
	s.mu.Unlock()
	return tok.String(), nil
}

// redeemReset consumes a reset token; expired or unknown tokens yield ErrNotFound.
func (s *memStore) redeemReset(token string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.resets[token]
	if !ok {
		return 0, errs.ErrNotFound
	}
	delete(s.resets, token)
	if !now.Before(g.expires) {
		return 0, errs.ErrNotFound
	}
	return g.userID, nil
}

func (s *memStore) addProduct(p product, now time.Time) (product, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	p.ID, p.seq = id.String(), s.nextSeq
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = &p
	return p, nil
}

func (s *memStore) listProducts() []product {
	s.mu.RLock()
	out := make([]product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *memStore) product(id string) (product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return product{}, errs.ErrNotFound
	}
	return *p, nil
}

func (s *memStore) updateProduct(id string, ch model.ProductPatch, now time.Time) (product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return product{}, errs.ErrNotFound
	}
	if ch.Name != nil {
		p.Name = *ch.Name
	}
	if ch.Description != nil {
		p.Description = *ch.Description
	}
	if ch.Price != nil {
		p.Price = *ch.Price
	}
	if ch.ImageURL != nil {
		u := *ch.ImageURL
		p.ImageURL = &u
	}
	if ch.Category != nil {
		p.Category = *ch.Category
	}
	if ch.Quantity != nil {
		p.Quantity = *ch.Quantity
	}
	p.UpdatedAt = now
	return *p, nil
}

func (s *memStore) deleteProduct(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.products, id)
	return nil
}
