package moderation

import (
	"context"
	"sync"
	"time"
)

type restrictCall struct {
	chatID      int64
	userID      int64
	permissions Permissions
	until       time.Time
}

type banCall struct {
	chatID int64
	userID int64
}

type clientStub struct {
	mu sync.Mutex

	statuses   map[int64]MemberStatus
	statusErr  error
	restrictEr error
	banErr     error

	restricts []restrictCall
	bans      []banCall
	messages  []string
}

func newClientStub() *clientStub {
	return &clientStub{statuses: make(map[int64]MemberStatus)}
}

func (c *clientStub) GetChatMemberStatus(_ context.Context, _ int64, userID int64) (MemberStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusErr != nil {
		return "", c.statusErr
	}
	if status, ok := c.statuses[userID]; ok {
		return status, nil
	}
	return StatusMember, nil
}

func (c *clientStub) RestrictChatMember(_ context.Context, chatID, userID int64, permissions Permissions, until time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restricts = append(c.restricts, restrictCall{chatID: chatID, userID: userID, permissions: permissions, until: until})
	return c.restrictEr
}

func (c *clientStub) BanChatMember(_ context.Context, chatID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bans = append(c.bans, banCall{chatID: chatID, userID: userID})
	return c.banErr
}

func (c *clientStub) SendMessage(_ context.Context, _ int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
	return nil
}

func (c *clientStub) enforcementCalls() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.restricts), len(c.bans)
}

type strikeKey struct {
	chatID int64
	userID int64
}

type storeStub struct {
	mu       sync.Mutex
	strikes  map[strikeKey]int
	reasons  map[strikeKey]string
	incErr   error
	incCalls int
}

func newStoreStub() *storeStub {
	return &storeStub{
		strikes: make(map[strikeKey]int),
		reasons: make(map[strikeKey]string),
	}
}

func (s *storeStub) IncrementStrikes(_ context.Context, chatID, userID int64, reason string, _ time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incCalls++
	if s.incErr != nil {
		return 0, s.incErr
	}
	key := strikeKey{chatID, userID}
	s.strikes[key]++
	s.reasons[key] = reason
	return s.strikes[key], nil
}

func (s *storeStub) forgive(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strikes, strikeKey{chatID, userID})
	delete(s.reasons, strikeKey{chatID, userID})
}

func (s *storeStub) get(chatID, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strikes[strikeKey{chatID, userID}]
}
