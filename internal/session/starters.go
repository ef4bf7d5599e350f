// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// StarterSource fetches starter questions.
type StarterSource interface {
	StarterQuestions(ctx context.Context) ([]string, error)
}

// Starters caches the first successful starter question fetch. Failures are
// not cached, so the next Get tries again.
type Starters struct {
	src StarterSource
	log *zap.Logger

	mu      sync.Mutex
	fetched bool
	items   []string
}

// NewStarters creates a cache over src.
func NewStarters(src StarterSource, log *zap.Logger) *Starters {
	if log == nil {
		log = zap.NewNop()
	}
	return &Starters{src: src, log: log}
}

// Get returns the cached questions, fetching them on first use.
func (s *Starters) Get(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if s.fetched || s.src == nil {
		items := s.items
		s.mu.Unlock()
		return items, nil
	}
	s.mu.Unlock()

	items, err := s.src.StarterQuestions(ctx)
	if err != nil {
		s.log.Warn("failed to fetch starter questions", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fetched {
		s.items = append([]string(nil), items...)
		s.fetched = true
		s.log.Debug("starter questions loaded", zap.Int("count", len(items)))
	}
	return s.items, nil
}

// Cached returns the questions without fetching. It is nil until a fetch
// succeeds.
func (s *Starters) Cached() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// Pick returns the question at 1-based position n.
func (s *Starters) Pick(n int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > len(s.items) {
		return "", false
	}
	return s.items[n-1], true
}
