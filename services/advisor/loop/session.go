// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package loop

import (
	"time"

	"github.com/nestready/nestready/pkg/cache"
	"github.com/nestready/nestready/services/advisor/chatcontext"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// SessionTTL is how long an idle conversation survives. Every Put renews it.
const SessionTTL = 30 * time.Minute

const sessionKeyPrefix = "session:"

// ConversationState is everything the advisor carries between turns of one
// conversation.
//
// # Description
//
// Profile, Market, and Report anchor the conversation to an analysis run;
// tool calls are bound against them. History holds user and final assistant
// turns only, never intermediate tool traffic. Summary and Memory are the
// rolling context produced by chatcontext.
//
// # Thread Safety
//
// Not safe for concurrent use. Each request owns the state it fetched for
// the duration of the turn.
type ConversationState struct {
	SessionID string                     `json:"session_id"`
	Profile   *datatypes.Profile         `json:"profile,omitempty"`
	Market    *datatypes.MarketSnapshot  `json:"market,omitempty"`
	Report    *datatypes.ComputedReport  `json:"report,omitempty"`
	History   []datatypes.Message        `json:"history,omitempty"`
	Summary   string                     `json:"summary,omitempty"`
	Memory    *chatcontext.SessionMemory `json:"memory,omitempty"`
}

// NewConversationState returns empty state for a session id.
func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Memory:    chatcontext.NewSessionMemory(),
	}
}

// SessionStore keeps conversation state in the shared TTL cache.
type SessionStore struct {
	cache *cache.TTLCache
}

// NewSessionStore wraps the shared cache. A nil cache yields a store whose
// lookups always miss, which degrades the advisor to stateless operation.
func NewSessionStore(c *cache.TTLCache) *SessionStore {
	return &SessionStore{cache: c}
}

// Get fetches the state for a session id.
func (s *SessionStore) Get(sessionID string) (*ConversationState, bool) {
	if s.cache == nil || sessionID == "" {
		return nil, false
	}
	value, ok := s.cache.Get(sessionKeyPrefix + sessionID)
	if !ok {
		return nil, false
	}
	state, ok := value.(*ConversationState)
	return state, ok
}

// Put stores the state and renews its TTL.
func (s *SessionStore) Put(state *ConversationState) {
	if s.cache == nil || state == nil || state.SessionID == "" {
		return
	}
	if state.Memory == nil {
		state.Memory = chatcontext.NewSessionMemory()
	}
	s.cache.Set(sessionKeyPrefix+state.SessionID, state, SessionTTL)
}
