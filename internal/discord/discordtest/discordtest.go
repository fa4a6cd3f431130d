// Package discordtest provides an in-memory discord.Session for tests.
package discordtest

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// UnknownMessageError mimics Discord's answer for a deleted message.
func UnknownMessageError() error {
	return &discordgo.RESTError{
		Response:     &http.Response{Status: "404 Not Found", StatusCode: http.StatusNotFound},
		ResponseBody: []byte(`{"message": "Unknown Message", "code": 10008}`),
		Message:      &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage, Message: "Unknown Message"},
	}
}

// Session is an in-memory stand-in for *discordgo.Session. Messages are kept
// oldest first per channel.
type Session struct {
	mu sync.Mutex

	// BotUserID authors every message sent through the session.
	BotUserID string

	FetchErr        error
	BulkDeleteErr   error
	SendErr         error
	EditErr         error
	RespondErr      error
	ResponseEditErr error
	ChannelErr      error

	Sends         int
	Edits         int
	BulkDeletes   int
	Deletes       int
	Responds      int
	ResponseEdits int

	// Calls records interaction calls in order: "respond" and "edit_reply".
	Calls []string
	// Replies holds the content of every edited interaction reply.
	Replies []string
	// Responses holds every interaction response sent.
	Responses []*discordgo.InteractionResponse

	messages map[string][]*discordgo.Message
	nextID   int
}

// NewSession returns an empty session whose sent messages are authored by botUserID.
func NewSession(botUserID string) *Session {
	return &Session{
		BotUserID: botUserID,
		messages:  make(map[string][]*discordgo.Message),
	}
}

// AddMessage appends a message authored by authorID to channelID.
func (s *Session) AddMessage(channelID, authorID string, ts time.Time) *discordgo.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(channelID, authorID, ts)
}

func (s *Session) addLocked(channelID, authorID string, ts time.Time) *discordgo.Message {
	s.nextID++
	msg := &discordgo.Message{
		ID:        strconv.Itoa(s.nextID),
		ChannelID: channelID,
		Author:    &discordgo.User{ID: authorID},
		Timestamp: ts,
	}
	s.messages[channelID] = append(s.messages[channelID], msg)
	return msg
}

// Messages returns the messages of channelID, oldest first.
func (s *Session) Messages(channelID string) []*discordgo.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*discordgo.Message(nil), s.messages[channelID]...)
}

func (s *Session) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if s.ChannelErr != nil {
		return nil, s.ChannelErr
	}
	return &discordgo.Channel{ID: channelID, Name: "seeding"}, nil
}

func (s *Session) ChannelMessages(channelID string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}

	msgs := s.messages[channelID]
	out := make([]*discordgo.Message, 0, limit)
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

func (s *Session) ChannelMessagesBulkDelete(channelID string, ids []string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BulkDeletes++
	if s.BulkDeleteErr != nil {
		return s.BulkDeleteErr
	}
	for _, id := range ids {
		s.removeLocked(channelID, id)
	}
	return nil
}

func (s *Session) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes++
	if !s.removeLocked(channelID, messageID) {
		return UnknownMessageError()
	}
	return nil
}

// DeleteMessage removes a message as if someone deleted it in the client.
func (s *Session) DeleteMessage(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(channelID, messageID)
}

func (s *Session) removeLocked(channelID, id string) bool {
	msgs := s.messages[channelID]
	for i, m := range msgs {
		if m.ID == id {
			s.messages[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sends++
	if s.SendErr != nil {
		return nil, s.SendErr
	}
	msg := s.addLocked(channelID, s.BotUserID, time.Now())
	msg.Embeds = data.Embeds
	msg.Components = data.Components
	return msg, nil
}

func (s *Session) ChannelMessageEditComplex(edit *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Edits++
	if s.EditErr != nil {
		return nil, s.EditErr
	}
	for _, m := range s.messages[edit.Channel] {
		if m.ID != edit.ID {
			continue
		}
		if edit.Embeds != nil {
			m.Embeds = *edit.Embeds
		}
		if edit.Components != nil {
			m.Components = *edit.Components
		}
		return m, nil
	}
	return nil, UnknownMessageError()
}

func (s *Session) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responds++
	s.Calls = append(s.Calls, "respond")
	s.Responses = append(s.Responses, resp)
	return s.RespondErr
}

func (s *Session) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResponseEdits++
	s.Calls = append(s.Calls, "edit_reply")
	if s.ResponseEditErr != nil {
		return nil, s.ResponseEditErr
	}
	if edit.Content == nil {
		return nil, errors.New("empty reply edit")
	}
	s.Replies = append(s.Replies, *edit.Content)
	return &discordgo.Message{Content: *edit.Content}, nil
}
