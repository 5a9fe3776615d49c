package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

// --- Request types ---

// createTicketRequest ignores client-supplied status and created_by.
type createTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

// assignRequest accepts user_id as a JSON string or number.
type assignRequest struct {
	UserID any `json:"user_id"`
}

func (r assignRequest) accountID() string {
	switch v := r.UserID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// decodeTicketUpdate reads a PUT/PATCH body. It distinguishes an absent
// assigned_to from an explicit null and flags any attempt to set
// created_by. Other read-only or unknown keys are ignored.
func decodeTicketUpdate(body []byte, partial bool) (ports.UpdateTicketInput, error) {
	in := ports.UpdateTicketInput{Partial: partial}

	raw := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return in, fmt.Errorf("decode ticket update: %w", err)
		}
	}

	ve := domain.NewValidationError()
	for field, value := range raw {
		switch field {
		case "title":
			in.Title = stringField(ve, field, value)
		case "description":
			in.Description = stringField(ve, field, value)
		case "status":
			in.Status = stringField(ve, field, value)
		case "priority":
			in.Priority = stringField(ve, field, value)
		case "assigned_to":
			if isNull(value) {
				in.ClearAssignee = true
				continue
			}
			var id string
			if err := json.Unmarshal(value, &id); err != nil {
				ve.Add(field, "Incorrect type. Expected pk value.")
				continue
			}
			in.AssignedTo = &id
		case "created_by":
			in.CreatedBy = true
		}
	}
	return in, ve.OrNil()
}

func stringField(ve *domain.ValidationError, field string, value json.RawMessage) *string {
	if isNull(value) {
		ve.Add(field, "This field may not be null.")
		return nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		ve.Add(field, "Not a valid string.")
		return nil
	}
	return &s
}

func isNull(value json.RawMessage) bool {
	return string(bytes.TrimSpace(value)) == "null"
}

// --- Response types ---

type ticketResponse struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Content     string        `json:"content"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	CreatedBy   *userResponse `json:"created_by"`
	AssignedTo  *userResponse `json:"assigned_to"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ResolvedAt  *time.Time    `json:"resolved_at"`
}

type activityResponse struct {
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id"`
	Changes    map[string]any `json:"changes"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// --- Mappers ---

func toTicketResponse(t *domain.Ticket) ticketResponse {
	resp := ticketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Content:     t.Content,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ResolvedAt:  t.ResolvedAt,
	}
	if t.CreatedBy != nil {
		u := toUserResponse(t.CreatedBy)
		resp.CreatedBy = &u
	}
	if t.AssignedTo != nil {
		u := toUserResponse(t.AssignedTo)
		resp.AssignedTo = &u
	}
	return resp
}

func toTicketResponses(tickets []*domain.Ticket) []ticketResponse {
	out := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketResponse(t))
	}
	return out
}

func toActivityResponses(items []*domain.Activity) []activityResponse {
	out := make([]activityResponse, 0, len(items))
	for _, a := range items {
		changes := a.Changes
		if changes == nil {
			changes = map[string]any{}
		}
		out = append(out, activityResponse{
			Action:     string(a.Action),
			ActorID:    a.ActorID,
			Changes:    changes,
			OccurredAt: a.OccurredAt,
		})
	}
	return out
}
