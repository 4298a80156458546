/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (JSON shape, date formats) happens in handlers;
  domain validation lives in calendar.Service.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/calendar-engine/calendar"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ItemDTO represents a calendar item in API responses.
type ItemDTO struct {
	ID         int64   `json:"id"`
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time,omitempty"`
	EndTime    string  `json:"end_time,omitempty"`
	Category   string  `json:"category"`
	Importance string  `json:"importance"`
	Title      string  `json:"title"`
	Log        string  `json:"log,omitempty"`
	Done       bool    `json:"done"`
	Amount     *string `json:"amount,omitempty"`
	Source     string  `json:"source"`
	RuleID     *int64  `json:"rule_id,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// ItemRequest is the request body for creating or updating an item.
type ItemRequest struct {
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Category   string  `json:"category"`
	Importance string  `json:"importance"`
	Title      string  `json:"title"`
	Log        string  `json:"log"`
	Done       *bool   `json:"done"`
	Amount     *string `json:"amount"`
	Frequency  string  `json:"frequency"`
}

// NotificationDTO represents a notification in API responses.
type NotificationDTO struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	Importance string `json:"importance"`
	Message    string `json:"message"`
	ItemID     *int64 `json:"item_id,omitempty"`
	Read       bool   `json:"read"`
	CreatedAt  string `json:"created_at"`
}

// SweepResultDTO reports what a manual sweep run removed.
type SweepResultDTO struct {
	HolidaysRemoved  int `json:"holidays_removed"`
	ItemsRemoved     int `json:"items_removed"`
	RulesDeactivated int `json:"rules_deactivated"`
	MonthsEvicted    int `json:"months_evicted"`
}

// ErrorResponse is the error body for all failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toItemDTO(item calendar.Item) ItemDTO {
	dto := ItemDTO{
		ID:         int64(item.ID),
		Date:       item.Date.String(),
		StartTime:  item.StartTime,
		EndTime:    item.EndTime,
		Category:   string(item.Category),
		Importance: string(item.Importance),
		Title:      item.Title,
		Log:        item.Log,
		Done:       item.Done,
		Source:     string(item.Source),
		CreatedAt:  item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  item.UpdatedAt.Format(time.RFC3339),
	}
	if item.Amount != nil {
		s := item.Amount.String()
		dto.Amount = &s
	}
	if item.RuleID != nil {
		id := int64(*item.RuleID)
		dto.RuleID = &id
	}
	return dto
}

func toItemDTOs(items []calendar.Item) []ItemDTO {
	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item)
	}
	return dtos
}

func toNotificationDTO(n calendar.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:         int64(n.ID),
		Type:       string(n.Type),
		Importance: string(n.Importance),
		Message:    n.Message,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt.Format(time.RFC3339),
	}
	if n.ItemID != nil {
		id := int64(*n.ItemID)
		dto.ItemID = &id
	}
	return dto
}

// toItemInput converts the request body into a domain input. Date and amount
// parse errors surface as validation failures.
func toItemInput(req ItemRequest) (calendar.ItemInput, error) {
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return calendar.ItemInput{}, err
	}
	in := calendar.ItemInput{
		Date:       date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Category:   calendar.Category(req.Category),
		Importance: calendar.Importance(req.Importance),
		Title:      req.Title,
		Log:        req.Log,
		Done:       req.Done,
		Frequency:  calendar.Frequency(req.Frequency),
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return calendar.ItemInput{}, err
		}
		in.Amount = &amount
	}
	return in, nil
}
