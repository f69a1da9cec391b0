package squareapi

import (
	"fmt"
	"strings"
)

// Money represents a monetary amount in the smallest currency unit
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// GiftCard is the remote representation of a gift card
type GiftCard struct {
	ID           string   `json:"id,omitempty"`
	Type         string   `json:"type,omitempty"`
	GANSource    string   `json:"gan_source,omitempty"`
	State        string   `json:"state,omitempty"`
	BalanceMoney *Money   `json:"balance_money,omitempty"`
	GAN          string   `json:"gan,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	CustomerIDs  []string `json:"customer_ids,omitempty"`
}

// ActivityDetails carries the amount and reference fields shared by the
// balance-changing activity variants.
type ActivityDetails struct {
	AmountMoney *Money `json:"amount_money,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	LineItemUID string `json:"line_item_uid,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	PaymentID   string `json:"payment_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// GiftCardActivity is the remote representation of a gift card activity.
// Exactly one of the *_activity_details fields is populated, matching the
// activity type.
type GiftCardActivity struct {
	ID                             string           `json:"id,omitempty"`
	Type                           string           `json:"type"`
	LocationID                     string           `json:"location_id,omitempty"`
	CreatedAt                      string           `json:"created_at,omitempty"`
	GiftCardID                     string           `json:"gift_card_id,omitempty"`
	GiftCardGAN                    string           `json:"gift_card_gan,omitempty"`
	GiftCardBalanceMoney           *Money           `json:"gift_card_balance_money,omitempty"`
	GiftCard                       *GiftCard        `json:"gift_card,omitempty"`
	ActivateActivityDetails        *ActivityDetails `json:"activate_activity_details,omitempty"`
	LoadActivityDetails            *ActivityDetails `json:"load_activity_details,omitempty"`
	RedeemActivityDetails          *ActivityDetails `json:"redeem_activity_details,omitempty"`
	ClearBalanceActivityDetails    *ActivityDetails `json:"clear_balance_activity_details,omitempty"`
	AdjustIncrementActivityDetails *ActivityDetails `json:"adjust_increment_activity_details,omitempty"`
	AdjustDecrementActivityDetails *ActivityDetails `json:"adjust_decrement_activity_details,omitempty"`
	BlockActivityDetails           *ActivityDetails `json:"block_activity_details,omitempty"`
	UnblockActivityDetails         *ActivityDetails `json:"unblock_activity_details,omitempty"`
}

// CreateGiftCardRequest is the payload for creating a gift card
type CreateGiftCardRequest struct {
	IdempotencyKey string    `json:"idempotency_key"`
	LocationID     string    `json:"location_id"`
	GiftCard       *GiftCard `json:"gift_card"`
}

// CreateGiftCardResponse is the response for creating a gift card
type CreateGiftCardResponse struct {
	GiftCard *GiftCard `json:"gift_card,omitempty"`
	Errors   []APIError `json:"errors,omitempty"`
}

// RetrieveGiftCardResponse is the response for retrieving a gift card
type RetrieveGiftCardResponse struct {
	GiftCard *GiftCard  `json:"gift_card,omitempty"`
	Errors   []APIError `json:"errors,omitempty"`
}

// RetrieveFromGANRequest is the payload for looking up a card by its number
type RetrieveFromGANRequest struct {
	GAN string `json:"gan"`
}

// LinkCustomerRequest is the payload for linking a customer to a gift card
type LinkCustomerRequest struct {
	CustomerID string `json:"customer_id"`
}

// LinkCustomerResponse is the response for linking a customer
type LinkCustomerResponse struct {
	GiftCard *GiftCard  `json:"gift_card,omitempty"`
	Errors   []APIError `json:"errors,omitempty"`
}

// ListGiftCardsOptions holds the query parameters for listing gift cards
type ListGiftCardsOptions struct {
	Type       string
	State      string
	CustomerID string
	Limit      int
	Cursor     string
}

// ListGiftCardsResponse is the response for listing gift cards
type ListGiftCardsResponse struct {
	GiftCards []GiftCard `json:"gift_cards,omitempty"`
	Cursor    string     `json:"cursor,omitempty"`
	Errors    []APIError `json:"errors,omitempty"`
}

// ListActivitiesOptions holds the query parameters for listing activities
type ListActivitiesOptions struct {
	GiftCardID string
	Type       string
	LocationID string
	BeginTime  string
	EndTime    string
	Limit      int
	Cursor     string
	SortOrder  string
}

// ListActivitiesResponse is the response for listing gift card activities
type ListActivitiesResponse struct {
	GiftCardActivities []GiftCardActivity `json:"gift_card_activities,omitempty"`
	Cursor             string             `json:"cursor,omitempty"`
	Errors             []APIError         `json:"errors,omitempty"`
}

// CreateActivityRequest is the payload for creating a gift card activity
type CreateActivityRequest struct {
	IdempotencyKey   string            `json:"idempotency_key"`
	GiftCardActivity *GiftCardActivity `json:"gift_card_activity"`
}

// CreateActivityResponse is the response for creating a gift card activity
type CreateActivityResponse struct {
	GiftCardActivity *GiftCardActivity `json:"gift_card_activity,omitempty"`
	Errors           []APIError        `json:"errors,omitempty"`
}

// APIError is a single error entry returned by the remote API
type APIError struct {
	Category string `json:"category,omitempty"`
	Code     string `json:"code,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Field    string `json:"field,omitempty"`
}

// RequestError is returned when the remote API responds with a non-2xx status
type RequestError struct {
	StatusCode int
	Errors     []APIError
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("remote API error: status %d", e.StatusCode)
	}

	details := make([]string, 0, len(e.Errors))
	for _, apiErr := range e.Errors {
		if apiErr.Detail != "" {
			details = append(details, apiErr.Detail)
		} else if apiErr.Code != "" {
			details = append(details, apiErr.Code)
		}
	}
	return fmt.Sprintf("remote API error: status %d: %s", e.StatusCode, strings.Join(details, "; "))
}

// Detail joins the human-readable error details into a single message
func (e *RequestError) Detail() string {
	details := make([]string, 0, len(e.Errors))
	for _, apiErr := range e.Errors {
		if apiErr.Detail != "" {
			details = append(details, apiErr.Detail)
		} else if apiErr.Code != "" {
			details = append(details, apiErr.Code)
		}
	}
	if len(details) == 0 {
		return "remote API request failed"
	}
	return strings.Join(details, "; ")
}
