package giftcards

import (
	"context"

	"github.com/ledgerkeep/billing-console/pkg/squareapi"
)

// RemoteClientInterface defines the contract for the gift card API client
type RemoteClientInterface interface {
	ListGiftCards(ctx context.Context, opts squareapi.ListGiftCardsOptions) (*squareapi.ListGiftCardsResponse, error)
	RetrieveGiftCard(ctx context.Context, giftCardID string) (*squareapi.RetrieveGiftCardResponse, error)
	RetrieveGiftCardFromGAN(ctx context.Context, gan string) (*squareapi.RetrieveGiftCardResponse, error)
	CreateGiftCard(ctx context.Context, req squareapi.CreateGiftCardRequest) (*squareapi.CreateGiftCardResponse, error)
	LinkCustomer(ctx context.Context, giftCardID, customerID string) (*squareapi.LinkCustomerResponse, error)
	ListGiftCardActivities(ctx context.Context, opts squareapi.ListActivitiesOptions) (*squareapi.ListActivitiesResponse, error)
	CreateGiftCardActivity(ctx context.Context, req squareapi.CreateActivityRequest) (*squareapi.CreateActivityResponse, error)
}

// RemoteSource is the narrow view of the remote platform needed by the
// sync coordinator.
type RemoteSource interface {
	RetrieveGiftCard(ctx context.Context, giftCardID string) (*GiftCard, error)
	ListGiftCards(ctx context.Context, opts ListOptions) (*CardPage, error)
}

// ListOptions holds filters for listing gift cards
type ListOptions struct {
	Type       string
	State      string
	CustomerID string
	Limit      int
	Cursor     string
}

// ActivityListOptions holds filters for listing gift card activities.
// BeginTime and EndTime are RFC 3339 timestamps bounding the activity
// creation time.
type ActivityListOptions struct {
	GiftCardID string
	Type       string
	LocationID string
	BeginTime  string
	EndTime    string
	Limit      int
	Cursor     string
	SortOrder  string
}
