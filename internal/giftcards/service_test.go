package giftcards

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/billing-console/pkg/common"
	"github.com/ledgerkeep/billing-console/pkg/squareapi"
)

// mockRemoteClient implements RemoteClientInterface for testing
type mockRemoteClient struct {
	mock.Mock
}

func (m *mockRemoteClient) ListGiftCards(ctx context.Context, opts squareapi.ListGiftCardsOptions) (*squareapi.ListGiftCardsResponse, error) {
	args := m.Called(ctx, opts)
	resp, _ := args.Get(0).(*squareapi.ListGiftCardsResponse)
	return resp, args.Error(1)
}

func (m *mockRemoteClient) RetrieveGiftCard(ctx context.Context, giftCardID string) (*squareapi.RetrieveGiftCardResponse, error) {
	args := m.Called(ctx, giftCardID)
	resp, _ := args.Get(0).(*squareapi.RetrieveGiftCardResponse)
	return resp, args.Error(1)
}

func (m *mockRemoteClient) RetrieveGiftCardFromGAN(ctx context.Context, gan string) (*squareapi.RetrieveGiftCardResponse, error) {
	args := m.Called(ctx, gan)
	resp, _ := args.Get(0).(*squareapi.RetrieveGiftCardResponse)
	return resp, args.Error(1)
}

func (m *mockRemoteClient) CreateGiftCard(ctx context.Context, req squareapi.CreateGiftCardRequest) (*squareapi.CreateGiftCardResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*squareapi.CreateGiftCardResponse)
	return resp, args.Error(1)
}

func (m *mockRemoteClient) LinkCustomer(ctx context.Context, giftCardID, customerID string) (*squareapi.LinkCustomerResponse, error) {
	args := m.Called(ctx, giftCardID, customerID)
	resp, _ := args.Get(0).(*squareapi.LinkCustomerResponse)
	return resp, args.Error(1)
}

func (m *mockRemoteClient) ListGiftCardActivities(ctx context.Context, opts squareapi.ListActivitiesOptions) (*squareapi.ListActivitiesResponse, error) {
	args := m.Called(ctx, opts)
	resp, _ := args.Get(0).(*squareapi.ListActivitiesResponse)
	return resp, args.Error(1)
}

func (m *mockRemoteClient) CreateGiftCardActivity(ctx context.Context, req squareapi.CreateActivityRequest) (*squareapi.CreateActivityResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*squareapi.CreateActivityResponse)
	return resp, args.Error(1)
}

const testLocationID = "L_MAIN"

func newTestService(client RemoteClientInterface) *Service {
	return NewService(client, testLocationID)
}

// ============================================================
// Mapping Tests
// ============================================================

func TestNormalizeMoney(t *testing.T) {
	tests := []struct {
		name string
		in   *squareapi.Money
		want Money
	}{
		{
			name: "nil money defaults to zero USD",
			in:   nil,
			want: Money{Amount: 0, Currency: "USD"},
		},
		{
			name: "missing currency defaults to USD",
			in:   &squareapi.Money{Amount: 500},
			want: Money{Amount: 500, Currency: "USD"},
		},
		{
			name: "full money passes through",
			in:   &squareapi.Money{Amount: 1500, Currency: "EUR"},
			want: Money{Amount: 1500, Currency: "EUR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeMoney(tt.in))
		})
	}
}

func TestMapGiftCard(t *testing.T) {
	card := mapGiftCard(&squareapi.GiftCard{
		ID:           "gc_1",
		Type:         "DIGITAL",
		State:        "ACTIVE",
		GAN:          "7783320001001000",
		CreatedAt:    "2026-01-15T10:00:00Z",
		BalanceMoney: &squareapi.Money{Amount: 2500, Currency: "USD"},
	})

	assert.Equal(t, "gc_1", card.ID)
	assert.Equal(t, TypeDigital, card.Type)
	assert.Equal(t, StateActive, card.State)
	assert.Equal(t, int64(2500), card.Balance.Amount)
	// Absent customer IDs map to an empty slice, not nil
	assert.NotNil(t, card.CustomerIDs)
	assert.Empty(t, card.CustomerIDs)
}

func TestMapActivity(t *testing.T) {
	t.Run("picks amount from populated detail variant", func(t *testing.T) {
		activity := mapActivity(&squareapi.GiftCardActivity{
			ID:         "gca_1",
			Type:       "LOAD",
			GiftCardID: "gc_1",
			GiftCardBalanceMoney: &squareapi.Money{Amount: 3000, Currency: "USD"},
			LoadActivityDetails: &squareapi.ActivityDetails{
				AmountMoney: &squareapi.Money{Amount: 1000, Currency: "USD"},
			},
		})

		assert.Equal(t, "gc_1", activity.GiftCardID)
		assert.Equal(t, int64(3000), activity.Balance.Amount)
		assert.Equal(t, int64(1000), activity.Amount.Amount)
	})

	t.Run("falls back to GAN when card ID is absent", func(t *testing.T) {
		activity := mapActivity(&squareapi.GiftCardActivity{
			ID:          "gca_2",
			Type:        "REDEEM",
			GiftCardGAN: "7783320001001000",
			RedeemActivityDetails: &squareapi.ActivityDetails{
				AmountMoney: &squareapi.Money{Amount: 250, Currency: "USD"},
			},
		})

		assert.Equal(t, "7783320001001000", activity.GiftCardID)
		assert.Equal(t, int64(250), activity.Amount.Amount)
	})

	t.Run("clear balance carries the cleared amount", func(t *testing.T) {
		activity := mapActivity(&squareapi.GiftCardActivity{
			ID:         "gca_4",
			Type:       "CLEAR_BALANCE",
			GiftCardID: "gc_1",
			ClearBalanceActivityDetails: &squareapi.ActivityDetails{
				AmountMoney: &squareapi.Money{Amount: 1500, Currency: "USD"},
			},
		})

		assert.Equal(t, int64(1500), activity.Amount.Amount)
	})

	t.Run("no detail variant defaults to zero USD", func(t *testing.T) {
		activity := mapActivity(&squareapi.GiftCardActivity{ID: "gca_3", Type: "BLOCK"})
		assert.Equal(t, Money{Amount: 0, Currency: "USD"}, activity.Amount)
	})
}

func TestCentsFromAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *int64
	}{
		{"whole dollars", "25", int64Ptr(2500)},
		{"dollars and cents", "10.50", int64Ptr(1050)},
		{"rounds fractional cents", "0.015", int64Ptr(2)},
		{"blank input", "", nil},
		{"whitespace only", "   ", nil},
		{"not a number", "abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CentsFromAmount(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func int64Ptr(v int64) *int64 { return &v }

// ============================================================
// IssueGiftCard Tests
// ============================================================

func TestService_IssueGiftCard_FullFlow(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	created := &squareapi.GiftCard{ID: "gc_new", Type: "DIGITAL", State: "PENDING"}
	client.On("CreateGiftCard", mock.Anything, mock.MatchedBy(func(req squareapi.CreateGiftCardRequest) bool {
		return req.LocationID == testLocationID &&
			req.IdempotencyKey != "" &&
			req.GiftCard.Type == "DIGITAL"
	})).Return(&squareapi.CreateGiftCardResponse{GiftCard: created}, nil)

	client.On("LinkCustomer", mock.Anything, "gc_new", "cust_1").
		Return(&squareapi.LinkCustomerResponse{GiftCard: created}, nil)

	client.On("CreateGiftCardActivity", mock.Anything, mock.MatchedBy(func(req squareapi.CreateActivityRequest) bool {
		activity := req.GiftCardActivity
		return activity.Type == "ACTIVATE" &&
			activity.GiftCardID == "gc_new" &&
			activity.ActivateActivityDetails != nil &&
			activity.ActivateActivityDetails.AmountMoney.Amount == 2500
	})).Return(&squareapi.CreateActivityResponse{}, nil)

	card, err := svc.IssueGiftCard(context.Background(), &IssueGiftCardRequest{
		AmountCents: 2500,
		CustomerID:  "cust_1",
	})

	require.NoError(t, err)
	assert.Equal(t, "gc_new", card.ID)
	client.AssertExpectations(t)
}

func TestService_IssueGiftCard_NoActivationWithoutAmount(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	created := &squareapi.GiftCard{ID: "gc_new", Type: "PHYSICAL", State: "PENDING"}
	client.On("CreateGiftCard", mock.Anything, mock.Anything).
		Return(&squareapi.CreateGiftCardResponse{GiftCard: created}, nil)

	card, err := svc.IssueGiftCard(context.Background(), &IssueGiftCardRequest{Type: "PHYSICAL"})

	require.NoError(t, err)
	assert.Equal(t, "gc_new", card.ID)
	client.AssertNotCalled(t, "LinkCustomer", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "CreateGiftCardActivity", mock.Anything, mock.Anything)
}

func TestService_IssueGiftCard_MissingLocation(t *testing.T) {
	client := new(mockRemoteClient)
	svc := NewService(client, "")

	_, err := svc.IssueGiftCard(context.Background(), &IssueGiftCardRequest{})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Code)
}

func TestService_IssueGiftCard_EmptyCreateResponse(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	client.On("CreateGiftCard", mock.Anything, mock.Anything).
		Return(&squareapi.CreateGiftCardResponse{}, nil)

	_, err := svc.IssueGiftCard(context.Background(), &IssueGiftCardRequest{})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 500, appErr.Code)
}

// ============================================================
// AdjustGiftCardBalance Tests
// ============================================================

func TestService_AdjustGiftCardBalance_Sign(t *testing.T) {
	tests := []struct {
		name        string
		amountCents int64
		wantType    string
		wantAmount  int64
	}{
		{"positive amount increments", 500, "ADJUST_INCREMENT", 500},
		{"negative amount decrements with absolute value", -750, "ADJUST_DECREMENT", 750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockRemoteClient)
			svc := newTestService(client)

			client.On("CreateGiftCardActivity", mock.Anything, mock.MatchedBy(func(req squareapi.CreateActivityRequest) bool {
				activity := req.GiftCardActivity
				if activity.Type != tt.wantType {
					return false
				}
				details := activity.AdjustIncrementActivityDetails
				if tt.wantType == "ADJUST_DECREMENT" {
					details = activity.AdjustDecrementActivityDetails
				}
				return details != nil && details.AmountMoney.Amount == tt.wantAmount
			})).Return(&squareapi.CreateActivityResponse{}, nil)

			err := svc.AdjustGiftCardBalance(context.Background(), "gc_1", &AdjustGiftCardRequest{
				AmountCents: tt.amountCents,
			})

			require.NoError(t, err)
			client.AssertExpectations(t)
		})
	}
}

func TestService_AdjustGiftCardBalance_ZeroRejected(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	err := svc.AdjustGiftCardBalance(context.Background(), "gc_1", &AdjustGiftCardRequest{AmountCents: 0})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Code)
	client.AssertNotCalled(t, "CreateGiftCardActivity", mock.Anything, mock.Anything)
}

// ============================================================
// LoadGiftCardBalance Tests
// ============================================================

func TestService_LoadGiftCardBalance(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	client.On("CreateGiftCardActivity", mock.Anything, mock.MatchedBy(func(req squareapi.CreateActivityRequest) bool {
		activity := req.GiftCardActivity
		return activity.Type == "LOAD" &&
			activity.LoadActivityDetails != nil &&
			activity.LoadActivityDetails.AmountMoney.Amount == 1000
	})).Return(&squareapi.CreateActivityResponse{}, nil)

	err := svc.LoadGiftCardBalance(context.Background(), "gc_1", &LoadGiftCardRequest{AmountCents: 1000})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestService_LoadGiftCardBalance_InvalidAmount(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	err := svc.LoadGiftCardBalance(context.Background(), "gc_1", &LoadGiftCardRequest{AmountCents: -100})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Code)
}

// ============================================================
// SearchGiftCard Tests
// ============================================================

func TestService_SearchGiftCard_FoundByID(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	client.On("RetrieveGiftCard", mock.Anything, "gc_1").Return(&squareapi.RetrieveGiftCardResponse{
		GiftCard: &squareapi.GiftCard{ID: "gc_1", State: "ACTIVE"},
	}, nil)

	card, err := svc.SearchGiftCard(context.Background(), "gc_1")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "gc_1", card.ID)
	client.AssertNotCalled(t, "RetrieveGiftCardFromGAN", mock.Anything, mock.Anything)
}

func TestService_SearchGiftCard_FallsBackToGAN(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	client.On("RetrieveGiftCard", mock.Anything, "7783320001001000").
		Return(nil, &squareapi.RequestError{StatusCode: 404})
	client.On("RetrieveGiftCardFromGAN", mock.Anything, "7783320001001000").
		Return(&squareapi.RetrieveGiftCardResponse{
			GiftCard: &squareapi.GiftCard{ID: "gc_1", GAN: "7783320001001000"},
		}, nil)

	card, err := svc.SearchGiftCard(context.Background(), "7783320001001000")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "gc_1", card.ID)
}

func TestService_SearchGiftCard_NoMatch(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	client.On("RetrieveGiftCard", mock.Anything, "nope").
		Return(nil, &squareapi.RequestError{StatusCode: 404})
	client.On("RetrieveGiftCardFromGAN", mock.Anything, "nope").
		Return(nil, &squareapi.RequestError{StatusCode: 404})

	card, err := svc.SearchGiftCard(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, card)
}

func TestService_SearchGiftCard_BlankQuery(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	card, err := svc.SearchGiftCard(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, card)
	client.AssertNotCalled(t, "RetrieveGiftCard", mock.Anything, mock.Anything)
}

// ============================================================
// Error Translation Tests
// ============================================================

func TestService_RemoteErrorTranslation(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	client.On("RetrieveGiftCard", mock.Anything, "gc_1").Return(nil, &squareapi.RequestError{
		StatusCode: 404,
		Errors: []squareapi.APIError{
			{Code: "NOT_FOUND", Detail: "Gift card not found"},
			{Code: "INVALID_VALUE"},
		},
	})

	_, err := svc.RetrieveGiftCard(context.Background(), "gc_1")

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Code)
	assert.Contains(t, appErr.Message, "Gift card not found")
	assert.Contains(t, appErr.Message, "INVALID_VALUE")
}

func TestService_NonRemoteErrorsPassThrough(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	plainErr := errors.New("connection refused")
	client.On("RetrieveGiftCard", mock.Anything, "gc_1").Return(nil, plainErr)

	_, err := svc.RetrieveGiftCard(context.Background(), "gc_1")

	var appErr *common.AppError
	assert.False(t, errors.As(err, &appErr))
	assert.ErrorIs(t, err, plainErr)
}

// ============================================================
// List Tests
// ============================================================

func TestService_ListGiftCards(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	client.On("ListGiftCards", mock.Anything, squareapi.ListGiftCardsOptions{
		State: "ACTIVE",
		Limit: defaultListLimit,
	}).Return(&squareapi.ListGiftCardsResponse{
		GiftCards: []squareapi.GiftCard{
			{ID: "gc_1", State: "ACTIVE", BalanceMoney: &squareapi.Money{Amount: 100, Currency: "USD"}},
			{ID: "gc_2", State: "ACTIVE"},
		},
		Cursor: "next-page",
	}, nil)

	page, err := svc.ListGiftCards(context.Background(), ListOptions{State: "ACTIVE"})
	require.NoError(t, err)
	require.Len(t, page.Cards, 2)
	assert.Equal(t, "next-page", page.Cursor)
	assert.Equal(t, int64(100), page.Cards[0].Balance.Amount)
	// Missing balance normalizes instead of erroring
	assert.Equal(t, Money{Amount: 0, Currency: "USD"}, page.Cards[1].Balance)
}

func TestService_ListGiftCardActivities_PassesFilters(t *testing.T) {
	client := new(mockRemoteClient)
	svc := newTestService(client)

	client.On("ListGiftCardActivities", mock.Anything, squareapi.ListActivitiesOptions{
		GiftCardID: "gc_1",
		Type:       "REDEEM",
		LocationID: testLocationID,
		BeginTime:  "2026-08-01T00:00:00Z",
		EndTime:    "2026-08-31T00:00:00Z",
		Limit:      defaultListLimit,
		SortOrder:  "DESC",
	}).Return(&squareapi.ListActivitiesResponse{
		GiftCardActivities: []squareapi.GiftCardActivity{
			{ID: "gca_1", Type: "REDEEM", GiftCardID: "gc_1"},
		},
	}, nil)

	page, err := svc.ListGiftCardActivities(context.Background(), ActivityListOptions{
		GiftCardID: "gc_1",
		Type:       "REDEEM",
		LocationID: testLocationID,
		BeginTime:  "2026-08-01T00:00:00Z",
		EndTime:    "2026-08-31T00:00:00Z",
	})
	require.NoError(t, err)
	require.Len(t, page.Activities, 1)
	assert.Equal(t, "gca_1", page.Activities[0].ID)
	client.AssertExpectations(t)
}

// ============================================================
// BuildStats Tests
// ============================================================

func TestBuildStats(t *testing.T) {
	cards := []GiftCard{
		testCard("gc_1", 1000, StateActive),
		testCard("gc_2", 500, StateActive),
		testCard("gc_3", 250, StateBlocked),
		testCard("gc_4", 0, StateDeactivated),
		testCard("gc_5", 99, StatePending),
	}

	stats := BuildStats(cards)

	assert.Equal(t, int64(1849), stats.TotalBalance)
	assert.Equal(t, 2, stats.ActiveCards)
	assert.Equal(t, 1, stats.BlockedCards)
	assert.Equal(t, 1, stats.DeactivatedCards)
	assert.Equal(t, 5, stats.TotalIssued)
}

func TestBuildStats_Empty(t *testing.T) {
	stats := BuildStats(nil)
	assert.Equal(t, Stats{}, stats)
}
