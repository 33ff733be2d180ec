package subscription

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, body string) *Request {
	t.Helper()
	req, err := ValidateWith([]byte(body), fixedID)
	require.NoError(t, err)
	return req
}

func TestRouter_Route(t *testing.T) {
	router := DefaultRouter()

	t.Run("matches_operation_name", func(t *testing.T) {
		route, err := router.Route(request(t, `{
			"query": "subscription S { transactionAdded(accountId: $accountId) { id } }",
			"operationName": "SubscribeToTransactions",
			"variables": {"accountId": "acc-2"},
			"id": "t1"
		}`))
		require.NoError(t, err)

		assert.Equal(t, KindTransactionAdded, route.Kind)
		assert.Equal(t, "SubscribeToTransactions", route.Operation)
		assert.Equal(t, "acc-2", route.AccountID())
		assert.Equal(t, "t1", route.SubscriptionID)
	})

	t.Run("falls_back_to_query_text", func(t *testing.T) {
		route, err := router.Route(request(t, `{
			"query": "subscription SubscribeToAccountBalance($accountId: ID!) { accountBalanceUpdated(accountId: $accountId) { id balance } }",
			"variables": {"accountId": "acc-1"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, KindAccountBalanceUpdated, route.Kind)
	})

	t.Run("unmatched_name_falls_back_to_query_text", func(t *testing.T) {
		route, err := router.Route(request(t, `{
			"query": "subscription SubscribeToTransactions { transactionAdded { id } }",
			"operationName": "Renamed",
			"variables": {"accountId": "acc-1"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, KindTransactionAdded, route.Kind)
	})

	t.Run("operation_name_wins_over_query_text", func(t *testing.T) {
		route, err := router.Route(request(t, `{
			"query": "subscription SubscribeToAccountBalance { x }",
			"operationName": "SubscribeToTransactions",
			"variables": {"accountId": "acc-1"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, KindTransactionAdded, route.Kind)
	})

	t.Run("missing_account_id", func(t *testing.T) {
		_, err := router.Route(request(t, `{"query":"subscription SubscribeToAccountBalance { x }"}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingParameter))
		assert.Equal(t, "Missing accountId parameter", Message(err))
	})

	t.Run("unknown_operation", func(t *testing.T) {
		_, err := router.Route(request(t, `{"query":"subscription OnWeather { weather }","variables":{"accountId":"acc-1"}}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownOperation))
		assert.Equal(t, "Unknown subscription", Message(err))
	})

	t.Run("field_name_alone_is_not_a_match", func(t *testing.T) {
		_, err := router.Route(request(t, `{"query":"subscription { accountBalanceUpdated(accountId: \"acc-1\") { id } }","variables":{"accountId":"acc-1"}}`))
		assert.True(t, errors.Is(err, ErrUnknownOperation))
	})
}

func TestRouter_Operations(t *testing.T) {
	ops := DefaultRouter().Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "SubscribeToAccountBalance", ops[0].Name)
	assert.Equal(t, "SubscribeToTransactions", ops[1].Name)
}

func TestMessage_ForeignError(t *testing.T) {
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
