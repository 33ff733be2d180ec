package subscription

import (
	"fmt"
	"strings"
)

// Kind names the domain stream serving a subscription.
type Kind string

const (
	// KindAccountBalanceUpdated streams balance snapshots and bursts of
	// incoming payments for one account.
	KindAccountBalanceUpdated Kind = "AccountBalanceUpdated"
	// KindTransactionAdded streams newly posted transactions for one
	// account.
	KindTransactionAdded Kind = "TransactionAdded"
)

// VarAccountID is the variable both account streams require.
const VarAccountID = "accountId"

// Operation is a registered subscription document name.
type Operation struct {
	// Name is the GraphQL operation name, e.g. SubscribeToAccountBalance.
	Name string
	Kind Kind
	// Required lists the variables that must be present.
	Required []string
}

// Operations registered by DefaultRouter.
var (
	SubscribeToAccountBalance = Operation{
		Name:     "SubscribeToAccountBalance",
		Kind:     KindAccountBalanceUpdated,
		Required: []string{VarAccountID},
	}
	SubscribeToTransactions = Operation{
		Name:     "SubscribeToTransactions",
		Kind:     KindTransactionAdded,
		Required: []string{VarAccountID},
	}
)

// Route is the routing decision for one request.
type Route struct {
	Kind           Kind
	Operation      string
	SubscriptionID string
	// Args holds the required variables rendered as strings.
	Args map[string]string
}

// AccountID returns the accountId argument.
func (r Route) AccountID() string {
	return r.Args[VarAccountID]
}

// Router matches requests against registered operations.
type Router struct {
	operations []Operation
}

// NewRouter creates a router. Substring matching tries operations in the
// order given.
func NewRouter(operations ...Operation) *Router {
	return &Router{operations: operations}
}

// DefaultRouter registers the account balance and transaction streams.
func DefaultRouter() *Router {
	return NewRouter(SubscribeToAccountBalance, SubscribeToTransactions)
}

// Operations returns the registered operations.
func (r *Router) Operations() []Operation {
	out := make([]Operation, len(r.operations))
	copy(out, r.operations)
	return out
}

// Route picks the operation for req. The operationName is matched exactly
// first; when it is absent or unmatched the query text is searched for a
// registered name. A matched operation missing a required variable fails
// with ErrMissingParameter, no match at all with ErrUnknownOperation.
func (r *Router) Route(req *Request) (Route, error) {
	op, ok := r.match(req)
	if !ok {
		return Route{}, newError(ErrUnknownOperation, "Unknown subscription")
	}

	args := make(map[string]string, len(op.Required))
	for _, name := range op.Required {
		value, present := req.StringVariable(name)
		if !present {
			return Route{}, newError(ErrMissingParameter, fmt.Sprintf("Missing %s parameter", name))
		}
		args[name] = value
	}

	return Route{
		Kind:           op.Kind,
		Operation:      op.Name,
		SubscriptionID: req.ID,
		Args:           args,
	}, nil
}

func (r *Router) match(req *Request) (Operation, bool) {
	if req.OperationName != "" {
		for _, op := range r.operations {
			if op.Name == req.OperationName {
				return op, true
			}
		}
	}
	for _, op := range r.operations {
		if strings.Contains(req.Query, op.Name) {
			return op, true
		}
	}
	return Operation{}, false
}
