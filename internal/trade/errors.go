package trade

import (
	"errors"
	"fmt"
)

// ErrAbandoned is the base class for expected, non-fatal outcomes: the run
// stops cleanly without broadcasting anything. Callers distinguish it from
// hard failures with errors.Is.
var ErrAbandoned = errors.New("trade abandoned")

var (
	// ErrInsufficientFunds indicates the buyer cannot cover the price.
	ErrInsufficientFunds = fmt.Errorf("%w: buyer doesn't have enough funds", ErrAbandoned)

	// ErrNoSpendableOutputs indicates the buyer holds no non-inscription
	// spendable outputs at all.
	ErrNoSpendableOutputs = fmt.Errorf("%w: buyer doesn't have any spendable utxos", ErrAbandoned)
)

var (
	// ErrSeparatorFunding indicates the output chosen to mint the separator
	// cannot cover the dust value plus the creation overhead.
	ErrSeparatorFunding = errors.New("source output too small to mint separator")

	// ErrNegativeChange indicates the selected payment inputs cannot cover
	// every output of the purchase transaction. Coin selection guarantees
	// this never happens; hitting it is a bug, not an abandonment.
	ErrNegativeChange = errors.New("selected payment value cannot cover outputs")

	// ErrSeparatorOwner indicates the separator output is not owned by the
	// configured buyer address. The recombined asset output pays to the
	// separator's owner, so the two must match.
	ErrSeparatorOwner = errors.New("separator output not owned by buyer address")

	// ErrIncompleteSignatures indicates finalization found inputs still
	// missing signatures.
	ErrIncompleteSignatures = errors.New("psbt is missing signatures after processing")
)
