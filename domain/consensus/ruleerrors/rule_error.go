package ruleerrors

import (
	"fmt"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrSelfDoubleSpend indicates a transaction claims the same outpoint
	// more than once.
	ErrSelfDoubleSpend = newRuleError("ErrSelfDoubleSpend")

	// ErrUnknownOutput indicates a transaction claims an outpoint that
	// either never existed or has already been spent.
	ErrUnknownOutput = newRuleError("ErrUnknownOutput")

	// ErrBadSignature indicates an input's signature doesn't verify
	// against the owner of the outpoint it claims.
	ErrBadSignature = newRuleError("ErrBadSignature")

	// ErrNegativeOutput indicates a transaction output carries a negative
	// value.
	ErrNegativeOutput = newRuleError("ErrNegativeOutput")

	// ErrInsufficientInput indicates a transaction is attempting to spend
	// more value than the sum of all of its inputs.
	ErrInsufficientInput = newRuleError("ErrInsufficientInput")

	// ErrValueOverflow indicates that the sum of a transaction's input or
	// output values doesn't fit in an int64.
	ErrValueOverflow = newRuleError("ErrValueOverflow")

	// ErrUnknownParent indicates a block's parent is not a currently
	// retained block: it was never seen or it was already pruned.
	ErrUnknownParent = newRuleError("ErrUnknownParent")

	// ErrPartialBlock indicates one or more of a block's transactions
	// failed validation, so the whole block is rejected.
	ErrPartialBlock = newRuleError("ErrPartialBlock")

	// ErrDuplicateBlock indicates a block with the same hash is already
	// retained.
	ErrDuplicateBlock = newRuleError("ErrDuplicateBlock")

	// ErrBadCoinbaseTransaction indicates that the block's coinbase
	// transaction is missing or is not built as a single non-negative
	// output with no inputs.
	ErrBadCoinbaseTransaction = newRuleError("ErrBadCoinbaseTransaction")

	// ErrMultipleCoinbases indicates a block declares a coinbase
	// transaction among its regular transactions.
	ErrMultipleCoinbases = newRuleError("ErrMultipleCoinbases")
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block or transaction failed due to one of the many validation
// rules. The caller can use errors.Is or errors.As to determine if a failure
// was specifically due to a rule violation.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

// Is reports whether target is the RuleError of the same kind, so that
// errors.Is(err, ErrPartialBlock) holds even when err carries inner details.
func (e RuleError) Is(target error) bool {
	targetRuleError, ok := target.(RuleError)
	return ok && targetRuleError.message == e.message
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// IsRuleError returns whether err is, or wraps, a RuleError
func IsRuleError(err error) bool {
	var ruleError RuleError
	return errors.As(err, &ruleError)
}

// ErrMissingTxOut indicates a transaction output referenced by an input
// either does not exist or has already been spent.
type ErrMissingTxOut struct {
	MissingOutpoints []*externalapi.DomainOutpoint
}

func (e ErrMissingTxOut) Error() string {
	return fmt.Sprintf("missing the following outpoint: %v", e.MissingOutpoints)
}

// NewErrMissingTxOut Creates a new ErrMissingTxOut error wrapped in an
// ErrUnknownOutput RuleError
func NewErrMissingTxOut(missingOutpoints []*externalapi.DomainOutpoint) error {
	return errors.WithStack(RuleError{
		message: ErrUnknownOutput.message,
		inner:   ErrMissingTxOut{missingOutpoints},
	})
}

// ErrMissingParent indicates a block points to a parent that isn't retained.
type ErrMissingParent struct {
	ParentHash *externalapi.DomainHash
}

func (e ErrMissingParent) Error() string {
	return fmt.Sprintf("missing parent %s", e.ParentHash)
}

// NewErrMissingParent creates a new ErrMissingParent error wrapped in an
// ErrUnknownParent RuleError
func NewErrMissingParent(parentHash *externalapi.DomainHash) error {
	return errors.WithStack(RuleError{
		message: ErrUnknownParent.message,
		inner:   ErrMissingParent{parentHash},
	})
}

// InvalidTransaction is a struct containing an invalid transaction, and the error explaining why it's invalid.
type InvalidTransaction struct {
	Transaction *externalapi.DomainTransaction
	Error       error
}

func (invalid InvalidTransaction) String() string {
	return fmt.Sprintf("(%v: %s)", consensushashing.TransactionID(invalid.Transaction), invalid.Error)
}

// ErrInvalidTransactionsInBlock indicates that some transactions in a block are invalid
type ErrInvalidTransactionsInBlock struct {
	InvalidTransactions []InvalidTransaction
}

func (e ErrInvalidTransactionsInBlock) Error() string {
	return fmt.Sprint(e.InvalidTransactions)
}

// NewErrInvalidTransactionsInBlock Creates a new ErrInvalidTransactionsInBlock
// error wrapped in an ErrPartialBlock RuleError
func NewErrInvalidTransactionsInBlock(invalidTransactions []InvalidTransaction) error {
	return errors.WithStack(RuleError{
		message: ErrPartialBlock.message,
		inner:   ErrInvalidTransactionsInBlock{invalidTransactions},
	})
}
