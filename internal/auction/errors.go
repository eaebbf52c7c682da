package auction

import (
	"errors"

	"Dauction/internal/commitment"
	"Dauction/internal/pricing"
)

// Authorization errors.
var (
	ErrNotOwner          = errors.New("not asset owner")
	ErrNotAuctionOwner   = errors.New("not auction owner")
	ErrSellerCannotBid   = errors.New("seller cannot bid")
	ErrOperatorCannotBid = errors.New("deployer cannot bid")
	ErrMissingCaller     = errors.New("missing caller identity")
	ErrReentrantCall     = errors.New("reentrant call")
)

// Temporal errors.
var (
	ErrNotStarted         = errors.New("auction has not started")
	ErrEnded              = errors.New("auction has ended")
	ErrNotInRevealPhase   = errors.New("not in reveal phase")
	ErrRevealPhaseNotOver = errors.New("reveal phase not over")
)

// Structural and input errors.
var (
	ErrInvalidStartTime    = errors.New("invalid start time")
	ErrZeroPrice           = errors.New("zero min bid price")
	ErrInvalidEndTime      = errors.New("invalid end time")
	ErrInvalidRevealWindow = errors.New("invalid reveal window")
	ErrZeroCommitment      = commitment.ErrZeroCommitment
	ErrInvalidBidToken     = errors.New("invalid bid token")
	ErrDuplicateCommitment = errors.New("initialized bidCommitment")
	ErrZeroBidValue        = errors.New("zero bid value")
	ErrAlreadyRevealed     = errors.New("bid already revealed")
	ErrAuctionExists       = errors.New("auction already exists")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Verification, solvency and not-found errors.
var (
	ErrInvalidBidHash                = commitment.ErrInvalidBidHash
	ErrInsufficientBalanceOrApproval = errors.New("insufficient balance or approval")
	ErrNonexistentAuction            = errors.New("nonexistent auction")
	ErrNoBids                        = errors.New("no bids")
	ErrNoBidCommitment               = errors.New("no bid commitment")
)

// Collaborator errors.
var (
	ErrOracle         = pricing.ErrOracle
	ErrTransferFailed = errors.New("transfer failed")
)

// Class is the error taxonomy an operation failure belongs to.
type Class string

const (
	ClassNone          Class = ""
	ClassAuthorization Class = "authorization"
	ClassTemporal      Class = "temporal"
	ClassInput         Class = "input"
	ClassVerification  Class = "verification"
	ClassSolvency      Class = "solvency"
	ClassNotFound      Class = "not_found"
	ClassOracle        Class = "oracle"
	ClassTransfer      Class = "transfer"
	ClassInternal      Class = "internal"
)

var classes = []struct {
	class Class
	errs  []error
}{
	{ClassAuthorization, []error{ErrNotOwner, ErrNotAuctionOwner, ErrSellerCannotBid, ErrOperatorCannotBid, ErrMissingCaller, ErrReentrantCall}},
	{ClassTemporal, []error{ErrNotStarted, ErrEnded, ErrNotInRevealPhase, ErrRevealPhaseNotOver}},
	{ClassInput, []error{ErrInvalidStartTime, ErrZeroPrice, ErrInvalidEndTime, ErrInvalidRevealWindow, ErrZeroCommitment, ErrInvalidBidToken, ErrDuplicateCommitment, ErrZeroBidValue, ErrAlreadyRevealed, ErrAuctionExists, ErrInvalidAmount}},
	{ClassVerification, []error{ErrInvalidBidHash}},
	{ClassSolvency, []error{ErrInsufficientBalanceOrApproval}},
	{ClassNotFound, []error{ErrNonexistentAuction, ErrNoBids, ErrNoBidCommitment}},
	{ClassOracle, []error{ErrOracle}},
	{ClassTransfer, []error{ErrTransferFailed}},
}

// Classify maps an operation error to its taxonomy class.
// Unrecognized errors are internal.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	for _, c := range classes {
		for _, target := range c.errs {
			if errors.Is(err, target) {
				return c.class
			}
		}
	}

	return ClassInternal
}
