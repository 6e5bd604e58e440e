package a1hub

import "errors"

var (
	// ErrInvalidSponsor aborts the whole activation pipeline: without a valid
	// active sponsor there is no chain to extend or pay.
	ErrInvalidSponsor = errors.New("sponsor missing or inactive")

	// ErrTreeAlreadyBuilt signals a re-run of tree extension for a member
	// whose closure rows already exist. Callers treat it as success.
	ErrTreeAlreadyBuilt = errors.New("referral tree already built")

	// ErrDuplicatePayment signals distribution re-run for an already processed
	// payment id. Callers treat it as success and use the returned entries.
	ErrDuplicatePayment = errors.New("payment already distributed")

	// ErrLedgerCredit marks a transient per-beneficiary wallet failure. It is
	// isolated, journaled as retry_pending and left for the retry sweep.
	ErrLedgerCredit = errors.New("wallet credit failed")
)
