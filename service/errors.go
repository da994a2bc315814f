package service

import "errors"

// Economy errors. Services wrap these with context; callers match with errors.Is.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrCollectionFull       = errors.New("collection is full")
	ErrNotOwned             = errors.New("card not owned")
	ErrAlreadyOwned         = errors.New("card already owned")
	ErrInvalidIndex         = errors.New("invalid inventory index")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrUnknownCard          = errors.New("unknown card")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
	ErrNoActiveAuction      = errors.New("no active auction for card")
	ErrAuctionAlreadyActive = errors.New("auction already active for card")
	ErrAuctionExpired       = errors.New("auction has expired")
	ErrBidTooLow            = errors.New("bid must exceed the current highest bid")
	ErrSelfTrade            = errors.New("cannot trade with yourself")
	ErrTradeNotFound        = errors.New("trade offer not found")
	ErrNotRecipient         = errors.New("only the recipient can resolve this trade")
	ErrNotPending           = errors.New("trade offer is no longer pending")
	ErrStaleOffer           = errors.New("offer no longer matches the inventory")
	ErrInvalidLink          = errors.New("link must be an http or https url")
)
