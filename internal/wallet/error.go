package wallet

import "errors"

var (
	ErrWalletNotFound     = errors.New("customer wallet not found")
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrRechargeNotFound   = errors.New("recharge request not found")
	ErrRechargeNotPending = errors.New("recharge request is not pending")
)
