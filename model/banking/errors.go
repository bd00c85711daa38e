package banking

import "errors"

// Admission failures returned by CostTracker.TryAdd. Each corresponds to
// exactly one of the five accumulator ceilings.
var (
	ErrWouldExceedMaxBlockCostLimit      = errors.New("would exceed max block cost limit")
	ErrWouldExceedMaxVoteCostLimit       = errors.New("would exceed max vote cost limit")
	ErrWouldExceedMaxAccountCostLimit    = errors.New("would exceed max account cost limit")
	ErrWouldExceedAccountDataBlockLimit  = errors.New("would exceed account data block limit")
	ErrWouldExceedAccountDataTotalLimit  = errors.New("would exceed account data total limit")
)

// IsPermanentDrop reports whether an admission failure should permanently
// drop the transaction rather than retry it in the next bank. Only the
// account-data-total ceiling is a hard global cap with no next-bank relief.
func IsPermanentDrop(err error) bool {
	return errors.Is(err, ErrWouldExceedAccountDataTotalLimit)
}
