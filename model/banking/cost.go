package banking

// TransactionCost is the cost vector computed by the cost model for a
// single transaction. The sum of its fields is the admission cost charged
// against the cost tracker's accumulators.
type TransactionCost struct {
	SignatureCost               uint64
	WriteLockCost                uint64
	DataBytesCost                uint64
	LoadedAccountsDataSizeCost   uint64
	ProgramExecutionCost         uint64
}

// Sum returns the total admission cost.
func (c TransactionCost) Sum() uint64 {
	return c.SignatureCost + c.WriteLockCost + c.DataBytesCost + c.LoadedAccountsDataSizeCost + c.ProgramExecutionCost
}

// WithExecutionCost returns a copy of c with ProgramExecutionCost replaced,
// used during reconciliation to swap the admitted estimate for the actual
// consumed compute units.
func (c TransactionCost) WithExecutionCost(actual uint64) TransactionCost {
	c.ProgramExecutionCost = actual
	return c
}
