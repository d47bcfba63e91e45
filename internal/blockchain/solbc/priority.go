// internal/blockchain/solbc/priority.go
package solbc

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/shopspring/decimal"
)

// DefaultComputeUnits is the runtime's per-transaction allowance when no
// explicit limit is requested.
const DefaultComputeUnits uint32 = 200_000

var microLamportsPerSol = decimal.New(1, 15)

// PriorityFee describes the optional compute budget of a transaction.
type PriorityFee struct {
	// ComputeUnits sets an explicit limit when non-zero.
	ComputeUnits uint32
	// FeeSol is the total priority fee, in SOL, spread over the compute units.
	FeeSol string
}

// Instructions returns the compute budget instructions, possibly none.
func (p PriorityFee) Instructions() ([]solana.Instruction, error) {
	var instructions []solana.Instruction
	if p.ComputeUnits > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(p.ComputeUnits).Build())
	}
	if p.FeeSol == "" {
		return instructions, nil
	}

	fee, err := decimal.NewFromString(p.FeeSol)
	if err != nil {
		return nil, fmt.Errorf("invalid priority fee: %w", err)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("invalid priority fee: %s", p.FeeSol)
	}
	units := p.ComputeUnits
	if units == 0 {
		units = DefaultComputeUnits
	}
	perUnit := fee.Mul(microLamportsPerSol).Div(decimal.NewFromInt(int64(units))).Floor()
	if perUnit.IsPositive() {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(uint64(perUnit.IntPart())).Build())
	}
	return instructions, nil
}
