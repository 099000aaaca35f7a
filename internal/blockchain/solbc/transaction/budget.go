// internal/blockchain/solbc/transaction/budget.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

// Budget вычислительный бюджет и приоритетная комиссия транзакции.
type Budget struct {
	ComputeUnits uint32 // 0 или DefaultComputeUnits - без инструкции лимита
	PriorityFee  uint64 // micro-lamports за compute unit
	HeapFrame    uint32 // дополнительная куча в байтах (опционально)
}

type PriorityLevel string

const (
	PriorityNone    PriorityLevel = "none"
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

var priorityProfiles = map[PriorityLevel]Budget{
	PriorityNone:    {ComputeUnits: DefaultComputeUnits},
	PriorityLow:     {ComputeUnits: 200_000, PriorityFee: 1_000},
	PriorityMedium:  {ComputeUnits: 400_000, PriorityFee: 5_000},
	PriorityHigh:    {ComputeUnits: 800_000, PriorityFee: 10_000},
	PriorityExtreme: {ComputeUnits: 1_000_000, PriorityFee: 50_000, HeapFrame: 32 * 1024},
}

// BudgetForLevel возвращает предустановленный бюджет.
func BudgetForLevel(level PriorityLevel) (Budget, error) {
	b, ok := priorityProfiles[level]
	if !ok {
		return Budget{}, blockchain.NewError(blockchain.CodeInvalidInput,
			fmt.Sprintf("unknown priority level: %s", level), nil)
	}
	return b, nil
}

// Instructions строит инструкции compute budget: лимит, затем цена, затем куча.
func (b Budget) Instructions() []solana.Instruction {
	var instructions []solana.Instruction

	if b.ComputeUnits != 0 && b.ComputeUnits != DefaultComputeUnits {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(b.ComputeUnits).Build())
	}
	if b.PriorityFee > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(b.PriorityFee).Build())
	}
	if b.HeapFrame > 0 {
		instructions = append(instructions, computebudget.NewRequestHeapFrameInstruction(b.HeapFrame).Build())
	}

	return instructions
}
