// internal/blockchain/solbc/transaction/envelope.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

// Envelope проводит одну попытку транзакции через цепочку состояний
// Built → BudgetAugmented → Stamped → Signed → Submitted → {Confirmed | Failed | TimedOut}.
// Конверт одноразовый: повтор строит новый.
type Envelope struct {
	state        State
	instructions []solana.Instruction
	feePayer     solana.PublicKey
	blockhash    *blockchain.Blockhash
	tx           *solana.Transaction
	signature    solana.Signature
}

// NewEnvelope создаёт конверт в состоянии Built из инструкций вызывающего.
func NewEnvelope(instructions []solana.Instruction, feePayer solana.PublicKey) (*Envelope, error) {
	if len(instructions) == 0 {
		return nil, blockchain.WrapError(ErrNoInstructions, blockchain.CodeInvalidInput, "cannot build transaction", nil)
	}
	for i, inst := range instructions {
		if inst == nil {
			return nil, blockchain.WrapError(ErrInvalidInstruction, blockchain.CodeInvalidInput, "cannot build transaction",
				map[string]interface{}{"index": i})
		}
	}
	if feePayer.IsZero() {
		return nil, blockchain.NewError(blockchain.CodeInvalidInput, "fee payer is not set", nil)
	}

	return &Envelope{
		state:        StateBuilt,
		instructions: append([]solana.Instruction(nil), instructions...),
		feePayer:     feePayer,
	}, nil
}

// State возвращает текущее состояние.
func (e *Envelope) State() State {
	return e.state
}

// Instructions возвращает копию списка инструкций.
func (e *Envelope) Instructions() []solana.Instruction {
	return append([]solana.Instruction(nil), e.instructions...)
}

// Transaction возвращает собранную транзакцию (после Stamp).
func (e *Envelope) Transaction() *solana.Transaction {
	return e.tx
}

// Blockhash возвращает blockhash, которым проштампован конверт.
func (e *Envelope) Blockhash() *blockchain.Blockhash {
	return e.blockhash
}

// Signature возвращает подпись плательщика (после Sign).
func (e *Envelope) Signature() solana.Signature {
	return e.signature
}

func (e *Envelope) advance(from, to State) error {
	if e.state != from {
		return blockchain.NewError(blockchain.CodeInvalidInput,
			fmt.Sprintf("illegal transaction state transition %s -> %s", e.state, to),
			map[string]interface{}{"state": e.state.String(), "expected": from.String()})
	}
	e.state = to
	return nil
}

// Augment дописывает инструкции compute budget после инструкций вызывающего.
func (e *Envelope) Augment(b Budget) error {
	if err := e.advance(StateBuilt, StateBudgetAugmented); err != nil {
		return err
	}
	e.instructions = append(e.instructions, b.Instructions()...)
	return nil
}

// Stamp собирает транзакцию со свежим blockhash.
func (e *Envelope) Stamp(bh *blockchain.Blockhash) error {
	if bh == nil || bh.Hash.IsZero() {
		return blockchain.WrapError(ErrInvalidBlockhash, blockchain.CodeInvalidInput, "cannot stamp transaction", nil)
	}
	if e.state != StateBudgetAugmented {
		return e.advance(StateBudgetAugmented, StateStamped)
	}

	tx, err := solana.NewTransaction(e.instructions, bh.Hash, solana.TransactionPayer(e.feePayer))
	if err != nil {
		return blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to create transaction", nil)
	}
	e.tx = tx
	e.blockhash = bh
	return e.advance(StateBudgetAugmented, StateStamped)
}

// Sign подписывает сообщение всеми подписантами в переданном порядке.
// Подпись кладётся на позицию подписанта в заголовке сообщения; подписанты,
// не требуемые транзакцией, игнорируются.
func (e *Envelope) Sign(signers []blockchain.Signer) error {
	if e.state != StateStamped {
		return e.advance(StateStamped, StateSigned)
	}

	message, err := e.tx.Message.MarshalBinary()
	if err != nil {
		return blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to serialize message", nil)
	}

	required := int(e.tx.Message.Header.NumRequiredSignatures)
	keys := e.tx.Message.AccountKeys
	signatures := make([]solana.Signature, required)
	signed := make([]bool, required)

	for _, signer := range signers {
		if signer == nil {
			continue
		}
		pub := signer.PublicKey()
		for idx := 0; idx < required && idx < len(keys); idx++ {
			if !keys[idx].Equals(pub) || signed[idx] {
				continue
			}
			sig, err := signer.Sign(message)
			if err != nil {
				return blockchain.WrapError(err, blockchain.CodeInvalidInput, "signer failed",
					map[string]interface{}{"signer": pub.String()})
			}
			signatures[idx] = sig
			signed[idx] = true
		}
	}

	for idx, ok := range signed {
		if !ok {
			return blockchain.WrapError(ErrMissingSigner, blockchain.CodeInvalidInput, "transaction is not fully signed",
				map[string]interface{}{"signer": keys[idx].String()})
		}
	}

	e.tx.Signatures = signatures
	e.signature = signatures[0]
	return e.advance(StateStamped, StateSigned)
}

// MarkSubmitted фиксирует отправку транзакции.
func (e *Envelope) MarkSubmitted(sig solana.Signature) error {
	if err := e.advance(StateSigned, StateSubmitted); err != nil {
		return err
	}
	if !sig.IsZero() {
		e.signature = sig
	}
	return nil
}

// Resolve переводит отправленный конверт в конечное состояние.
func (e *Envelope) Resolve(final State) error {
	if !final.Terminal() {
		return blockchain.NewError(blockchain.CodeInvalidInput,
			fmt.Sprintf("%s is not a terminal state", final), nil)
	}
	return e.advance(StateSubmitted, final)
}
