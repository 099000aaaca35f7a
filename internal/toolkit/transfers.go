// internal/toolkit/transfers.go
package toolkit

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/solana-toolkit/internal/wallet"
)

// ProgramCall вызов произвольной инструкции программы.
type ProgramCall struct {
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	Data      []byte
	Signers   []blockchain.Signer
	Budget    *transaction.Budget
}

func requireSigner(s blockchain.Signer) error {
	if s == nil {
		return blockchain.NewError(blockchain.CodeInvalidInput, "signer is nil", nil)
	}
	return requireKey("signer", s.PublicKey())
}

func requireAmount(amount uint64) error {
	if amount == 0 {
		return blockchain.NewError(blockchain.CodeInvalidInput, "amount must be positive", nil)
	}
	return nil
}

func isMainnet(ep rpc.Endpoint) bool {
	return ep.Network == "mainnet-beta" || ep.URL == solanarpc.MainNetBeta_RPC
}

// RequestAirdrop запрашивает lamports у faucet и ждёт подтверждения. В mainnet-beta недоступно.
func (tk *Toolkit) RequestAirdrop(ctx context.Context, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if err := requireKey("recipient", to); err != nil {
		return solana.Signature{}, err
	}
	if err := requireAmount(lamports); err != nil {
		return solana.Signature{}, err
	}
	if ep := tk.conn.Endpoint(); isMainnet(ep) {
		return solana.Signature{}, blockchain.NewError(blockchain.CodeInvalidNetwork, "airdrop is not available on mainnet-beta",
			map[string]interface{}{"endpoint": ep.URL})
	}

	commitment := tk.commitment()
	sig, err := rpc.Execute(ctx, tk.exec, "requestAirdrop", func(ctx context.Context, t blockchain.Transport) (solana.Signature, error) {
		return t.RequestAirdrop(ctx, to, lamports, commitment)
	})
	if err != nil {
		return solana.Signature{}, blockchain.WithContext(err, blockchain.CodeOperationExhausted, "airdrop request failed",
			map[string]interface{}{"recipient": to.String(), "lamports": lamports})
	}

	if _, err := tk.tx.Confirm(ctx, sig); err != nil {
		return sig, err
	}
	tk.logger.Info("Airdrop confirmed",
		zap.String("recipient", to.String()),
		zap.Uint64("lamports", lamports),
		zap.String("signature", sig.String()))
	return sig, nil
}

// Transfer переводит lamports системной программой.
func (tk *Toolkit) Transfer(ctx context.Context, from blockchain.Signer, to solana.PublicKey, lamports uint64) (*transaction.Result, error) {
	if err := requireSigner(from); err != nil {
		return nil, err
	}
	if err := requireKey("recipient", to); err != nil {
		return nil, err
	}
	if err := requireAmount(lamports); err != nil {
		return nil, err
	}

	inst := system.NewTransferInstruction(lamports, from.PublicKey(), to).Build()
	return tk.tx.SendAndConfirm(ctx, transaction.Request{
		Instructions: []solana.Instruction{inst},
		Signers:      []blockchain.Signer{from},
	})
}

// TransferToken переводит amount базовых единиц токена mint на ассоциированный аккаунт получателя,
// при необходимости создавая его.
func (tk *Toolkit) TransferToken(ctx context.Context, from blockchain.Signer, mint, to solana.PublicKey, amount uint64) (*transaction.Result, error) {
	if err := requireSigner(from); err != nil {
		return nil, err
	}
	if err := requireKey("mint", mint); err != nil {
		return nil, err
	}
	if err := requireKey("recipient", to); err != nil {
		return nil, err
	}
	if err := requireAmount(amount); err != nil {
		return nil, err
	}

	info, err := tk.GetMintInfo(ctx, mint)
	if err != nil {
		return nil, err
	}

	owner := from.PublicKey()
	source, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to derive source token account", nil)
	}
	destination, _, err := solana.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return nil, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to derive destination token account", nil)
	}

	createATA, err := wallet.CreateAssociatedTokenAccountIdempotentInstruction(owner, to, mint)
	if err != nil {
		return nil, err
	}
	transfer := token.NewTransferCheckedInstruction(
		amount,
		info.Decimals,
		source,
		mint,
		destination,
		owner,
		[]solana.PublicKey{},
	).Build()

	return tk.tx.SendAndConfirm(ctx, transaction.Request{
		Instructions: []solana.Instruction{createATA, transfer},
		Signers:      []blockchain.Signer{from},
	})
}

// CallProgram отправляет одну произвольную инструкцию программы.
func (tk *Toolkit) CallProgram(ctx context.Context, call ProgramCall) (*transaction.Result, error) {
	if err := requireKey("program", call.ProgramID); err != nil {
		return nil, err
	}
	return tk.tx.SendAndConfirm(ctx, transaction.Request{
		Instructions: []solana.Instruction{solana.NewInstruction(call.ProgramID, call.Accounts, call.Data)},
		Signers:      call.Signers,
		Budget:       call.Budget,
	})
}

// SendTransaction отправляет и подтверждает произвольный набор инструкций.
func (tk *Toolkit) SendTransaction(ctx context.Context, req transaction.Request) (*transaction.Result, error) {
	return tk.tx.SendAndConfirm(ctx, req)
}

// Simulate симулирует транзакцию без отправки.
func (tk *Toolkit) Simulate(ctx context.Context, req transaction.Request) (*blockchain.SimulationResult, error) {
	return tk.tx.Simulate(ctx, req)
}
