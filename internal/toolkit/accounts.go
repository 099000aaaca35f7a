// internal/toolkit/accounts.go
package toolkit

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/rpc"
)

// balanceConcurrency сколько запросов баланса GetBalances выполняет одновременно.
const balanceConcurrency = 8

func requireKey(name string, key solana.PublicKey) error {
	if key.IsZero() {
		return blockchain.NewError(blockchain.CodeInvalidInput, name+" is empty", nil)
	}
	return nil
}

// GetBalance возвращает баланс аккаунта в lamports.
func (tk *Toolkit) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	if err := requireKey("pubkey", pubkey); err != nil {
		return 0, err
	}
	commitment := tk.commitment()
	balance, err := rpc.Execute(ctx, tk.exec, "getBalance", func(ctx context.Context, t blockchain.Transport) (uint64, error) {
		return t.GetBalance(ctx, pubkey, commitment)
	})
	if err != nil {
		return 0, blockchain.WithContext(err, blockchain.CodeOperationExhausted, "failed to get balance",
			map[string]interface{}{"pubkey": pubkey.String()})
	}
	return balance, nil
}

// GetBalances параллельно запрашивает балансы нескольких аккаунтов.
// Первая ошибка отменяет оставшиеся запросы.
func (tk *Toolkit) GetBalances(ctx context.Context, pubkeys []solana.PublicKey) (map[solana.PublicKey]uint64, error) {
	for _, pk := range pubkeys {
		if err := requireKey("pubkey", pk); err != nil {
			return nil, err
		}
	}

	var (
		mu       sync.Mutex
		balances = make(map[solana.PublicKey]uint64, len(pubkeys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceConcurrency)

	for _, pk := range pubkeys {
		g.Go(func() error {
			balance, err := tk.GetBalance(gctx, pk)
			if err != nil {
				return err
			}
			mu.Lock()
			balances[pk] = balance
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return balances, nil
}

// GetAccountInfo возвращает аккаунт; отсутствующий аккаунт даёт NOT_FOUND без повторов.
func (tk *Toolkit) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*solanarpc.Account, error) {
	if err := requireKey("pubkey", pubkey); err != nil {
		return nil, err
	}
	commitment := tk.commitment()
	acc, err := rpc.Execute(ctx, tk.exec, "getAccountInfo", func(ctx context.Context, t blockchain.Transport) (*solanarpc.Account, error) {
		return t.GetAccountInfo(ctx, pubkey, commitment)
	})
	if err != nil {
		return nil, blockchain.WithContext(err, blockchain.CodeOperationExhausted, "failed to get account info",
			map[string]interface{}{"pubkey": pubkey.String()})
	}
	return acc, nil
}

// GetProgramAccounts возвращает аккаунты программы, опционально отфильтрованные по дискриминатору.
func (tk *Toolkit) GetProgramAccounts(ctx context.Context, program solana.PublicKey, discriminator []byte) (solanarpc.GetProgramAccountsResult, error) {
	if err := requireKey("program", program); err != nil {
		return nil, err
	}
	opts := &solanarpc.GetProgramAccountsOpts{
		Commitment: tk.commitment(),
		Encoding:   solana.EncodingBase64,
		Filters:    solbc.DiscriminatorFilter(discriminator),
	}
	accounts, err := rpc.Execute(ctx, tk.exec, "getProgramAccounts", func(ctx context.Context, t blockchain.Transport) (solanarpc.GetProgramAccountsResult, error) {
		return t.GetProgramAccounts(ctx, program, opts)
	})
	if err != nil {
		return nil, blockchain.WithContext(err, blockchain.CodeOperationExhausted, "failed to get program accounts",
			map[string]interface{}{"program": program.String()})
	}
	return accounts, nil
}

// GetMintInfo возвращает сведения о mint (кэшируются).
func (tk *Toolkit) GetMintInfo(ctx context.Context, mint solana.PublicKey) (*solbc.MintInfo, error) {
	if err := requireKey("mint", mint); err != nil {
		return nil, err
	}
	commitment := tk.commitment()
	info, err := rpc.Execute(ctx, tk.exec, "getMintInfo", func(ctx context.Context, t blockchain.Transport) (*solbc.MintInfo, error) {
		return tk.mints.Get(ctx, t, mint, commitment)
	})
	if err != nil {
		return nil, blockchain.WithContext(err, blockchain.CodeOperationExhausted, "failed to get mint info",
			map[string]interface{}{"mint": mint.String()})
	}
	return info, nil
}

// GetTokenBalance возвращает баланс токена mint на ассоциированном аккаунте владельца.
func (tk *Toolkit) GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (*solanarpc.UiTokenAmount, error) {
	if err := requireKey("owner", owner); err != nil {
		return nil, err
	}
	if err := requireKey("mint", mint); err != nil {
		return nil, err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to derive token account",
			map[string]interface{}{"owner": owner.String(), "mint": mint.String()})
	}

	commitment := tk.commitment()
	amount, err := rpc.Execute(ctx, tk.exec, "getTokenAccountBalance", func(ctx context.Context, t blockchain.Transport) (*solanarpc.UiTokenAmount, error) {
		return t.GetTokenAccountBalance(ctx, ata, commitment)
	})
	if err != nil {
		return nil, blockchain.WithContext(err, blockchain.CodeOperationExhausted, "failed to get token balance",
			map[string]interface{}{"owner": owner.String(), "mint": mint.String(), "token_account": ata.String()})
	}
	return amount, nil
}

// GetRentExemption возвращает минимальный баланс аккаунта размером dataSize байт.
func (tk *Toolkit) GetRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	commitment := tk.commitment()
	lamports, err := rpc.Execute(ctx, tk.exec, "getMinimumBalanceForRentExemption", func(ctx context.Context, t blockchain.Transport) (uint64, error) {
		return t.GetMinimumBalanceForRentExemption(ctx, dataSize, commitment)
	})
	if err != nil {
		return 0, blockchain.WithContext(err, blockchain.CodeOperationExhausted, "failed to get rent exemption",
			map[string]interface{}{"data_size": dataSize})
	}
	return lamports, nil
}
