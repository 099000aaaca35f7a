// internal/blockchain/solbc/mint_cache.go
package solbc

import (
	"context"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

const mintInfoTTL = 5 * time.Minute

// MintInfo хранит сведения о mint-аккаунте токена.
type MintInfo struct {
	Mint      solana.PublicKey
	Decimals  uint8
	Supply    uint64
	UpdatedAt time.Time
}

// MintCache кэширует сведения о mint-аккаунтах с ограниченным сроком жизни.
type MintCache struct {
	cache  sync.Map
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewMintCache создаёт кэш. ttl <= 0 означает значение по умолчанию.
func NewMintCache(ttl time.Duration, logger *zap.Logger) *MintCache {
	if ttl <= 0 {
		ttl = mintInfoTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MintCache{
		ttl:    ttl,
		logger: logger.Named("mint-cache"),
		now:    time.Now,
	}
}

// Get возвращает сведения о mint, читая аккаунт через reader только при промахе кэша.
func (c *MintCache) Get(ctx context.Context, reader blockchain.AccountReader, mint solana.PublicKey, commitment solanarpc.CommitmentType) (*MintInfo, error) {
	if info, ok := c.lookup(mint); ok {
		return info, nil
	}

	acc, err := reader.GetAccountInfo(ctx, mint, commitment)
	if err != nil {
		return nil, err
	}
	info, err := DecodeMint(mint, acc)
	if err != nil {
		return nil, err
	}
	info.UpdatedAt = c.now()
	c.cache.Store(mint, info)

	c.logger.Debug("Mint info cached",
		zap.String("mint", mint.String()),
		zap.Uint8("decimals", info.Decimals))
	return info, nil
}

// Forget удаляет mint из кэша.
func (c *MintCache) Forget(mint solana.PublicKey) {
	c.cache.Delete(mint)
}

func (c *MintCache) lookup(mint solana.PublicKey) (*MintInfo, bool) {
	value, ok := c.cache.Load(mint)
	if !ok {
		return nil, false
	}
	info := value.(*MintInfo)
	if c.now().Sub(info.UpdatedAt) >= c.ttl {
		c.cache.Delete(mint)
		return nil, false
	}
	return info, true
}

// DecodeMint разбирает данные mint-аккаунта SPL Token.
func DecodeMint(mint solana.PublicKey, acc *solanarpc.Account) (*MintInfo, error) {
	if acc == nil || acc.Data == nil {
		return nil, blockchain.NewError(blockchain.CodeNotFound, "mint account not found",
			map[string]interface{}{"mint": mint.String()})
	}
	if !acc.Owner.Equals(solana.TokenProgramID) && !acc.Owner.Equals(solana.Token2022ProgramID) {
		return nil, blockchain.NewError(blockchain.CodeInvalidInput, "account is not a token mint",
			map[string]interface{}{"mint": mint.String(), "owner": acc.Owner.String()})
	}

	var m token.Mint
	if err := bin.NewBinDecoder(acc.Data.GetBinary()).Decode(&m); err != nil {
		return nil, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to decode mint account",
			map[string]interface{}{"mint": mint.String()})
	}
	return &MintInfo{
		Mint:     mint,
		Decimals: m.Decimals,
		Supply:   m.Supply,
	}, nil
}
