// internal/blockchain/solbc/discriminator.go
package solbc

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// DiscriminatorSize длина Anchor-дискриминатора.
const DiscriminatorSize = 8

// InstructionDiscriminator вычисляет дискриминатор инструкции Anchor: sha256("global:<name>")[:8].
func InstructionDiscriminator(name string) []byte {
	return anchorHash("global:" + name)
}

// AccountDiscriminator вычисляет дискриминатор аккаунта Anchor: sha256("account:<Name>")[:8].
func AccountDiscriminator(name string) []byte {
	return anchorHash("account:" + name)
}

func anchorHash(preimage string) []byte {
	hash := sha256.Sum256([]byte(preimage))
	out := make([]byte, DiscriminatorSize)
	copy(out, hash[:DiscriminatorSize])
	return out
}

// DiscriminatorFilter фильтр getProgramAccounts по первым байтам данных аккаунта.
// Пустой дискриминатор означает отсутствие фильтра.
func DiscriminatorFilter(discriminator []byte) []solanarpc.RPCFilter {
	if len(discriminator) == 0 {
		return nil
	}
	return []solanarpc.RPCFilter{
		{Memcmp: &solanarpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(discriminator)}},
	}
}
