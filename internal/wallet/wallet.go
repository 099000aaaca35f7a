// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"crypto/ed25519"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

// Wallet представляет кошелёк Solana и реализует blockchain.Signer.
// Приватный ключ наружу не отдаётся.
type Wallet struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey

	mu       sync.RWMutex
	ataCache map[solana.PublicKey]solana.PublicKey // mint -> ATA
}

var _ blockchain.Signer = (*Wallet)(nil)

func fromPrivateKey(key solana.PrivateKey) (*Wallet, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, blockchain.NewError(blockchain.CodeInvalidInput,
			fmt.Sprintf("invalid private key length: expected %d bytes, got %d", ed25519.PrivateKeySize, len(key)), nil)
	}
	return &Wallet{
		privateKey: key,
		publicKey:  key.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}, nil
}

// NewWallet создаёт кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to decode private key", nil)
	}
	return fromPrivateKey(solana.PrivateKey(privateKeyBytes))
}

// FromKeygenFile загружает кошелёк из JSON-файла solana-keygen.
func FromKeygenFile(path string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to read keypair file",
			map[string]interface{}{"path": path})
	}
	return fromPrivateKey(key)
}

// FromMnemonic восстанавливает кошелёк из BIP-39 фразы: первые 32 байта seed служат ed25519-seed.
func FromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, blockchain.NewError(blockchain.CodeInvalidInput, "invalid mnemonic", nil)
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	key := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	return fromPrivateKey(solana.PrivateKey(key))
}

// NewMnemonic генерирует новую 24-словную фразу.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// NewRandom создаёт кошелёк со случайным ключом.
func NewRandom() (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return fromPrivateKey(key)
}

// PublicKey возвращает публичный ключ.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.publicKey
}

// Sign подписывает сообщение приватным ключом кошелька.
func (w *Wallet) Sign(message []byte) (solana.Signature, error) {
	return w.privateKey.Sign(message)
}

// ExportBase58 возвращает приватный ключ в base58 (для сохранения сгенерированных кошельков).
func (w *Wallet) ExportBase58() string {
	return base58.Encode(w.privateKey)
}

// GetATA возвращает адрес ассоциированного токен-аккаунта (ATA) для заданного токена (mint).
// Если адрес уже был вычислен ранее, возвращается значение из кеша.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.RLock()
	ata, ok := w.ataCache[mint]
	w.mu.RUnlock()
	if ok {
		return ata, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(w.publicKey, mint)
	if err != nil {
		return solana.PublicKey{}, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to derive ATA",
			map[string]interface{}{"mint": mint.String()})
	}

	w.mu.Lock()
	w.ataCache[mint] = ata
	w.mu.Unlock()
	return ata, nil
}

// PrecomputeATAs позволяет заранее рассчитать ATA для списка токенов.
func (w *Wallet) PrecomputeATAs(mints []solana.PublicKey) error {
	for _, mint := range mints {
		if _, err := w.GetATA(mint); err != nil {
			return fmt.Errorf("failed to precompute ATA for mint %s: %w", mint.String(), err)
		}
	}
	return nil
}

// CreateAssociatedTokenAccountIdempotentInstruction создаёт инструкцию идемпотентного создания ATA
// владельца owner для mint; если аккаунт уже есть, инструкция ничего не делает.
func CreateAssociatedTokenAccountIdempotentInstruction(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to derive ATA",
			map[string]interface{}{"owner": owner.String(), "mint": mint.String()})
	}

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // 1 = CreateIdempotent
	), nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.publicKey.String()
}
