// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain/solbc/rpc"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc      *solanarpc.Client
	endpoint string
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// Option настраивает Client.
type Option func(*Client)

// WithRateLimit ограничивает частоту запросов клиента. rps <= 0 отключает лимит.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(endpoint string, logger *zap.Logger, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, blockchain.WrapError(err, blockchain.CodeConnectionInit, "invalid RPC endpoint",
			map[string]interface{}{"endpoint": endpoint})
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		rpc:      solanarpc.New(endpoint),
		endpoint: endpoint,
		logger:   logger.Named("solbc-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewTransportFactory возвращает фабрику транспортов для rpc.Connection.
func NewTransportFactory(logger *zap.Logger, opts ...Option) rpc.TransportFactory {
	return func(ep rpc.Endpoint) (blockchain.Transport, error) {
		return NewClient(ep.URL, logger, opts...)
	}
}

// Endpoint возвращает URL узла.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) wait(ctx context.Context, method string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return rpc.NewError(err, c.endpoint, method)
	}
	return nil
}

func (c *Client) fail(method string, err error, fields ...zap.Field) error {
	c.logger.Debug(method+" error", append(fields, zap.Error(err))...)
	return rpc.NewError(err, c.endpoint, method)
}

func (c *Client) notFound(method string, pubkey solana.PublicKey, err error) error {
	return blockchain.WrapError(err, blockchain.CodeNotFound, "account not found", map[string]interface{}{
		"method":   method,
		"pubkey":   pubkey.String(),
		"endpoint": c.endpoint,
	})
}

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, solanarpc.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not find account") || strings.Contains(msg, "account not found")
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment solanarpc.CommitmentType) (uint64, error) {
	if err := c.wait(ctx, "getBalance"); err != nil {
		return 0, err
	}
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		return 0, c.fail("getBalance", err, zap.String("pubkey", pubkey.String()))
	}
	return result.Value, nil
}

// GetAccountInfo получает информацию об аккаунте.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.Account, error) {
	if err := c.wait(ctx, "getAccountInfo"); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &solanarpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: commitment,
	})
	if err != nil {
		if IsAccountNotFoundError(err) {
			return nil, c.notFound("getAccountInfo", pubkey, err)
		}
		return nil, c.fail("getAccountInfo", err, zap.String("pubkey", pubkey.String()))
	}
	if result == nil || result.Value == nil {
		return nil, c.notFound("getAccountInfo", pubkey, nil)
	}
	return result.Value, nil
}

// GetMultipleAccounts получает информацию о нескольких аккаунтах за один запрос.
// Отсутствующие аккаунты возвращаются как nil на своих позициях.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey, commitment solanarpc.CommitmentType) ([]*solanarpc.Account, error) {
	if len(pubkeys) == 0 {
		return nil, nil
	}
	if err := c.wait(ctx, "getMultipleAccounts"); err != nil {
		return nil, err
	}
	res, err := c.rpc.GetMultipleAccountsWithOpts(ctx, pubkeys, &solanarpc.GetMultipleAccountsOpts{
		Commitment: commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		return nil, c.fail("getMultipleAccounts", err, zap.Int("count", len(pubkeys)))
	}
	return res.Value, nil
}

// GetProgramAccounts получает все аккаунты программы с опциями фильтрации
func (c *Client) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
	if err := c.wait(ctx, "getProgramAccounts"); err != nil {
		return nil, err
	}
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, opts)
	if err != nil {
		return nil, c.fail("getProgramAccounts", err, zap.String("program_id", programID.String()))
	}
	return accounts, nil
}

// GetTokenAccountBalance получает баланс токенного аккаунта
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.UiTokenAmount, error) {
	if err := c.wait(ctx, "getTokenAccountBalance"); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, commitment)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return nil, c.notFound("getTokenAccountBalance", account, err)
		}
		return nil, c.fail("getTokenAccountBalance", err, zap.String("account", account.String()))
	}
	if result == nil || result.Value == nil {
		return nil, c.notFound("getTokenAccountBalance", account, nil)
	}
	return result.Value, nil
}

// GetLatestBlockhash получает последний blockhash вместе с высотой истечения.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*blockchain.Blockhash, error) {
	if err := c.wait(ctx, "getLatestBlockhash"); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetLatestBlockhash(ctx, commitment)
	if err != nil {
		return nil, c.fail("getLatestBlockhash", err)
	}
	if result == nil || result.Value == nil {
		return nil, c.fail("getLatestBlockhash", errors.New("empty blockhash response"))
	}
	return &blockchain.Blockhash{
		Hash:                 result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetMinimumBalanceForRentExemption возвращает минимальный баланс для освобождения от ренты.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment solanarpc.CommitmentType) (uint64, error) {
	if err := c.wait(ctx, "getMinimumBalanceForRentExemption"); err != nil {
		return 0, err
	}
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, commitment)
	if err != nil {
		return 0, c.fail("getMinimumBalanceForRentExemption", err, zap.Uint64("data_size", dataSize))
	}
	return lamports, nil
}

// RequestAirdrop запрашивает lamports у faucet (devnet/testnet/localnet).
func (c *Client) RequestAirdrop(ctx context.Context, pubkey solana.PublicKey, lamports uint64, commitment solanarpc.CommitmentType) (solana.Signature, error) {
	if err := c.wait(ctx, "requestAirdrop"); err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.rpc.RequestAirdrop(ctx, pubkey, lamports, commitment)
	if err != nil {
		return solana.Signature{}, c.fail("requestAirdrop", err, zap.String("pubkey", pubkey.String()))
	}
	return sig, nil
}

// SendTransaction отправляет транзакцию с заданными опциями.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	if err := c.wait(ctx, "sendTransaction"); err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		return solana.Signature{}, c.fail("sendTransaction", err)
	}
	return sig, nil
}

// SimulateTransaction симулирует транзакцию и возвращает результат симуляции.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction, commitment solanarpc.CommitmentType) (*blockchain.SimulationResult, error) {
	if err := c.wait(ctx, "simulateTransaction"); err != nil {
		return nil, err
	}
	result, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &solanarpc.SimulateTransactionOpts{
		Commitment: commitment,
	})
	if err != nil {
		return nil, c.fail("simulateTransaction", err)
	}
	if result == nil || result.Value == nil {
		return nil, c.fail("simulateTransaction", errors.New("empty simulation response"))
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// GetSignatureStatus получает статус одной транзакции; nil, если узел её не знает.
func (c *Client) GetSignatureStatus(ctx context.Context, signature solana.Signature) (*blockchain.SignatureStatus, error) {
	if err := c.wait(ctx, "getSignatureStatuses"); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetSignatureStatuses(ctx, true, signature)
	if err != nil {
		return nil, c.fail("getSignatureStatuses", err, zap.String("signature", signature.String()))
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}
	status := result.Value[0]
	return &blockchain.SignatureStatus{
		Slot:               status.Slot,
		Confirmations:      status.Confirmations,
		Err:                status.Err,
		ConfirmationStatus: status.ConfirmationStatus,
	}, nil
}

// GetBlockHeight лёгкий запрос текущей высоты, используется как probe.
func (c *Client) GetBlockHeight(ctx context.Context, commitment solanarpc.CommitmentType) (uint64, error) {
	if err := c.wait(ctx, "getBlockHeight"); err != nil {
		return 0, err
	}
	height, err := c.rpc.GetBlockHeight(ctx, commitment)
	if err != nil {
		return 0, c.fail("getBlockHeight", err)
	}
	return height, nil
}

// Close закрывает HTTP-клиент.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Гарантируем, что Client реализует интерфейс blockchain.Transport.
var _ blockchain.Transport = (*Client)(nil)
