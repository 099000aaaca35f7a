// ==================================
// File: internal/wallet/loader.go
// ==================================
package wallet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

// Entry описание одного кошелька в YAML-файле. Должен быть задан ровно один источник ключа.
type Entry struct {
	Name        string `yaml:"name"`
	PrivateKey  string `yaml:"private_key,omitempty"`
	KeypairFile string `yaml:"keypair_file,omitempty"`
	Mnemonic    string `yaml:"mnemonic,omitempty"`
	Passphrase  string `yaml:"passphrase,omitempty"`
}

type walletFile struct {
	Wallets []Entry `yaml:"wallets"`
}

// Open создаёт кошелёк по описанию.
func (e Entry) Open() (*Wallet, error) {
	sources := 0
	for _, s := range []string{e.PrivateKey, e.KeypairFile, e.Mnemonic} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, blockchain.NewError(blockchain.CodeInvalidInput,
			"wallet entry must set exactly one of private_key, keypair_file, mnemonic",
			map[string]interface{}{"name": e.Name})
	}

	switch {
	case e.PrivateKey != "":
		return NewWallet(e.PrivateKey)
	case e.KeypairFile != "":
		return FromKeygenFile(expandHome(e.KeypairFile))
	default:
		return FromMnemonic(e.Mnemonic, e.Passphrase)
	}
}

// LoadWallets загружает кошельки из YAML-файла вида:
//
//	wallets:
//	  - name: main
//	    private_key: <base58>
//	  - name: cold
//	    keypair_file: ~/.config/solana/id.json
func LoadWallets(path string) (map[string]*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallets file: %w", err)
	}

	var file walletFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, blockchain.WrapError(err, blockchain.CodeInvalidInput, "failed to parse wallets file",
			map[string]interface{}{"path": path})
	}
	if len(file.Wallets) == 0 {
		return nil, blockchain.NewError(blockchain.CodeInvalidInput, "wallets file is empty",
			map[string]interface{}{"path": path})
	}

	wallets := make(map[string]*Wallet, len(file.Wallets))
	for i, entry := range file.Wallets {
		if entry.Name == "" {
			return nil, blockchain.NewError(blockchain.CodeInvalidInput, "wallet entry has no name",
				map[string]interface{}{"index": i})
		}
		if _, dup := wallets[entry.Name]; dup {
			return nil, blockchain.NewError(blockchain.CodeInvalidInput, "duplicate wallet name",
				map[string]interface{}{"name": entry.Name})
		}
		w, err := entry.Open()
		if err != nil {
			return nil, blockchain.WithContext(err, blockchain.CodeInvalidInput, "failed to load wallet",
				map[string]interface{}{"name": entry.Name})
		}
		wallets[entry.Name] = w
	}
	return wallets, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
