package swap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Signer is the wallet capability the executor needs
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// KeypairSigner signs with a local private key
type KeypairSigner struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// NewKeypairSigner wraps a private key
func NewKeypairSigner(privateKey solana.PrivateKey) (*KeypairSigner, error) {
	if len(privateKey) != 64 {
		return nil, fmt.Errorf("invalid private key length %d", len(privateKey))
	}
	return &KeypairSigner{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

// LoadKeypairSigner reads a base58 private key, or a solana-keygen JSON file when the key is empty
func LoadKeypairSigner(base58Key, keypairPath string) (*KeypairSigner, error) {
	var (
		privateKey solana.PrivateKey
		err        error
	)
	switch {
	case strings.TrimSpace(base58Key) != "":
		privateKey, err = solana.PrivateKeyFromBase58(strings.TrimSpace(base58Key))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
	case keypairPath != "":
		privateKey, err = solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read keypair file: %w", err)
		}
	default:
		return nil, errors.New("no signing key configured. Set SOL_SWAP_PRIVATE_KEY or SOL_SWAP_KEYPAIR_PATH")
	}
	return NewKeypairSigner(privateKey)
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.publicKey
}

// SignTransaction fills this key's signature slot. Other required signatures are left as they are.
func (s *KeypairSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messageContent, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("unable to encode message for signing: %w", err)
	}

	numSigners := int(tx.Message.Header.NumRequiredSignatures)
	if numSigners > len(tx.Message.AccountKeys) {
		return nil, fmt.Errorf("message requires %d signers but has %d accounts", numSigners, len(tx.Message.AccountKeys))
	}
	if len(tx.Signatures) != numSigners {
		tx.Signatures = make([]solana.Signature, numSigners)
	}

	signed := false
	for i, key := range tx.Message.AccountKeys[:numSigners] {
		if !key.Equals(s.publicKey) {
			continue
		}
		sig, err := s.privateKey.Sign(messageContent)
		if err != nil {
			return nil, fmt.Errorf("failed to sign transaction: %w", err)
		}
		tx.Signatures[i] = sig
		signed = true
	}
	if !signed {
		return nil, fmt.Errorf("signer %s is not a required signer of this transaction", s.publicKey)
	}
	return tx, nil
}
