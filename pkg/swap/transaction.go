package swap

import (
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// TxKind is the wire format of a transaction payload
type TxKind int

const (
	Legacy TxKind = iota
	Versioned
)

func (k TxKind) String() string {
	if k == Versioned {
		return "versioned"
	}
	return "legacy"
}

// versionPrefixMask marks a versioned message; legacy messages start with
// the required-signature count, which never has the high bit set
const versionPrefixMask = 0x80

const signatureLength = 64

// DecodedTransaction is a transaction payload tagged with the format it was decoded from
type DecodedTransaction struct {
	Kind TxKind
	Tx   *solana.Transaction
}

// DecodeTransaction decodes a base64 transaction payload as either variant
func DecodeTransaction(payload string) (*DecodedTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 transaction: %w", err)
	}
	return DecodeTransactionBytes(raw)
}

// DecodeTransactionBytes inspects the message prefix to pick the variant, then decodes it
func DecodeTransactionBytes(raw []byte) (*DecodedTransaction, error) {
	kind, err := detectKind(raw)
	if err != nil {
		return nil, err
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s transaction: %w", kind, err)
	}
	if tx.Message.IsVersioned() != (kind == Versioned) {
		return nil, fmt.Errorf("transaction decoded with unexpected format, want %s", kind)
	}
	return &DecodedTransaction{Kind: kind, Tx: tx}, nil
}

// Serialize encodes the (signed) transaction in its original format
func (d *DecodedTransaction) Serialize() ([]byte, error) {
	if d == nil || d.Tx == nil {
		return nil, errors.New("no transaction")
	}
	raw, err := d.Tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s transaction: %w", d.Kind, err)
	}
	return raw, nil
}

func detectKind(raw []byte) (TxKind, error) {
	numSigs, n, err := readCompactU16(raw)
	if err != nil {
		return Legacy, fmt.Errorf("invalid signature count: %w", err)
	}
	offset := n + numSigs*signatureLength
	if offset >= len(raw) {
		return Legacy, fmt.Errorf("transaction truncated: %d bytes", len(raw))
	}
	if raw[offset]&versionPrefixMask != 0 {
		return Versioned, nil
	}
	return Legacy, nil
}

// readCompactU16 reads a shortvec length prefix
func readCompactU16(b []byte) (int, int, error) {
	val := 0
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, errors.New("unexpected end of data")
		}
		elem := int(b[i])
		val |= (elem & 0x7f) << (7 * i)
		if elem&0x80 == 0 {
			return val, i + 1, nil
		}
	}
	return 0, 0, errors.New("compact-u16 overflow")
}
