package solana

import (
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
)

// PacketDataSize is the largest serialized transaction the network accepts.
const PacketDataSize = 1232

// ErrTooLarge is returned when a serialized transaction exceeds PacketDataSize.
var ErrTooLarge = errors.New("transaction exceeds packet size")

// Transaction is a legacy transaction compiled by solana-go.
type Transaction = sol.Transaction

// NewTransaction compiles instructions into an unsigned transaction paid by feePayer.
func NewTransaction(feePayer PublicKey, blockhash [32]byte, instructions ...Instruction) (*Transaction, error) {
	return sol.NewTransaction(instructions, sol.Hash(blockhash), sol.TransactionPayer(feePayer))
}

// Sign fills every required signature slot of tx. Each signer must be
// required by the message and every required slot must end up signed.
func Sign(tx *Transaction, signers ...Signer) error {
	payload, err := tx.Message.MarshalBinary()
	if err != nil {
		return err
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	sigs := make([]Signature, required)
	for _, s := range signers {
		pos := -1
		for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
			if tx.Message.AccountKeys[i].Equals(s.PublicKey()) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return fmt.Errorf("signer %s is not required by the message", s.PublicKey())
		}

		sig, err := s.Sign(payload)
		if err != nil {
			return err
		}
		sigs[pos] = sig
	}

	for i, sig := range sigs {
		if sig == (Signature{}) {
			return fmt.Errorf("missing signature for %s", tx.Message.AccountKeys[i])
		}
	}
	tx.Signatures = sigs
	return nil
}

// Serialize encodes the signed transaction and enforces PacketDataSize.
func Serialize(tx *Transaction) ([]byte, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if len(raw) > PacketDataSize {
		return raw, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(raw))
	}
	return raw, nil
}

// TransactionID returns the first signature, which identifies the transaction.
func TransactionID(tx *Transaction) Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}
