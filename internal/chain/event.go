package chain

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Event is a side-channel notification emitted by a committed call.
type Event struct {
	TxID        string         `json:"tx_id"`
	Seq         int            `json:"seq"`
	Height      uint64         `json:"height"`
	Name        string         `json:"event"`
	Fields      map[string]any `json:"data"`
	Fingerprint string         `json:"fingerprint"`
}

func fingerprint(txID string, seq int, name string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d:%s", txID, seq, name)))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
