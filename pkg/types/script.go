package types

import (
	"encoding/hex"
	"encoding/json"
)

// ScriptType identifies how an output is locked.
type ScriptType uint8

const (
	ScriptTypeP2PKH ScriptType = 0x01 // Pay to public key hash (data = 20-byte address)
	ScriptTypeNTP1  ScriptType = 0x6a // NTP1 data carrier, unspendable (data = protocol payload)
)

// String returns a human-readable name for the script type.
func (st ScriptType) String() string {
	switch st {
	case ScriptTypeP2PKH:
		return "P2PKH"
	case ScriptTypeNTP1:
		return "NTP1"
	default:
		return "Unknown"
	}
}

// Script is the locking condition of an output.
type Script struct {
	Type ScriptType `json:"type"`
	Data []byte     `json:"data"`
}

// PayToAddress returns the P2PKH script for addr.
func PayToAddress(addr Address) Script {
	return Script{Type: ScriptTypeP2PKH, Data: addr.Bytes()}
}

// Address returns the destination of a P2PKH script.
func (s Script) Address() (Address, bool) {
	if s.Type != ScriptTypeP2PKH || len(s.Data) != AddressSize {
		return Address{}, false
	}
	var a Address
	copy(a[:], s.Data)
	return a, true
}

// IsSpendable reports whether an output locked by s can ever be spent.
func (s Script) IsSpendable() bool {
	return s.Type != ScriptTypeNTP1
}

type scriptJSON struct {
	Type ScriptType `json:"type"`
	Data string     `json:"data"`
}

// MarshalJSON encodes the script with hex data.
func (s Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptJSON{
		Type: s.Type,
		Data: hex.EncodeToString(s.Data),
	})
}

func (s *Script) UnmarshalJSON(data []byte) error {
	var j scriptJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.Type = j.Type
	s.Data = nil
	if j.Data != "" {
		b, err := hex.DecodeString(j.Data)
		if err != nil {
			return err
		}
		s.Data = b
	}
	return nil
}
