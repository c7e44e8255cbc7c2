package ntp1

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/klauspost/compress/zlib"
)

// MaxMetadataSize bounds the decompressed metadata of an issuance.
const MaxMetadataSize = 32 * 1024

// Payload errors.
var (
	ErrNotNTP1          = errors.New("not an NTP1 payload")
	ErrUnknownVersion   = errors.New("unsupported NTP1 version")
	ErrUnknownOp        = errors.New("unknown NTP1 operation")
	ErrTruncated        = errors.New("truncated NTP1 payload")
	ErrTrailingData     = errors.New("trailing bytes after NTP1 payload")
	ErrBadSymbol        = errors.New("invalid token symbol")
	ErrMetadataTooLarge = errors.New("token metadata too large")
)

// Instruction moves Amount tokens from the head of the token queue to
// output Output.
type Instruction struct {
	Output uint32
	Amount *big.Int
}

// Payload is the content of an NTP1 data output.
type Payload struct {
	Op           byte
	Symbol       string   // issuance only
	Amount       *big.Int // issuance only
	Flags        byte     // issuance only
	Metadata     []byte   // issuance only, uncompressed JSON
	Instructions []Instruction
}

// Encode serializes p:
//
//	"NP" | version | op | [issuance header] | count(uvarint) | instructions
//
// The issuance header is symbol(len8) | amount(len8 BE) | flags | metadata(uvarint len, zlib).
func (p *Payload) Encode() ([]byte, error) {
	buf := []byte{magic[0], magic[1], ProtocolVersion, p.Op}

	switch p.Op {
	case OpIssuance:
		if len(p.Symbol) == 0 || len(p.Symbol) > MaxSymbolLen {
			return nil, fmt.Errorf("%w: %q", ErrBadSymbol, p.Symbol)
		}
		buf = append(buf, byte(len(p.Symbol)))
		buf = append(buf, p.Symbol...)
		var err error
		if buf, err = appendAmount(buf, p.Amount); err != nil {
			return nil, fmt.Errorf("issued amount: %w", err)
		}
		buf = append(buf, p.Flags)
		meta, err := compress(p.Metadata)
		if err != nil {
			return nil, err
		}
		buf = binary.AppendUvarint(buf, uint64(len(meta)))
		buf = append(buf, meta...)
	case OpTransfer:
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownOp, p.Op)
	}

	buf = binary.AppendUvarint(buf, uint64(len(p.Instructions)))
	for i, in := range p.Instructions {
		buf = binary.AppendUvarint(buf, uint64(in.Output))
		var err error
		if buf, err = appendAmount(buf, in.Amount); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return buf, nil
}

// IsPayload reports whether data starts with the NTP1 magic.
func IsPayload(data []byte) bool {
	return len(data) >= 2 && data[0] == magic[0] && data[1] == magic[1]
}

// ParsePayload decodes an NTP1 data output.
func ParsePayload(data []byte) (*Payload, error) {
	if !IsPayload(data) {
		return nil, ErrNotNTP1
	}
	r := &reader{buf: data[2:]}
	version, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if version != ProtocolVersion {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownVersion, version)
	}
	p := &Payload{}
	if p.Op, err = r.readByte(); err != nil {
		return nil, err
	}

	switch p.Op {
	case OpIssuance:
		n, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if n == 0 || int(n) > MaxSymbolLen {
			return nil, fmt.Errorf("%w: length %d", ErrBadSymbol, n)
		}
		sym, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		p.Symbol = string(sym)
		if p.Amount, err = r.amount(); err != nil {
			return nil, fmt.Errorf("issued amount: %w", err)
		}
		if p.Flags, err = r.readByte(); err != nil {
			return nil, err
		}
		mlen, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if mlen > MaxMetadataSize {
			return nil, ErrMetadataTooLarge
		}
		compressed, err := r.take(int(mlen))
		if err != nil {
			return nil, err
		}
		if p.Metadata, err = decompress(compressed); err != nil {
			return nil, err
		}
	case OpTransfer:
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownOp, p.Op)
	}

	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	// Each instruction takes at least three bytes.
	if count > uint64(len(r.buf))/3 {
		return nil, ErrTruncated
	}
	p.Instructions = make([]Instruction, 0, count)
	for i := uint64(0); i < count; i++ {
		out, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if out > uint64(^uint32(0)) {
			return nil, fmt.Errorf("instruction %d: output index %d out of range", i, out)
		}
		amt, err := r.amount()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		p.Instructions = append(p.Instructions, Instruction{Output: uint32(out), Amount: amt})
	}
	if len(r.buf) != 0 {
		return nil, ErrTrailingData
	}
	return p, nil
}

func compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) > MaxMetadataSize {
		return nil, ErrMetadataTooLarge
	}
	var b bytes.Buffer
	w, err := zlib.NewWriterLevel(&b, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress metadata: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress metadata: %w", err)
	}
	return b.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress metadata: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, MaxMetadataSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress metadata: %w", err)
	}
	if len(out) > MaxMetadataSize {
		return nil, ErrMetadataTooLarge
	}
	return out, nil
}

type reader struct {
	buf []byte
}

func (r *reader) readByte() (byte, error) {
	if len(r.buf) < 1 {
		return 0, ErrTruncated
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || len(r.buf) < n {
		return nil, ErrTruncated
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b, nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		return 0, ErrTruncated
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *reader) amount() (*big.Int, error) {
	n, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrAmountNegative
	}
	if n > MaxAmountBytes {
		return nil, ErrAmountTooLarge
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	v := new(big.Int).SetBytes(b)
	if v.Sign() == 0 {
		return nil, ErrAmountNegative
	}
	return v, nil
}
