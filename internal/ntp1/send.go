package ntp1

import (
	"fmt"
	"math/big"

	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// IssueData describes the token created by an issuance transaction.
type IssueData struct {
	Symbol   string
	Amount   *big.Int
	Metadata []byte // JSON document
}

// Recipient is one output of a send request. With ToIssue set it receives
// Amount of the token being issued; otherwise it is a plain coin payment
// of Value.
type Recipient struct {
	Address types.Address
	Value   uint64
	ToIssue bool
	Amount  *big.Int
}

// IsToken reports whether r carries tokens.
func (r Recipient) IsToken() bool {
	return r.ToIssue
}

// SendRequest is what the wallet's transaction constructor consumes.
type SendRequest struct {
	// Inputs restricts funding to these outpoints. Empty lets the wallet
	// choose among its token-free UTXOs.
	Inputs     []types.Outpoint
	Recipients []Recipient
	Issue      *IssueData
	// ChangeTo receives the change. Nil lets the wallet use a fresh
	// change address.
	ChangeTo *types.Address
}

// Payload builds the NTP1 payload for req given the index each recipient
// will occupy in the final output list.
func (req *SendRequest) Payload(outputIndex []int) (*Payload, error) {
	if len(outputIndex) != len(req.Recipients) {
		return nil, fmt.Errorf("have %d output indexes for %d recipients", len(outputIndex), len(req.Recipients))
	}
	p := &Payload{Op: OpTransfer}
	if req.Issue != nil {
		p.Op = OpIssuance
		p.Symbol = req.Issue.Symbol
		p.Amount = req.Issue.Amount
		p.Metadata = req.Issue.Metadata
	}
	for i, r := range req.Recipients {
		if !r.IsToken() {
			continue
		}
		if req.Issue == nil {
			return nil, fmt.Errorf("recipient %d: issued tokens without an issuance", i)
		}
		p.Instructions = append(p.Instructions, Instruction{
			Output: uint32(outputIndex[i]),
			Amount: r.Amount,
		})
	}
	return p, nil
}

// HasTokenRecipients reports whether req needs an NTP1 data output.
func (req *SendRequest) HasTokenRecipients() bool {
	if req.Issue != nil {
		return true
	}
	for _, r := range req.Recipients {
		if r.IsToken() {
			return true
		}
	}
	return false
}
