// Package issuance turns a request to mint a new NTP1 token into a
// committed transaction: validate, describe, fund, build, re-decode and only
// then commit. Every stage returns a typed error and nothing after a failed
// stage runs.
package issuance

import (
	"errors"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/HUSKI3/Neblio-Node/internal/ntp1"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// MaxFieldLen bounds the token name and issuer, in characters.
const MaxFieldLen = 16

// Request is a user's intent to issue a token. Text fields hold what the
// user typed; surrounding whitespace is ignored.
type Request struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Issuer  string `json:"issuer"`
	Amount  string `json:"amount"`
	IconURL string `json:"icon_url,omitempty"`

	TargetAddress string `json:"target_address"`
	// ChangeAddress is only consulted when UseChangeAddress is set.
	ChangeAddress    string `json:"change_address,omitempty"`
	UseChangeAddress bool   `json:"use_change_address,omitempty"`
}

// parsed is a request that passed validation.
type parsed struct {
	symbol, name, issuer, icon string
	amount                     *big.Int
	target                     types.Address
	change                     *types.Address
}

// Validate checks req in a fixed order and reports the first failure.
// It has no side effects.
func Validate(req Request) error {
	_, err := parse(req)
	return err
}

func parse(req Request) (*parsed, error) {
	p := &parsed{
		symbol: strings.TrimSpace(req.Symbol),
		name:   strings.TrimSpace(req.Name),
		issuer: strings.TrimSpace(req.Issuer),
		icon:   strings.TrimSpace(req.IconURL),
	}

	if req.UseChangeAddress {
		addr, err := types.ParseAddress(strings.TrimSpace(req.ChangeAddress))
		if err != nil {
			return nil, invalid(InvalidChangeAddress, "Invalid change address provided")
		}
		p.change = &addr
	}
	target, err := types.ParseAddress(strings.TrimSpace(req.TargetAddress))
	if err != nil {
		return nil, invalid(InvalidTargetAddress, "Invalid target address provided")
	}
	p.target = target

	if p.symbol == "" {
		return nil, invalid(EmptySymbol, "Token symbol cannot be empty")
	}
	if len(p.symbol) > ntp1.MaxSymbolLen {
		return nil, invalid(SymbolTooLong, "Token symbol cannot be longer than %d bytes", ntp1.MaxSymbolLen)
	}
	if err := checkField(InvalidName, "name", p.name); err != nil {
		return nil, err
	}
	if err := checkField(InvalidIssuer, "issuer", p.issuer); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Amount)
	if text == "" {
		return nil, invalid(InvalidAmount, "Token amount cannot be empty")
	}
	amount, err := ntp1.ParseAmount(text)
	switch {
	case errors.Is(err, ntp1.ErrAmountTooLarge):
		return nil, invalid(AmountTooLarge, "Token amount to issue is larger than the maximum possible (%s)", ntp1.MaxAmount())
	case errors.Is(err, ntp1.ErrAmountNegative):
		return nil, invalid(InvalidAmount, "Token amount cannot be zero/negative")
	case err != nil:
		return nil, invalid(InvalidAmount, "Token amount %q is not a whole number", text)
	}
	p.amount = amount
	return p, nil
}

func checkField(kind ValidationKind, label, v string) error {
	if v == "" {
		return invalid(kind, "Token %s cannot be empty", label)
	}
	if utf8.RuneCountInString(v) > MaxFieldLen {
		return invalid(kind, "Token %s cannot be longer than %d characters", label, MaxFieldLen)
	}
	return nil
}
