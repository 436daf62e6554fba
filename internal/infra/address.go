package infra

import (
	"bytes"
	"crypto/sha256"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

const (
	NetworkBEP20 = "BEP20"
	NetworkERC20 = "ERC20"
	NetworkTRC20 = "TRC20"
	NetworkBTC   = "BTC"

	tronAddressPrefix = 0x41
	btcP2PKHVersion   = 0x00
	btcP2SHVersion    = 0x05
	base58CheckLength = 25

	btcBech32HRP      = "bc"
	bech32Charset     = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	bech32Const       = 1
	bech32mConst      = 0x2bc830a3
	bech32ChecksumLen = 6
)

// Legacy base58 bitcoin addresses plus bech32 segwit.
var (
	btcLegacyPattern = regexp.MustCompile(`^[13][a-km-zA-HJ-NP-Z1-9]{25,34}$`)
	btcBech32Pattern = regexp.MustCompile(`^bc1[ac-hj-np-z02-9]{11,71}$`)
)

// AddressValidator checks wallet addresses per network
type AddressValidator struct{}

// NewAddressValidator creates a validator for BEP20, ERC20, TRC20 and BTC
func NewAddressValidator() *AddressValidator {
	return &AddressValidator{}
}

// IsValid reports whether address is well formed for network.
// Unknown networks are rejected.
func (v *AddressValidator) IsValid(address, network string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}

	switch strings.ToUpper(strings.TrimSpace(network)) {
	case NetworkBEP20, NetworkERC20:
		return isEVMAddress(address)
	case NetworkTRC20:
		return isTronAddress(address)
	case NetworkBTC:
		return isBitcoinAddress(address)
	default:
		return false
	}
}

// SupportedNetworks lists the networks IsValid understands
func (v *AddressValidator) SupportedNetworks() []string {
	return []string{NetworkBEP20, NetworkERC20, NetworkTRC20, NetworkBTC}
}

func isEVMAddress(address string) bool {
	// common.IsHexAddress also accepts a bare 40-char hex string; require the prefix
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return false
	}
	return common.IsHexAddress(address)
}

func isTronAddress(address string) bool {
	if !strings.HasPrefix(address, "T") {
		return false
	}
	payload, ok := decodeBase58Check(address)
	return ok && payload[0] == tronAddressPrefix
}

func isBitcoinAddress(address string) bool {
	if strings.HasPrefix(strings.ToLower(address), btcBech32HRP+"1") {
		return isSegwitAddress(address)
	}
	if !btcLegacyPattern.MatchString(address) {
		return false
	}
	payload, ok := decodeBase58Check(address)
	return ok && (payload[0] == btcP2PKHVersion || payload[0] == btcP2SHVersion)
}

// decodeBase58Check decodes a 25-byte base58check string and verifies the
// double-SHA256 checksum. It returns the 21-byte versioned payload.
func decodeBase58Check(s string) ([]byte, bool) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != base58CheckLength {
		return nil, false
	}

	payload, checksum := raw[:21], raw[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return nil, false
	}
	return payload, true
}

// isSegwitAddress validates a bc1 address: single case, bech32 checksum for
// witness v0 and bech32m for v1+, and a program length allowed for its version.
func isSegwitAddress(address string) bool {
	lower := strings.ToLower(address)
	if address != lower && address != strings.ToUpper(address) {
		return false
	}
	if !btcBech32Pattern.MatchString(lower) {
		return false
	}

	data := make([]byte, 0, len(lower)-len(btcBech32HRP)-1)
	for _, c := range lower[len(btcBech32HRP)+1:] {
		data = append(data, byte(strings.IndexRune(bech32Charset, c)))
	}

	version := data[0]
	if version > 16 {
		return false
	}
	check := bech32Polymod(append(bech32ExpandHRP(btcBech32HRP), data...))
	if (version == 0 && check != bech32Const) || (version > 0 && check != bech32mConst) {
		return false
	}

	program, ok := convertBits(data[1:len(data)-bech32ChecksumLen], 5, 8)
	if !ok || len(program) < 2 || len(program) > 40 {
		return false
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return false
	}
	return true
}

func bech32Polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func bech32ExpandHRP(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

// convertBits regroups 5-bit words into bytes without padding.
// Leftover bits must be fewer than 5 and all zero.
func convertBits(data []byte, from, to uint) ([]byte, bool) {
	var acc, bits uint
	maxv := uint(1)<<to - 1
	out := make([]byte, 0, len(data)*int(from)/int(to))
	for _, v := range data {
		acc = acc<<from | uint(v)
		bits += from
		for bits >= to {
			bits -= to
			out = append(out, byte(acc>>bits&maxv))
		}
	}
	if bits >= from || (acc<<(to-bits))&maxv != 0 {
		return nil, false
	}
	return out, true
}
