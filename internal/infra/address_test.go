package infra

import "testing"

func TestAddressValidator_IsValid(t *testing.T) {
	v := NewAddressValidator()

	tests := []struct {
		name    string
		address string
		network string
		want    bool
	}{
		{"bep20", "0xBdaB0e3B02072660B570896C0771F3e707d09893", "BEP20", true},
		{"bep20 lowercase network", "0xBdaB0e3B02072660B570896C0771F3e707d09893", "bep20", true},
		{"erc20", "0x0000000000000000000000000000000000000000", "ERC20", true},
		{"bep20 missing prefix", "BdaB0e3B02072660B570896C0771F3e707d09893", "BEP20", false},
		{"bep20 too short", "0xBdaB0e3B02072660B570896C0771F3e707d0989", "BEP20", false},
		{"bep20 not hex", "0xZdaB0e3B02072660B570896C0771F3e707d09893", "BEP20", false},
		{"trc20", "TS3o9rFnykg8AbnnWsiHmqcDeerC9wDfbw", "TRC20", true},
		{"trc20 usdt contract", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", "TRC20", true},
		{"trc20 bad checksum", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u", "TRC20", false},
		{"trc20 evm address", "0xBdaB0e3B02072660B570896C0771F3e707d09893", "TRC20", false},
		{"btc p2pkh", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "BTC", true},
		{"btc p2sh", "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", "BTC", true},
		{"btc bech32", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", "BTC", true},
		{"btc bech32 p2wpkh", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", "BTC", true},
		{"btc bech32 p2wsh", "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3", "BTC", true},
		{"btc bech32 uppercase", "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", "BTC", true},
		{"btc taproot bech32m", "bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqzk5jj0", "BTC", true},
		{"btc bech32 mistyped", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdp", "BTC", false},
		{"btc bech32 mixed case", "bc1qW508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", "BTC", false},
		{"btc bech32 no data", "bc1", "BTC", false},
		{"btc bad checksum", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb", "BTC", false},
		{"btc tron address", "TS3o9rFnykg8AbnnWsiHmqcDeerC9wDfbw", "BTC", false},
		{"empty address", "", "BEP20", false},
		{"unknown network", "0xBdaB0e3B02072660B570896C0771F3e707d09893", "SOL", false},
		{"empty network", "0xBdaB0e3B02072660B570896C0771F3e707d09893", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.IsValid(tt.address, tt.network); got != tt.want {
				t.Errorf("IsValid(%q, %q) = %v, want %v", tt.address, tt.network, got, tt.want)
			}
		})
	}
}

func TestAddressValidator_SupportedNetworks(t *testing.T) {
	nets := NewAddressValidator().SupportedNetworks()
	if len(nets) != 4 {
		t.Errorf("SupportedNetworks() = %v", nets)
	}
}
