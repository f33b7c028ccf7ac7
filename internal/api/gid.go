package api

import (
	"fmt"
	"math/big"
	"strings"
)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var base62Index = func() map[rune]int64 {
	index := make(map[rune]int64, len(base62Alphabet))
	for i, r := range base62Alphabet {
		index[r] = int64(i)
	}
	return index
}()

// trackGID converts a base62 track id to the 32 character lowercase hex gid
// the metadata endpoint addresses tracks by.
func trackGID(trackID string) (string, error) {
	if trackID == "" {
		return "", fmt.Errorf("empty track id")
	}
	value := new(big.Int)
	base := big.NewInt(62)
	for _, r := range trackID {
		digit, ok := base62Index[r]
		if !ok {
			return "", fmt.Errorf("invalid base62 character %q in track id", r)
		}
		value.Mul(value, base)
		value.Add(value, big.NewInt(digit))
	}
	hex := value.Text(16)
	if len(hex) < 32 {
		hex = strings.Repeat("0", 32-len(hex)) + hex
	}
	if len(hex) > 32 {
		return "", fmt.Errorf("track id %q overflows gid width", trackID)
	}
	return hex, nil
}
