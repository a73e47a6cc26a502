package prompt

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoder() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			log.Printf("[prompt] warning: %s unavailable, estimating tokens from length: %v", tokenEncoding, err)
			return
		}
		enc = e
	})
	return enc
}

// EstimateTokens counts the tokens text would use with the cl100k_base
// encoding. When the encoding cannot be loaded it falls back to one token
// per four bytes.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	if e := encoder(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return approxTokens(text)
}

func approxTokens(text string) int {
	return max(1, len(text)/4)
}
