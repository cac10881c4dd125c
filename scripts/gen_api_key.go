package main

import (
	"flag"
	"fmt"
	"os"

	"kiwi/internal/pkg/id"
	"kiwi/internal/pkg/password"
)

// 生成 API Key 及其 bcrypt 哈希
// 哈希写进配置的 auth.api_key_hash，明文 Key 发给调用方
func main() {
	key := flag.String("key", "", "use this API key instead of generating one")
	flag.Parse()

	apiKey := *key
	if apiKey == "" {
		apiKey = id.New()
	}

	hash, err := password.Hash(apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API Key:       %s\n", apiKey)
	fmt.Printf("auth.api_key_hash: %s\n", hash)
}
