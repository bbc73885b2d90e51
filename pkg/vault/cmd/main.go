package main

import (
	"fmt"
	"log"

	"github.com/dmitrymomot/twofactor/pkg/vault"
)

func main() {
	key, err := vault.GenerateMasterKey()
	if err != nil {
		log.Fatalf("Failed to generate master key: %v", err)
	}

	fmt.Printf("Generated master key (for TWO_FACTOR_MASTER_KEY env var): \n———\n%s\n———\n", key)
}
