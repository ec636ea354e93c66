// Small helper to generate a dev relayer keypair and print
// - keypair file path (Solana CLI compatible JSON byte array)
// - public key (hex)
package main

import (
	"fmt"
	"os"

	"github.com/whalevault/relayd/x/ledger"
)

func main() {
	path := "relayer-keypair.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	keypair, err := ledger.GenerateKeypair()
	if err != nil {
		panic(err)
	}
	if err := keypair.Save(path); err != nil {
		panic(err)
	}

	fmt.Printf("KEYPAIR_FILE=%s\nRELAYER_PUB=%s\n", path, keypair.PublicKey())
}
