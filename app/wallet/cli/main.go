// This program is a wallet for the SimpleStorage contract. It reads the value
// and its history through the storage-api service and changes the value by
// sending signed transactions straight to the node.
package main

import "github.com/ardanlabs/simplestorage/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
