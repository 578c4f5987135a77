// noobchain-cli manages wallet mnemonics and the owner keys derived from them.
package main

import "github.com/Klingon-tech/noobchain/cmd/noobchain-cli/cmd"

func main() {
	cmd.Execute()
}
