package main

import "github.com/fraugster/stringdict/cmd/dict-tool/cmds"

func main() {
	cmds.Execute()
}
