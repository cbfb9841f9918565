package main

import "github.com/jmcleod/vocabadmin/cmd/vocabadmin/cmd"

func main() {
	cmd.Execute()
}
