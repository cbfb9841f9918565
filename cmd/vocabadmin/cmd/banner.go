package cmd

import (
	"fmt"
	"io"
)

const banner = `
 __     __              _       _       _           _       
 \ \   / /__   ___ __ _| |__   / \   __| |_ __ ___ (_)_ __  
  \ \ / / _ \ / __/ _` + "`" + ` | '_ \ / _ \ / _` + "`" + ` | '_ ` + "`" + ` _ \| | '_ \ 
   \ V / (_) | (_| (_| | |_) / ___ \ (_| | | | | | | | | | |
    \_/ \___/ \___\__,_|_.__/_/   \_\__,_|_| |_| |_|_|_| |_|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Vocabulary Admin Dashboard - Version %s\x1b[0m\n\n", Version)
}
