package main

import "github.com/quill-blog/quill/cmd"

func main() {
	cmd.Execute()
}
