package main

import "github.com/mvp-joe/ldraw-import/internal/cli"

func main() {
	cli.Execute()
}
