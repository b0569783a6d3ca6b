package main

import "bucket-deployer/cmd"

func main() {
	cmd.Execute()
}
