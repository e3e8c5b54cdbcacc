package main

import "github.com/RyanBlaney/speech-emotion/cmd"

func main() {
	cmd.Execute()
}
